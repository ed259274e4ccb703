package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type departmentLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// UserService handles user management workflows.
type UserService struct {
	repo        userRepository
	departments departmentLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, departments departmentLookup, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, departments: departments, validator: validate, logger: logger}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return nonNil(users), nil
}

// Create provisions a login. HOD and TEACHER accounts must belong to an existing department.
func (s *UserService) Create(ctx context.Context, actor Actor, req dto.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	role := models.NormalizeRole(req.Role)
	if role == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be one of ADMIN, HOD, TEACHER")
	}
	dept := strings.TrimSpace(req.DepartmentID)
	if role != models.RoleAdmin && dept == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department_id is required for HOD and TEACHER accounts")
	}
	if dept != "" {
		exists, err := s.departments.Exists(ctx, dept)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown department")
		}
	}

	username := strings.TrimSpace(req.Username)
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		Role:         role,
		Active:       true,
	}
	if dept != "" {
		user.DepartmentID = &dept
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(role)),
		zap.String("actor", actor.Name()),
	)
	return user, nil
}
