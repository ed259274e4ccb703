package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Omgp9308/timetable-scheduler/internal/dto"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

type mockUserRepo struct {
	users []models.User
}

func (m *mockUserRepo) List(ctx context.Context) ([]models.User, error) {
	return m.users, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for i := range m.users {
		if m.users[i].Username == username {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "generated"
	m.users = append(m.users, *user)
	return nil
}

type mockDepartmentLookup map[string]bool

func (m mockDepartmentLookup) Exists(ctx context.Context, id string) (bool, error) {
	return m[id], nil
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, mockDepartmentLookup{"cse": true}, validator.New(), zap.NewNop())
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestUserService(repo)
	admin := Actor{UserID: "a1", Username: "admin", Role: models.RoleAdmin}

	user, err := svc.Create(context.Background(), admin, dto.CreateUserRequest{Username: "hod_cse", Password: "supersecret", Role: "hod", DepartmentID: "cse"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleHOD, user.Role)
	assert.Equal(t, "cse", user.Department())
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserServiceCreateRejectsInvalidInput(t *testing.T) {
	repo := &mockUserRepo{users: []models.User{{ID: "u1", Username: "taken", Role: models.RoleTeacher}}}
	svc := newTestUserService(repo)
	admin := Actor{UserID: "a1", Role: models.RoleAdmin}

	cases := []struct {
		name string
		req  dto.CreateUserRequest
		code string
	}{
		{"unknown role", dto.CreateUserRequest{Username: "x_user", Password: "supersecret", Role: "student"}, appErrors.ErrValidation.Code},
		{"teacher without department", dto.CreateUserRequest{Username: "x_user", Password: "supersecret", Role: "TEACHER"}, appErrors.ErrValidation.Code},
		{"unknown department", dto.CreateUserRequest{Username: "x_user", Password: "supersecret", Role: "TEACHER", DepartmentID: "ece"}, appErrors.ErrValidation.Code},
		{"short password", dto.CreateUserRequest{Username: "x_user", Password: "short", Role: "ADMIN"}, appErrors.ErrValidation.Code},
		{"duplicate username", dto.CreateUserRequest{Username: "taken", Password: "supersecret", Role: "TEACHER", DepartmentID: "cse"}, appErrors.ErrConflict.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}
