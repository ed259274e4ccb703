package service

import (
	"strings"

	"github.com/Omgp9308/timetable-scheduler/internal/models"
	appErrors "github.com/Omgp9308/timetable-scheduler/pkg/errors"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID       string
	Username     string
	Role         models.UserRole
	DepartmentID string
}

// ActorFromClaims converts validated token claims into an Actor.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		UserID:       claims.UserID,
		Username:     claims.Username,
		Role:         models.NormalizeRole(string(claims.Role)),
		DepartmentID: claims.DepartmentID,
	}
}

// IsAdmin reports whether the actor may act on any department.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Name identifies the actor in owner and audit columns.
func (a Actor) Name() string {
	if a.Username != "" {
		return a.Username
	}
	return a.UserID
}

// resolveDepartment returns the department an operation runs against. Admins
// must name one; everybody else is pinned to the department in their token.
func resolveDepartment(actor Actor, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if actor.IsAdmin() {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "department_id is required")
		}
		return requested, nil
	}
	if actor.DepartmentID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account is not assigned to a department")
	}
	if requested != "" && requested != actor.DepartmentID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot access another department")
	}
	return actor.DepartmentID, nil
}

// authorizeDepartment checks that actor may touch a record of departmentID.
func authorizeDepartment(actor Actor, departmentID string) error {
	if actor.IsAdmin() || actor.DepartmentID == departmentID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "cannot access another department")
}
