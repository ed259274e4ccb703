package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleHOD     UserRole = "HOD"
	RoleTeacher UserRole = "TEACHER"
)

// NormalizeRole maps stored role strings of any casing onto the canonical
// uppercase form. Unknown roles normalise to "".
func NormalizeRole(raw string) UserRole {
	switch UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleHOD:
		return RoleHOD
	case RoleTeacher:
		return RoleTeacher
	default:
		return ""
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Department returns the user's department id or "".
func (u *User) Department() string {
	if u == nil || u.DepartmentID == nil {
		return ""
	}
	return *u.DepartmentID
}
