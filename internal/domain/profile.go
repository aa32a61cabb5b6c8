// Package domain defines the business entities of the MIR waste-management
// service. Field names follow the Supabase column names so rows decode
// directly into these types.
package domain

import "time"

// ============================================================
// Roles & profiles
// ============================================================

// Role is the only authorization dimension of the platform.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleUser:
		return true
	}
	return false
}

// IsStaff is true for admins and operators.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Profile is a row of the profiles table.
type Profile struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	CompanyName string    `json:"company_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpdateProfileRequest is the body for PATCH /v1/me.
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=2,max=120"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=160"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// Is reports whether the actor is the given user.
func (a Actor) Is(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}
