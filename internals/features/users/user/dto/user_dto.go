package dto

import (
	"strings"
	"time"

	"onboarding_backend/internals/features/users/user/model"

	"github.com/google/uuid"
)

type CreateUserRequest struct {
	Name            string `json:"name" validate:"required,min=3,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	Role            string `json:"role" validate:"max=60"`
	PermissionLevel string `json:"permission_level" validate:"omitempty,oneof=administrador operador analista"`
}

func (r *CreateUserRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.TrimSpace(r.Role)
	if r.PermissionLevel == "" {
		r.PermissionLevel = "analista"
	}
}

// UpdateUserRequest edits a user; nil fields are left untouched.
type UpdateUserRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=3,max=120"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Role            *string `json:"role" validate:"omitempty,max=60"`
	PermissionLevel *string `json:"permission_level" validate:"omitempty,oneof=administrador operador analista"`
	IsActive        *bool   `json:"is_active"`
	IsBlocked       *bool   `json:"is_blocked"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Name != nil {
		v := strings.TrimSpace(*r.Name)
		r.Name = &v
	}
	if r.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &v
	}
	if r.Role != nil {
		v := strings.TrimSpace(*r.Role)
		r.Role = &v
	}
}

// AdminOnly reports whether the request touches fields only an
// administrator may change.
func (r *UpdateUserRequest) AdminOnly() bool {
	return r.Role != nil || r.PermissionLevel != nil || r.IsActive != nil || r.IsBlocked != nil
}

// nil fields are left untouched
type UpdateUserStatusRequest struct {
	IsActive  *bool `json:"is_active"`
	IsBlocked *bool `json:"is_blocked"`
}

type UserResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	PermissionLevel  string     `json:"permission_level"`
	IsActive         bool       `json:"is_active"`
	IsBlocked        bool       `json:"is_blocked"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func FromModel(u model.UserModel) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		PermissionLevel:  u.PermissionLevel,
		IsActive:         u.IsActive,
		IsBlocked:        u.IsBlocked,
		TwoFactorEnabled: u.TwoFactorEnabled,
		LastLoginAt:      u.LastLoginAt,
		CreatedAt:        u.CreatedAt,
	}
}

func FromModels(users []model.UserModel) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromModel(u))
	}
	return out
}
