package dto

import (
	"onboarding_backend/internals/features/users/auth/service"
	userDTO "onboarding_backend/internals/features/users/user/dto"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`

	CurrentPasswordAlt string `json:"currentPassword"`
	NewPasswordAlt     string `json:"newPassword"`
}

func (r *ChangePasswordRequest) Normalize() {
	if r.CurrentPassword == "" {
		r.CurrentPassword = r.CurrentPasswordAlt
	}
	if r.NewPassword == "" {
		r.NewPassword = r.NewPasswordAlt
	}
}

type SessionResponse struct {
	User         userDTO.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	TokenType    string               `json:"token_type"`
	ExpiresIn    int64                `json:"expires_in"`
}

type TwoFactorChallengeResponse struct {
	RequiresTwoFactor bool      `json:"requires_two_factor"`
	UserID            uuid.UUID `json:"user_id"`
	ChallengeToken    string    `json:"challenge_token"`
}

// ToLoginResponse picks the session or the 2FA challenge shape.
func ToLoginResponse(r *service.LoginResult) any {
	if r.RequiresTwoFactor {
		return TwoFactorChallengeResponse{
			RequiresTwoFactor: true,
			UserID:            r.UserID,
			ChallengeToken:    r.ChallengeToken,
		}
	}
	return ToSessionResponse(r)
}

func ToSessionResponse(r *service.LoginResult) SessionResponse {
	return SessionResponse{
		User:         userDTO.FromModel(*r.User),
		AccessToken:  r.Tokens.AccessToken,
		RefreshToken: r.Tokens.RefreshToken,
		TokenType:    r.Tokens.TokenType,
		ExpiresIn:    r.Tokens.ExpiresIn,
	}
}
