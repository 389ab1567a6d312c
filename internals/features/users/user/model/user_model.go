package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UserModel maps the users table
type UserModel struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name     string    `gorm:"size:120;not null" json:"name"`
	Email    string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`

	// job function (e.g. "contador"); assignments match required_role against it
	Role string `gorm:"size:60;not null;default:''" json:"role"`
	// administrador | operador | analista
	PermissionLevel string `gorm:"size:20;not null;default:'analista'" json:"permission_level"`

	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	IsBlocked     bool       `gorm:"not null;default:false" json:"is_blocked"`
	LoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`

	// secret stays pending until verify-setup; backup codes are stored hashed only
	TwoFactorSecret      *string        `gorm:"size:64" json:"-"`
	TwoFactorEnabled     bool           `gorm:"not null;default:false" json:"two_factor_enabled"`
	TwoFactorBackupCodes pq.StringArray `gorm:"type:text[]" json:"-"`

	// jti of the only refresh token still accepted; NULL after logout
	RefreshTokenID *string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserModel) TableName() string {
	return "users"
}

// UserSummary is the short form embedded in assignment responses.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func (u *UserModel) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
