package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

type ClientStatus string

const (
	ClientOnboarding ClientStatus = "onboarding"
	ClientActive     ClientStatus = "active"
	ClientInactive   ClientStatus = "inactive"
	ClientPending    ClientStatus = "pending"
)

func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientOnboarding, ClientActive, ClientInactive, ClientPending:
		return true
	}
	return false
}

type ClientModel struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	CompanyName string `gorm:"size:200;not null" json:"company_name"`
	// digits only, see NormalizeCNPJ
	CNPJ   string  `gorm:"column:cnpj;size:14;not null;uniqueIndex:uq_clients_cnpj" json:"cnpj"`
	Sector *string `gorm:"size:120" json:"sector,omitempty"`

	ContactName  *string `gorm:"size:120" json:"contact_name,omitempty"`
	ContactEmail *string `gorm:"size:255" json:"contact_email,omitempty"`
	ContactPhone *string `gorm:"size:30" json:"contact_phone,omitempty"`

	Status     ClientStatus `gorm:"size:20;not null;default:'onboarding';index" json:"status"`
	AssigneeID *uuid.UUID   `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	Notes      *string      `gorm:"type:text" json:"notes,omitempty"`

	Stages []OnboardingStageModel `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClientModel) TableName() string {
	return "clients"
}

// NormalizeCNPJ strips punctuation so "12.345.678/0001-90" and
// "12345678000190" collide on the unique index.
func NormalizeCNPJ(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
