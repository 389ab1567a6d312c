package dto

import (
	"strings"
	"time"

	"onboarding_backend/internals/features/clients/clients/model"
	userModel "onboarding_backend/internals/features/users/user/model"

	"github.com/google/uuid"
)

/* =========================
   Requests
========================= */

type CreateClientRequest struct {
	CompanyName  string     `json:"company_name" validate:"required,max=200"`
	CNPJ         string     `json:"cnpj" validate:"required,len=14,numeric"`
	Sector       *string    `json:"sector" validate:"omitempty,max=120"`
	ContactName  *string    `json:"contact_name" validate:"omitempty,max=120"`
	ContactEmail *string    `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string    `json:"contact_phone" validate:"omitempty,max=30"`
	Status       string     `json:"status" validate:"omitempty,oneof=onboarding active inactive pending"`
	AssigneeID   *uuid.UUID `json:"assignee_id"`
	Notes        *string    `json:"notes"`

	CompanyNameAlt  string     `json:"companyName"`
	ContactNameAlt  *string    `json:"contactName"`
	ContactEmailAlt *string    `json:"contactEmail"`
	ContactPhoneAlt *string    `json:"contactPhone"`
	AssigneeIDAlt   *uuid.UUID `json:"assigneeId"`
}

func (r *CreateClientRequest) Normalize() {
	if r.CompanyName == "" {
		r.CompanyName = r.CompanyNameAlt
	}
	if r.ContactName == nil {
		r.ContactName = r.ContactNameAlt
	}
	if r.ContactEmail == nil {
		r.ContactEmail = r.ContactEmailAlt
	}
	if r.ContactPhone == nil {
		r.ContactPhone = r.ContactPhoneAlt
	}
	if r.AssigneeID == nil {
		r.AssigneeID = r.AssigneeIDAlt
	}
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.CNPJ = model.NormalizeCNPJ(r.CNPJ)
	r.Sector = trimPtr(r.Sector)
	r.ContactName = trimPtr(r.ContactName)
	r.ContactEmail = lowerPtr(trimPtr(r.ContactEmail))
	r.ContactPhone = trimPtr(r.ContactPhone)
	r.Notes = trimPtr(r.Notes)
	r.Status = strings.TrimSpace(r.Status)
}

// UpdateClientRequest is a partial update; nil fields are left untouched.
type UpdateClientRequest struct {
	CompanyName  *string    `json:"company_name" validate:"omitempty,min=1,max=200"`
	CNPJ         *string    `json:"cnpj" validate:"omitempty,len=14,numeric"`
	Sector       *string    `json:"sector" validate:"omitempty,max=120"`
	ContactName  *string    `json:"contact_name" validate:"omitempty,max=120"`
	ContactEmail *string    `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string    `json:"contact_phone" validate:"omitempty,max=30"`
	Status       *string    `json:"status" validate:"omitempty,oneof=onboarding active inactive pending"`
	AssigneeID   *uuid.UUID `json:"assignee_id"`
	Notes        *string    `json:"notes"`

	CompanyNameAlt  *string    `json:"companyName"`
	ContactNameAlt  *string    `json:"contactName"`
	ContactEmailAlt *string    `json:"contactEmail"`
	ContactPhoneAlt *string    `json:"contactPhone"`
	AssigneeIDAlt   *uuid.UUID `json:"assigneeId"`
}

func (r *UpdateClientRequest) Normalize() {
	if r.CompanyName == nil {
		r.CompanyName = r.CompanyNameAlt
	}
	if r.ContactName == nil {
		r.ContactName = r.ContactNameAlt
	}
	if r.ContactEmail == nil {
		r.ContactEmail = r.ContactEmailAlt
	}
	if r.ContactPhone == nil {
		r.ContactPhone = r.ContactPhoneAlt
	}
	if r.AssigneeID == nil {
		r.AssigneeID = r.AssigneeIDAlt
	}
	if r.CompanyName != nil {
		v := strings.TrimSpace(*r.CompanyName)
		r.CompanyName = &v
	}
	if r.CNPJ != nil {
		v := model.NormalizeCNPJ(*r.CNPJ)
		r.CNPJ = &v
	}
	if r.ContactEmail != nil {
		v := strings.ToLower(strings.TrimSpace(*r.ContactEmail))
		r.ContactEmail = &v
	}
}

type UpdateStageRequest struct {
	Stage         *string    `json:"stage" validate:"omitempty,oneof=initial_meeting documentation review completed"`
	Status        *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Notes         *string    `json:"notes"`

	ScheduledDateAlt *time.Time `json:"scheduledDate"`
}

func (r *UpdateStageRequest) Normalize() {
	if r.ScheduledDate == nil {
		r.ScheduledDate = r.ScheduledDateAlt
	}
	r.Notes = trimPtr(r.Notes)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func lowerPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.ToLower(*p)
	return &s
}

/* =========================
   Responses
========================= */

type StageResponse struct {
	ID            uuid.UUID         `json:"id"`
	ClientID      uuid.UUID         `json:"client_id"`
	Stage         model.StageName   `json:"stage"`
	Status        model.StageStatus `json:"status"`
	ScheduledDate *time.Time        `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time        `json:"completed_date,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func FromStage(m model.OnboardingStageModel) StageResponse {
	return StageResponse{
		ID:            m.ID,
		ClientID:      m.ClientID,
		Stage:         m.Stage,
		Status:        m.Status,
		ScheduledDate: m.ScheduledDate,
		CompletedDate: m.CompletedDate,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
}

func FromStages(rows []model.OnboardingStageModel) []StageResponse {
	out := make([]StageResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromStage(r))
	}
	return out
}

type ClientResponse struct {
	ID           uuid.UUID          `json:"id"`
	CompanyName  string             `json:"company_name"`
	CNPJ         string             `json:"cnpj"`
	Sector       *string            `json:"sector,omitempty"`
	ContactName  *string            `json:"contact_name,omitempty"`
	ContactEmail *string            `json:"contact_email,omitempty"`
	ContactPhone *string            `json:"contact_phone,omitempty"`
	Status       model.ClientStatus `json:"status"`
	AssigneeID   *uuid.UUID         `json:"assignee_id,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	Assignee     *userModel.UserSummary `json:"assignee,omitempty"`
	CurrentStage *StageResponse         `json:"current_stage,omitempty"`
}

func FromModel(m model.ClientModel) ClientResponse {
	return ClientResponse{
		ID:           m.ID,
		CompanyName:  m.CompanyName,
		CNPJ:         m.CNPJ,
		Sector:       m.Sector,
		ContactName:  m.ContactName,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
		Status:       m.Status,
		AssigneeID:   m.AssigneeID,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
