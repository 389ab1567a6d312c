package dto

import (
	"strings"
	"time"

	"onboarding_backend/internals/features/assignments/process_assignments/model"
	userModel "onboarding_backend/internals/features/users/user/model"

	"github.com/google/uuid"
)

/* =========================
   Requests
========================= */

type CreateAssignmentRequest struct {
	ProcessType  string    `json:"process_type" validate:"required,max=60"`
	ProcessID    string    `json:"process_id" validate:"required,max=100"`
	StageID      *string   `json:"stage_id" validate:"omitempty,max=100"`
	AssignedTo   uuid.UUID `json:"assigned_to" validate:"required"`
	RequiredRole *string   `json:"required_role" validate:"omitempty,max=60"`
	Notes        *string   `json:"notes"`

	// camelCase spellings, merged by Normalize
	ProcessTypeAlt  string    `json:"processType"`
	ProcessIDAlt    string    `json:"processId"`
	StageIDAlt      *string   `json:"stageId"`
	AssignedToAlt   uuid.UUID `json:"assignedTo"`
	RequiredRoleAlt *string   `json:"requiredRole"`
}

func (r *CreateAssignmentRequest) Normalize() {
	if r.ProcessType == "" {
		r.ProcessType = r.ProcessTypeAlt
	}
	if r.ProcessID == "" {
		r.ProcessID = r.ProcessIDAlt
	}
	if r.StageID == nil {
		r.StageID = r.StageIDAlt
	}
	if r.AssignedTo == uuid.Nil {
		r.AssignedTo = r.AssignedToAlt
	}
	if r.RequiredRole == nil {
		r.RequiredRole = r.RequiredRoleAlt
	}
	r.ProcessType = strings.TrimSpace(r.ProcessType)
	r.ProcessID = strings.TrimSpace(r.ProcessID)
	r.StageID = trimPtr(r.StageID)
	r.RequiredRole = trimPtr(r.RequiredRole)
	r.Notes = trimPtr(r.Notes)
}

type RejectAssignmentRequest struct {
	RejectionReason    string `json:"rejection_reason"`
	RejectionReasonAlt string `json:"rejectionReason"`
}

func (r *RejectAssignmentRequest) Normalize() {
	if r.RejectionReason == "" {
		r.RejectionReason = r.RejectionReasonAlt
	}
	r.RejectionReason = strings.TrimSpace(r.RejectionReason)
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

/* =========================
   Responses
========================= */

type AssignmentResponse struct {
	ID              uuid.UUID              `json:"id"`
	ProcessType     string                 `json:"process_type"`
	ProcessID       string                 `json:"process_id"`
	StageID         *string                `json:"stage_id,omitempty"`
	AssignedTo      uuid.UUID              `json:"assigned_to"`
	AssignedBy      uuid.UUID              `json:"assigned_by"`
	RequiredRole    *string                `json:"required_role,omitempty"`
	Status          model.AssignmentStatus `json:"status"`
	Notes           *string                `json:"notes,omitempty"`
	SignedAt        *time.Time             `json:"signed_at,omitempty"`
	RejectedAt      *time.Time             `json:"rejected_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	RejectionReason *string                `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`

	Assignee *userModel.UserSummary `json:"assignee,omitempty"`
	Assigner *userModel.UserSummary `json:"assigner,omitempty"`
}

func FromModel(m model.ProcessAssignmentModel) AssignmentResponse {
	return AssignmentResponse{
		ID:              m.ID,
		ProcessType:     m.ProcessType,
		ProcessID:       m.ProcessID,
		StageID:         m.StageID,
		AssignedTo:      m.AssignedTo,
		AssignedBy:      m.AssignedBy,
		RequiredRole:    m.RequiredRole,
		Status:          m.Status,
		Notes:           m.Notes,
		SignedAt:        m.SignedAt,
		RejectedAt:      m.RejectedAt,
		CompletedAt:     m.CompletedAt,
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// WithUsers attaches assignee/assigner summaries found in users.
func WithUsers(m model.ProcessAssignmentModel, users map[uuid.UUID]userModel.UserModel) AssignmentResponse {
	out := FromModel(m)
	if u, ok := users[m.AssignedTo]; ok {
		out.Assignee = u.Summary()
	}
	if u, ok := users[m.AssignedBy]; ok {
		out.Assigner = u.Summary()
	}
	return out
}

type CheckActiveResponse struct {
	HasAssignment  bool                `json:"has_assignment"`
	Assignment     *AssignmentResponse `json:"assignment"`
	CanEdit        bool                `json:"can_edit"`
	IsAssignedToMe bool                `json:"is_assigned_to_me"`
}
