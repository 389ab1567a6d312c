package model

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusSigned    AssignmentStatus = "signed"
	StatusRejected  AssignmentStatus = "rejected"
	StatusCompleted AssignmentStatus = "completed"
)

// ActiveStatuses block a second assignment for the same process.
var ActiveStatuses = []AssignmentStatus{StatusPending, StatusSigned}

func (s AssignmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSigned, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

func (s AssignmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusSigned
}

type ProcessAssignmentModel struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	ProcessType string  `gorm:"size:60;not null;index:idx_process_assignments_process,priority:1" json:"process_type"`
	ProcessID   string  `gorm:"size:100;not null;index:idx_process_assignments_process,priority:2" json:"process_id"`
	StageID     *string `gorm:"size:100" json:"stage_id,omitempty"`

	AssignedTo   uuid.UUID `gorm:"type:uuid;not null;index" json:"assigned_to"`
	AssignedBy   uuid.UUID `gorm:"type:uuid;not null;index" json:"assigned_by"`
	RequiredRole *string   `gorm:"size:60" json:"required_role,omitempty"`

	Status AssignmentStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Notes  *string          `gorm:"type:text" json:"notes,omitempty"`

	SignedAt        *time.Time `json:"signed_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProcessAssignmentModel) TableName() string {
	return "process_assignments"
}
