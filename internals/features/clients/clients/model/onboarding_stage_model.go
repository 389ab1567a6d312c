package model

import (
	"time"

	"github.com/google/uuid"
)

type StageName string

const (
	StageInitialMeeting StageName = "initial_meeting"
	StageDocumentation  StageName = "documentation"
	StageReview         StageName = "review"
	StageCompleted      StageName = "completed"
)

func (s StageName) IsValid() bool {
	switch s {
	case StageInitialMeeting, StageDocumentation, StageReview, StageCompleted:
		return true
	}
	return false
}

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "completed"
)

func (s StageStatus) IsValid() bool {
	switch s {
	case StagePending, StageInProgress, StageDone:
		return true
	}
	return false
}

type OnboardingStageModel struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	Stage  StageName   `gorm:"size:30;not null" json:"stage"`
	Status StageStatus `gorm:"size:20;not null;default:'pending'" json:"status"`

	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Notes         *string    `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OnboardingStageModel) TableName() string {
	return "onboarding_stages"
}
