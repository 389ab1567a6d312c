package dto

import (
	"time"

	"onboarding_backend/internals/features/home/notifications/model"
	userModel "onboarding_backend/internals/features/users/user/model"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Entity    string     `json:"entity,omitempty"`
	EntityID  *uuid.UUID `json:"entity_id,omitempty"`
	SenderID  *uuid.UUID `json:"sender_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *string    `json:"read_at,omitempty"`
	CreatedAt string     `json:"created_at"`

	// filled on the detail endpoint only
	Sender *userModel.UserSummary `json:"sender,omitempty"`
}

func ToNotificationResponse(m *model.NotificationModel) NotificationResponse {
	var readAt *string
	if m.ReadAt != nil {
		s := m.ReadAt.Format(time.RFC3339)
		readAt = &s
	}
	return NotificationResponse{
		ID:        m.ID,
		Type:      string(m.Type),
		Title:     m.Title,
		Message:   m.Message,
		Entity:    m.Entity,
		EntityID:  m.EntityID,
		SenderID:  m.SenderID,
		IsRead:    m.IsRead,
		ReadAt:    readAt,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func ToNotificationResponseList(models []model.NotificationModel) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(models))
	for i := range models {
		out = append(out, ToNotificationResponse(&models[i]))
	}
	return out
}
