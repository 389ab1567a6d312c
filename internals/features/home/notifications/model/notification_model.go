package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeAssignment          NotificationType = "assignment"
	TypeAssignmentSigned    NotificationType = "assignment_signed"
	TypeAssignmentRejected  NotificationType = "assignment_rejected"
	TypeAssignmentCompleted NotificationType = "assignment_completed"
)

type NotificationModel struct {
	ID       uuid.UUID        `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID   uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	SenderID *uuid.UUID       `gorm:"column:sender_id;type:uuid" json:"sender_id,omitempty"`
	Type     NotificationType `gorm:"column:type;type:varchar(40);not null" json:"type"`
	Title    string           `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message  string           `gorm:"column:message;type:text" json:"message"`
	Entity   string           `gorm:"column:entity;type:varchar(60)" json:"entity,omitempty"`
	EntityID *uuid.UUID       `gorm:"column:entity_id;type:uuid" json:"entity_id,omitempty"`

	IsRead    bool       `gorm:"column:is_read;not null;default:false" json:"is_read"`
	ReadAt    *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}
