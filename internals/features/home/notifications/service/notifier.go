package service

import (
	"context"
	"log"

	"onboarding_backend/internals/features/home/notifications/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	UserID   uuid.UUID
	SenderID uuid.UUID
	Type     model.NotificationType
	Title    string
	Message  string
	Entity   string
	EntityID uuid.UUID
}

// Notifier writes in-app notifications. Delivery is best effort: a failed
// insert is logged and never reaches the caller.
type Notifier struct {
	DB *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{DB: db}
}

func (n *Notifier) Notify(ctx context.Context, in Notification) {
	if n == nil || n.DB == nil {
		return
	}
	row := model.NotificationModel{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		Entity:  in.Entity,
	}
	if in.SenderID != uuid.Nil {
		s := in.SenderID
		row.SenderID = &s
	}
	if in.EntityID != uuid.Nil {
		e := in.EntityID
		row.EntityID = &e
	}
	if err := n.DB.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("[WARN] notification %s for user %s not stored: %v", in.Type, in.UserID, err)
	}
}
