package service

import (
	"context"
	"log"

	"onboarding_backend/internals/features/audit/audit_logs/model"
	helper "onboarding_backend/internals/helpers"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one audit event. Old/New are snapshots marshalled to JSON.
type Entry struct {
	UserID      uuid.UUID
	Action      string
	Entity      string
	EntityID    string
	Description string
	Old         any
	New         any
	IP          string
	UserAgent   string
	RequestID   string
}

// EntryFor fills the request metadata of an entry from the acting user.
func EntryFor(a helper.Actor, action, entity, entityID string) Entry {
	return Entry{
		UserID:    a.ID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		IP:        a.IP,
		UserAgent: a.UserAgent,
		RequestID: a.RequestID,
	}
}

type Recorder struct {
	DB *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{DB: db}
}

// Record never fails the caller; the business write already happened.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.DB == nil {
		return
	}
	row := model.AuditLogModel{
		Action:      e.Action,
		Entity:      e.Entity,
		EntityID:    e.EntityID,
		Description: e.Description,
		OldData:     snapshot(e.Old),
		NewData:     snapshot(e.New),
		IP:          e.IP,
		UserAgent:   e.UserAgent,
		RequestID:   e.RequestID,
	}
	if e.UserID != uuid.Nil {
		id := e.UserID
		row.UserID = &id
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("[WARN] audit %s %s/%s not stored: %v", e.Action, e.Entity, e.EntityID, err)
	}
}

func snapshot(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		log.Printf("[WARN] audit snapshot marshal: %v", err)
		return nil
	}
	return datatypes.JSON(b)
}
