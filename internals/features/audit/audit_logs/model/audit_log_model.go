package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLogModel struct {
	ID          uuid.UUID      `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID      *uuid.UUID     `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	Action      string         `gorm:"column:action;type:varchar(60);not null;index" json:"action"`
	Entity      string         `gorm:"column:entity;type:varchar(60);index:idx_audit_entity" json:"entity,omitempty"`
	EntityID    string         `gorm:"column:entity_id;type:varchar(64);index:idx_audit_entity" json:"entity_id,omitempty"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	OldData     datatypes.JSON `gorm:"column:old_data" json:"old_data,omitempty"`
	NewData     datatypes.JSON `gorm:"column:new_data" json:"new_data,omitempty"`
	IP          string         `gorm:"column:ip;type:varchar(64)" json:"ip,omitempty"`
	UserAgent   string         `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	RequestID   string         `gorm:"column:request_id;type:varchar(40)" json:"request_id,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}
