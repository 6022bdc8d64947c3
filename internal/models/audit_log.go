// internal/models/audit_log.go
package models

import (
	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *string    `json:"user_id" gorm:"size:64;index"`
	SessionID    *uuid.UUID `json:"session_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	Status       int        `json:"status"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
}
