package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateTaxpayer = "CREATE_TAXPAYER"
	ActionUpdateTaxpayer = "UPDATE_TAXPAYER"
	ActionDeleteTaxpayer = "DELETE_TAXPAYER"
)

// AuditLog tracks Who, What, and When for record mutations. For deletions the
// Details payload carries the pre-delete snapshot; that snapshot is kept for
// audit purposes only and is never re-inserted into the taxpayers table.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil when the mutation came from an automated caller
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
