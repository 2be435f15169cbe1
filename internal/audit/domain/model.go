package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	ActionLoginFailed      = "user.login_failed"
	ActionUserCreated      = "user.created"
	ActionUserUpdated      = "user.updated"
	ActionUserDeleted      = "user.deleted"
	ActionSaleFinalized    = "sale.finalized"
	ActionSaleDeleted      = "sale.deleted"
	ActionDayClosed        = "sale.day_closed"
	ActionSettingsUpdated  = "settings.updated"
	ActionStockAdjusted    = "product.stock_adjusted"
	ActionLicenseActivated = "license.activated"
	ActionStoreReset       = "store.reset"
)

// ActorSystem marks entries written without an authenticated user.
const ActorSystem = "system"

// AuditLog records an operator action on the store. Rows are append only and
// survive a full reset.
type AuditLog struct {
	ID         int64             `json:"id,string" gorm:"primaryKey"`
	ActorRole  string            `json:"actor_role" gorm:"type:text;not null"`
	ActorID    *int64            `json:"actor_id,omitempty,string"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index"`
	TargetType string            `json:"target_type" gorm:"type:varchar(32);not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"type:text"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// MaskSecret keeps the last group of a dash separated key, or its last four
// characters, so an entry can be matched to a key without storing it.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	tail := trimmed
	if i := strings.LastIndex(trimmed, "-"); i >= 0 && i < len(trimmed)-1 {
		tail = trimmed[i+1:]
	}
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	if tail == trimmed {
		return "****"
	}
	return "****" + tail
}
