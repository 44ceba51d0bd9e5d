package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditTransaction is an append-only entry recorded with every credit grant.
type CreditTransaction struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      string    `gorm:"column:user_id;not null;index"`
	Credits     int64     `gorm:"column:credits;not null"`
	PackageName string    `gorm:"column:package_name;not null"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`
	IntentRef   string    `gorm:"column:intent_ref;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
