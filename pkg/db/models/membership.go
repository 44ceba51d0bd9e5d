package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/pkg/enums"
)

// Membership records a purchased membership tier.
type Membership struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      string               `gorm:"column:user_id;not null;index"`
	Tier        enums.MembershipTier `gorm:"column:tier;not null"`
	AmountCents int64                `gorm:"column:amount_cents;not null"`
	IntentRef   string               `gorm:"column:intent_ref;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (Membership) TableName() string {
	return "memberships"
}
