package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/pkg/enums"
)

// FulfillmentRecord pins exactly-once fulfillment. The unique intent_ref
// column rejects a second write for the same confirmed intent, which is what
// makes duplicate success callbacks safe.
type FulfillmentRecord struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IntentRef string                `gorm:"column:intent_ref;not null;uniqueIndex"`
	Kind      enums.FulfillmentKind `gorm:"column:kind;not null"`
	UserID    string                `gorm:"column:user_id;not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (FulfillmentRecord) TableName() string {
	return "fulfillment_records"
}
