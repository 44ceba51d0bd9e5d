package models

import (
	"time"
)

// CreditAccount tracks a user's spendable credit balance.
type CreditAccount struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CreditAccount) TableName() string {
	return "credit_accounts"
}
