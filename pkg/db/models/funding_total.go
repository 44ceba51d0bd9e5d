package models

import "time"

// FundingTotal is the single-row running total behind the public funding goal.
type FundingTotal struct {
	ID          int       `gorm:"column:id;primaryKey"`
	AmountCents int64     `gorm:"column:amount_cents;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (FundingTotal) TableName() string {
	return "funding_totals"
}
