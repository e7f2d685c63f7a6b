package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot persists the last quote fetched for an asset so the price
// cache can warm-start after a restart.
type PriceSnapshot struct {
	Base
	Asset      string          `gorm:"size:16;not null;index" json:"asset"`
	Source     string          `gorm:"size:32;not null" json:"source"`
	PriceUSD   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"price_usd"`
	RecordedAt time.Time       `gorm:"not null" json:"recorded_at"`
}
