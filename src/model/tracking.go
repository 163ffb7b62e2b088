package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TrackingStatusActive    = "active"
	TrackingStatusPaused    = "paused"
	TrackingStatusCompleted = "completed"
	TrackingStatusCancelled = "cancelled"
)

var ValidTrackingStatuses = []string{
	TrackingStatusActive,
	TrackingStatusPaused,
	TrackingStatusCompleted,
	TrackingStatusCancelled,
}

// UserStrategyTracking carries the running totals of one user executing one
// strategy. Its status is independent of the parent strategy's status: a
// paused strategy can still hold active tracking rows and vice versa.
type UserStrategyTracking struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"not null;index" json:"user_id"`
	StrategyID          uint            `gorm:"not null;index" json:"strategy_id"`
	InitialBalance      decimal.Decimal `gorm:"type:numeric;column:initial_balance" json:"initial_balance"`
	CurrentBalance      decimal.Decimal `gorm:"type:numeric;column:current_balance" json:"current_balance"`
	ConsumedAmount      decimal.Decimal `gorm:"type:numeric;column:consumed_amount" json:"consumed_amount"`
	AchievedTradeVolume decimal.Decimal `gorm:"type:numeric;column:achieved_trade_volume" json:"achieved_trade_volume"`
	FeeBufferQuantity   decimal.Decimal `gorm:"type:numeric;column:fee_buffer_quantity" json:"fee_buffer_quantity"`
	Status              string          `gorm:"size:30;not null;default:active;index" json:"status"`
	CreatedAt           time.Time       `gorm:"index:idx_ust_created_at,sort:desc" json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (UserStrategyTracking) TableName() string {
	return "user_strategy_tracking"
}

var oneHundred = decimal.NewFromInt(100)

// Progress returns achieved volume as a percentage of the strategy's volume
// cap, clamped to [0, 100]. A zero cap yields zero.
func (t *UserStrategyTracking) Progress(maxTotalVolumeUSDT decimal.Decimal) decimal.Decimal {
	if maxTotalVolumeUSDT.IsZero() {
		return decimal.Zero
	}
	pct := t.AchievedTradeVolume.Div(maxTotalVolumeUSDT).Mul(oneHundred)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(oneHundred) {
		return oneHundred
	}
	return pct
}

// TrackingRow is the tracking shape served by list endpoints, joined with
// the owning user and strategy names.
type TrackingRow struct {
	UserStrategyTracking `gorm:"embedded"`
	Username             *string `json:"username"`
	StrategyName         *string `json:"strategy_name"`
}
