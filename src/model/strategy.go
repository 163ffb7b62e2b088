package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StrategyStatusActive    = "active"
	StrategyStatusPaused    = "paused"
	StrategyStatusInactive  = "inactive"
	StrategyStatusCompleted = "completed"
)

// ValidStrategyStatuses lists every status accepted by the update-status
// endpoint.
var ValidStrategyStatuses = []string{
	StrategyStatusActive,
	StrategyStatusInactive,
	StrategyStatusPaused,
	StrategyStatusCompleted,
}

// Strategy is a volume-building configuration scoped to one symbol.
// start_time < end_time is validated when the strategy is created; status
// flips afterwards do not re-check the window.
type Strategy struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	Name                string           `gorm:"size:255;not null" json:"name"`
	Symbol              string           `gorm:"size:50;not null;index" json:"symbol"`
	Status              string           `gorm:"size:30;not null;default:active;index" json:"status"`
	FundingType         string           `gorm:"size:50;column:funding_type" json:"funding_type"`
	FundingValue        decimal.Decimal  `gorm:"type:numeric;not null;column:funding_value" json:"funding_value"`
	ProfitMarginPercent *decimal.Decimal `gorm:"type:numeric;column:profit_margin_percent" json:"profit_margin_percent"`
	StopLossPercent     *decimal.Decimal `gorm:"type:numeric;column:stop_loss_percent" json:"stop_loss_percent"`
	Speed               *int             `json:"speed"`
	MaxTotalVolumeUSDT  decimal.Decimal  `gorm:"type:numeric;not null;column:max_total_volume_usdt" json:"max_total_volume_usdt"`
	AvgPrice            *decimal.Decimal `gorm:"type:numeric;column:avg_price" json:"avg_price"`
	StartTime           time.Time        `gorm:"not null;column:start_time" json:"start_time"`
	EndTime             time.Time        `gorm:"not null;column:end_time" json:"end_time"`
	CreatedAt           time.Time        `gorm:"index:idx_strategies_created_at,sort:desc" json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (Strategy) TableName() string {
	return "strategies"
}

// UserStrategy binds a user to a strategy. The pair is unique; re-binding an
// existing pair is a conflict.
type UserStrategy struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_user_strategy,unique" json:"user_id"`
	StrategyID uint      `gorm:"not null;index:idx_user_strategy,unique" json:"strategy_id"`
	IsActive   bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (UserStrategy) TableName() string {
	return "user_strategies"
}
