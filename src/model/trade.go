package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
	TradeStatusFailed = "failed"
)

// Trade is an executed buy/sell pair tied to one strategy and one user.
// The sell leg is optional: an open trade is buy-only until it closes.
type Trade struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	StrategyID uint   `gorm:"not null;index" json:"strategy_id"`
	Symbol     string `gorm:"size:50;not null;index" json:"symbol"`
	Status     string `gorm:"size:30;not null;index" json:"status"`

	BuyOrderID       *string          `gorm:"size:100;column:buy_order_id" json:"buy_order_id"`
	BuyPrice         *decimal.Decimal `gorm:"type:numeric;column:buy_price" json:"buy_price"`
	BuyQuantity      *decimal.Decimal `gorm:"type:numeric;column:buy_quantity" json:"buy_quantity"`
	BuyQuoteQuantity decimal.Decimal  `gorm:"type:numeric;column:buy_quote_quantity" json:"buy_quote_quantity"`
	BuyTimestamp     *time.Time       `gorm:"column:buy_timestamp" json:"buy_timestamp"`

	SellOrderID     *string          `gorm:"size:100;column:sell_order_id" json:"sell_order_id"`
	SellPrice       *decimal.Decimal `gorm:"type:numeric;column:sell_price" json:"sell_price"`
	SellQuantity    *decimal.Decimal `gorm:"type:numeric;column:sell_quantity" json:"sell_quantity"`
	SellTargetPrice *decimal.Decimal `gorm:"type:numeric;column:sell_target_price" json:"sell_target_price"`
	SellTimestamp   *time.Time       `gorm:"column:sell_timestamp" json:"sell_timestamp"`

	PnL          *decimal.Decimal `gorm:"type:numeric;column:pnl" json:"pnl"`
	ErrorMessage *string          `gorm:"type:text;column:error_message" json:"error_message"`
	CreatedAt    time.Time        `gorm:"index:idx_trades_created_at,sort:desc" json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// TradeRow joins the owning strategy's name for list endpoints.
type TradeRow struct {
	Trade        `gorm:"embedded"`
	StrategyName *string `json:"strategy_name"`
}
