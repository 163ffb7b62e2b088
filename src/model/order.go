package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"
)

const (
	OrderStatusPendingSubmit   = "PENDING_SUBMIT"
	OrderStatusNew             = "NEW"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusFilled          = "FILLED"
	OrderStatusCanceled        = "CANCELED"
	OrderStatusRejected        = "REJECTED"
)

// Order is a raw exchange-order snapshot. Rows are written by the external
// sync process; this service only reads them.
type Order struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UserID            uint             `gorm:"not null;index" json:"user_id"`
	UUID              string           `gorm:"size:60;column:uuid" json:"uuid"`
	Email             *string          `gorm:"size:255" json:"email"`
	ExchangeOrderID   *string          `gorm:"size:100;column:exchange_order_id" json:"exchange_order_id"`
	Symbol            string           `gorm:"size:50;not null;index" json:"symbol"`
	BaseAsset         string           `gorm:"size:30;column:base_asset" json:"base_asset"`
	QuoteAsset        string           `gorm:"size:30;column:quote_asset" json:"quote_asset"`
	Side              string           `gorm:"size:10;not null" json:"side"`
	QuantityRequested decimal.Decimal  `gorm:"type:numeric;column:quantity_requested" json:"quantity_requested"`
	PriceRequested    decimal.Decimal  `gorm:"type:numeric;column:price_requested" json:"price_requested"`
	QuantityExecuted  decimal.Decimal  `gorm:"type:numeric;column:quantity_executed" json:"quantity_executed"`
	PriceExecuted     *decimal.Decimal `gorm:"type:numeric;column:price_executed" json:"price_executed"`
	Status            string           `gorm:"size:30;not null;index" json:"status"`
	APIResponseCode   *string          `gorm:"size:30;column:api_response_code" json:"api_response_code"`
	APIResponseMsg    *string          `gorm:"type:text;column:api_response_message" json:"api_response_message"`
	ExchangeTimestamp *time.Time       `gorm:"column:exchange_timestamp" json:"exchange_timestamp"`
	CreatedAt         time.Time        `gorm:"index:idx_orders_created_at,sort:desc" json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderRow joins the owning user's username for list endpoints.
type OrderRow struct {
	Order    `gorm:"embedded"`
	Username *string `json:"username"`
}
