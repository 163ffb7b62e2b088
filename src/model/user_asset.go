package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const WalletTypeFunding = "FUNDING"

// UserAsset is a per-wallet balance snapshot keyed by the exchange uid
// (users.uuid), not by users.id. Written by the external sync process.
type UserAsset struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UUID          string          `gorm:"size:60;not null;index;column:uuid" json:"uuid"`
	Email         *string         `gorm:"size:255" json:"email"`
	Asset         string          `gorm:"size:30;not null" json:"asset"`
	WalletType    string          `gorm:"size:30;column:wallet_type" json:"wallet_type"`
	Available     decimal.Decimal `gorm:"type:numeric" json:"available"`
	Locked        decimal.Decimal `gorm:"type:numeric" json:"locked"`
	Frozen        decimal.Decimal `gorm:"type:numeric" json:"frozen"`
	Withdrawing   decimal.Decimal `gorm:"type:numeric" json:"withdrawing"`
	Valuation     decimal.Decimal `gorm:"type:numeric" json:"valuation"`
	LastUpdatedAt time.Time       `gorm:"index:idx_user_assets_updated_at,sort:desc;column:last_updated_at" json:"last_updated_at"`
}

func (UserAsset) TableName() string {
	return "user_assets"
}

// UserAssetRow joins the owning user's username for list endpoints.
type UserAssetRow struct {
	UserAsset `gorm:"embedded"`
	Username  *string `json:"username"`
}
