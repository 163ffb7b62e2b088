package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// AssetFilters are the recognized query filters for asset listings. UserID
// is resolved to the user's exchange uid via a subquery because user_assets
// is keyed by uuid.
type AssetFilters struct {
	UserID uint
	Asset  string
	Limit  int
	Offset int
}

const DefaultAssetLimit = 500

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository() *AssetRepository {
	logger.WithField("component", "AssetRepository").
		Info("Creating new AssetRepository with MainDB")

	return &AssetRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *AssetRepository) WithDB(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Search lists balance snapshots joined with the owning username, most
// recently synced first.
func (r *AssetRepository) Search(ctx context.Context, filters AssetFilters) ([]model.UserAssetRow, error) {
	logger.WithFields(map[string]interface{}{
		"repo":    "AssetRepository",
		"op":      "Search",
		"user_id": filters.UserID,
		"asset":   filters.Asset,
	}).Debug("Searching user assets")

	if filters.Limit <= 0 {
		filters.Limit = DefaultAssetLimit
	}

	query := r.db.WithContext(ctx).
		Table("user_assets ua").
		Select("ua.*, u.username").
		Joins("LEFT JOIN users u ON ua.uuid = u.uuid")

	if filters.UserID != 0 {
		query = query.Where("ua.uuid = (SELECT uuid FROM users WHERE id = ?)", filters.UserID)
	}
	if filters.Asset != "" {
		query = query.Where("ua.asset = ?", filters.Asset)
	}

	var rows []model.UserAssetRow
	err := query.
		Order("ua.last_updated_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Scan(&rows).Error
	if err != nil {
		logger.WithField("repo", "AssetRepository").
			WithError(err).Error("Failed to search user assets")
		return nil, dataErr("user_assets.search", err)
	}
	return rows, nil
}

// LatestUSDTValuation returns the newest USDT funding-wallet valuation for
// one exchange uid. Returns zero with found=false when no snapshot exists.
func (r *AssetRepository) LatestUSDTValuation(ctx context.Context, uuid string) (decimal.Decimal, bool, error) {
	var asset model.UserAsset
	err := r.db.WithContext(ctx).
		Where("uuid = ? AND asset = ? AND wallet_type = ?", uuid, "USDT", model.WalletTypeFunding).
		Order("last_updated_at DESC").
		First(&asset).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, dataErr("user_assets.latest_usdt", err)
	}
	return asset.Valuation, true, nil
}

// UserBalance pairs a dashboard user with its latest USDT valuation.
type UserBalance struct {
	UserID      uint            `json:"userId"`
	UUID        *string         `json:"uuid"`
	USDTBalance decimal.Decimal `json:"usdtBalance"`
}

// USDTBalances resolves the USDT funding-wallet valuation for a batch of
// user ids in one query. Users without a snapshot report zero.
func (r *AssetRepository) USDTBalances(ctx context.Context, userIDs []uint) ([]UserBalance, error) {
	var balances []UserBalance
	err := r.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.uuid, COALESCE(ua.valuation, 0) AS usdt_balance").
		Joins("LEFT JOIN user_assets ua ON u.uuid = ua.uuid AND ua.asset = ? AND ua.wallet_type = ?", "USDT", model.WalletTypeFunding).
		Where("u.id IN ?", userIDs).
		Order("u.id").
		Scan(&balances).Error
	if err != nil {
		return nil, dataErr("user_assets.usdt_balances", err)
	}
	return balances, nil
}
