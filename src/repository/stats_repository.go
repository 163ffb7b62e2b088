package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// DashboardStats are the headline counters shown on the overview page.
type DashboardStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalOrders      int64 `json:"totalOrders"`
	TotalAssets      int64 `json:"totalAssets"`
	TotalStrategies  int64 `json:"totalStrategies"`
	ActiveStrategies int64 `json:"activeStrategies"`
}

// TradingPair aggregates strategy and volume activity for one symbol.
type TradingPair struct {
	Symbol          string          `json:"symbol"`
	StrategyCount   int64           `json:"strategyCount"`
	UserCount       int64           `json:"userCount"`
	TotalVolume     decimal.Decimal `json:"totalVolume"`
	LatestTradeTime *time.Time      `json:"-"`
}

// PairUserStat is one row of the per-symbol volume leaderboard.
type PairUserStat struct {
	UserID                   uint            `gorm:"column:user_id" json:"userId"`
	Nickname                 *string         `json:"nickname"`
	UUID                     *string         `json:"uuid"`
	TotalAchievedTradeVolume decimal.Decimal `gorm:"column:total_achieved_trade_volume" json:"totalAchievedTradeVolume"`
	TodayAchievedTradeVolume decimal.Decimal `gorm:"column:today_achieved_trade_volume" json:"todayAchievedTradeVolume"`
	StrategyCount            int64           `gorm:"column:strategy_count" json:"strategyCount"`
}

// PairTotals aggregate the leaderboard across all pages.
type PairTotals struct {
	TotalUsers      int64           `gorm:"column:total_users" json:"totalUsers"`
	TotalVolume     decimal.Decimal `gorm:"column:total_volume" json:"totalVolume"`
	TotalStrategies int64           `gorm:"column:total_strategies" json:"totalStrategies"`
}

// InconsistencyRow flags one active-strategy binding whose user has no
// user_strategy_tracking record yet.
type InconsistencyRow struct {
	UserID             uint      `gorm:"column:user_id" json:"user_id"`
	Username           string    `json:"username"`
	Nickname           *string   `json:"nickname"`
	UUID               *string   `gorm:"column:uuid" json:"uuid"`
	Mobile             *string   `json:"mobile"`
	Email              *string   `json:"email"`
	UserStatus         string    `gorm:"column:user_status" json:"user_status"`
	StrategyID         uint      `gorm:"column:strategy_id" json:"strategy_id"`
	StrategyName       string    `gorm:"column:strategy_name" json:"strategy_name"`
	StrategySymbol     string    `gorm:"column:strategy_symbol" json:"strategy_symbol"`
	StrategyStatus     string    `gorm:"column:strategy_status" json:"strategy_status"`
	StartTime          time.Time `gorm:"column:start_time" json:"start_time"`
	EndTime            time.Time `gorm:"column:end_time" json:"end_time"`
	UserStrategyActive bool      `gorm:"column:user_strategy_active" json:"user_strategy_active"`
	BoundAt            time.Time `gorm:"column:user_strategy_created_at" json:"user_strategy_created_at"`
}

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository() *StatsRepository {
	logger.WithField("component", "StatsRepository").
		Info("Creating new StatsRepository with MainDB")

	return &StatsRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *StatsRepository) WithDB(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview gathers the headline counters. Counts run as separate queries;
// the tables are indexed on status so each is cheap.
func (r *StatsRepository) Overview(ctx context.Context) (*DashboardStats, error) {
	db := r.db.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&model.User{}).Where("status = ?", model.UserStatusActive)},
		{&stats.TotalOrders, db.Model(&model.Order{})},
		{&stats.TotalAssets, db.Model(&model.UserAsset{})},
		{&stats.TotalStrategies, db.Model(&model.Strategy{})},
		{&stats.ActiveStrategies, db.Model(&model.Strategy{}).Where("status = ?", model.StrategyStatusActive)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, dataErr("stats.overview", err)
		}
	}
	return stats, nil
}

// InconsistentTracking lists active users bound to active strategies that
// have no tracking row for the pair. Rows come back ordered by strategy then
// user so callers can group them deterministically.
func (r *StatsRepository) InconsistentTracking(ctx context.Context) ([]InconsistencyRow, error) {
	logger.WithFields(map[string]interface{}{
		"repo": "StatsRepository",
		"op":   "InconsistentTracking",
	}).Debug("Checking tracking consistency")

	var rows []InconsistencyRow
	err := r.db.WithContext(ctx).
		Table("strategies s").
		Select("us.user_id, us.is_active AS user_strategy_active, us.created_at AS user_strategy_created_at, u.username, u.nickname, u.uuid, u.mobile, u.email, u.status AS user_status, s.id AS strategy_id, s.name AS strategy_name, s.symbol AS strategy_symbol, s.status AS strategy_status, s.start_time, s.end_time").
		Joins("JOIN user_strategies us ON s.id = us.strategy_id").
		Joins("JOIN users u ON us.user_id = u.id AND u.status = ?", model.UserStatusActive).
		Joins("LEFT JOIN user_strategy_tracking ust ON us.user_id = ust.user_id AND us.strategy_id = ust.strategy_id").
		Where("s.status = ?", model.StrategyStatusActive).
		Where("us.is_active = ?", true).
		Where("ust.user_id IS NULL").
		Order("s.id, u.id").
		Scan(&rows).Error
	if err != nil {
		return nil, dataErr("stats.inconsistent_tracking", err)
	}
	return rows, nil
}

// TradingPairs lists the most recently active symbols with per-symbol
// strategy, user and volume aggregates.
func (r *StatsRepository) TradingPairs(ctx context.Context, limit int) ([]TradingPair, error) {
	if limit <= 0 {
		limit = 8
	}

	var pairs []TradingPair
	err := r.db.WithContext(ctx).
		Table("strategies s").
		Select("s.symbol, COUNT(DISTINCT s.id) AS strategy_count, COUNT(DISTINCT ust.user_id) AS user_count, SUM(ust.achieved_trade_volume) AS total_volume, MAX(ust.updated_at) AS latest_trade_time").
		Joins("LEFT JOIN user_strategy_tracking ust ON s.id = ust.strategy_id").
		Where("s.symbol IS NOT NULL AND s.symbol <> '' AND ust.achieved_trade_volume > 0").
		Group("s.symbol").
		Order("latest_trade_time DESC NULLS LAST, strategy_count DESC").
		Limit(limit).
		Scan(&pairs).Error
	if err != nil {
		return nil, dataErr("stats.trading_pairs", err)
	}
	return pairs, nil
}

// PairUserStats returns one leaderboard page for a symbol, plus the filtered
// user count and the totals across every page. search narrows by nickname.
func (r *StatsRepository) PairUserStats(ctx context.Context, symbol, search string, limit, offset int) ([]PairUserStat, int64, *PairTotals, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Table("strategies s").
			Joins("JOIN user_strategy_tracking ust ON s.id = ust.strategy_id").
			Joins("JOIN users u ON ust.user_id = u.id AND u.status = ?", model.UserStatusActive).
			Where("s.symbol = ?", symbol)
		if search != "" {
			q = q.Where("u.nickname ILIKE ?", "%"+search+"%")
		}
		return q
	}

	var total int64
	if err := base().Distinct("u.id").Count(&total).Error; err != nil {
		return nil, 0, nil, dataErr("stats.pair_users_count", err)
	}

	var rows []PairUserStat
	err := base().
		Select("u.id AS user_id, u.nickname, u.uuid, SUM(ust.achieved_trade_volume) AS total_achieved_trade_volume, SUM(CASE WHEN DATE(ust.updated_at) = CURRENT_DATE THEN ust.achieved_trade_volume ELSE 0 END) AS today_achieved_trade_volume, COUNT(*) AS strategy_count").
		Group("u.id, u.nickname, u.uuid").
		Order("total_achieved_trade_volume DESC, nickname ASC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, nil, dataErr("stats.pair_users", err)
	}

	var totals PairTotals
	err = base().
		Select("COUNT(DISTINCT u.id) AS total_users, COALESCE(SUM(ust.achieved_trade_volume), 0) AS total_volume, COUNT(*) AS total_strategies").
		Scan(&totals).Error
	if err != nil {
		return nil, 0, nil, dataErr("stats.pair_totals", err)
	}

	return rows, total, &totals, nil
}
