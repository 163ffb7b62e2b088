package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// TradeFilters are the recognized query filters for trade listings.
type TradeFilters struct {
	StrategyID uint
	UserID     uint
	Symbol     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

const DefaultTradeLimit = 1000

type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Search lists trades joined with the owning strategy name, newest first.
func (r *TradeRepository) Search(ctx context.Context, filters TradeFilters) ([]model.TradeRow, error) {
	logger.WithFields(map[string]interface{}{
		"repo":        "TradeRepository",
		"op":          "Search",
		"strategy_id": filters.StrategyID,
		"user_id":     filters.UserID,
	}).Debug("Searching trades")

	if filters.Limit <= 0 {
		filters.Limit = DefaultTradeLimit
	}

	query := r.db.WithContext(ctx).
		Table("trades t").
		Select("t.*, s.name AS strategy_name").
		Joins("LEFT JOIN strategies s ON t.strategy_id = s.id")

	if filters.StrategyID != 0 {
		query = query.Where("t.strategy_id = ?", filters.StrategyID)
	}
	if filters.UserID != 0 {
		query = query.Where("t.user_id = ?", filters.UserID)
	}
	if filters.Symbol != "" {
		query = query.Where("t.symbol = ?", filters.Symbol)
	}
	if filters.DateFrom != nil {
		query = query.Where("t.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("t.created_at <= ?", *filters.DateTo)
	}

	var rows []model.TradeRow
	err := query.
		Order("t.created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Scan(&rows).Error
	if err != nil {
		logger.WithField("repo", "TradeRepository").
			WithError(err).Error("Failed to search trades")
		return nil, dataErr("trades.search", err)
	}
	return rows, nil
}

// TradePageFilters drive the paginated trade listing. A numeric UserTerm
// matches user_id exactly; anything else substring-matches the id rendered
// as text, mirroring how operators paste partial ids from the exchange UI.
type TradePageFilters struct {
	Page       int
	PageSize   int
	UserTerm   string
	StrategyID uint
}

// TradePage is one page of trades plus the filtered total.
type TradePage struct {
	Rows  []model.Trade
	Total int64
}

// SearchPaginated returns one page of trades with a total count.
func (r *TradeRepository) SearchPaginated(ctx context.Context, filters TradePageFilters) (*TradePage, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}

	base := r.db.WithContext(ctx).Model(&model.Trade{})

	if term := filters.UserTerm; term != "" {
		if isNumeric(term) {
			base = base.Where("user_id = ?", term)
		} else {
			base = base.Where("user_id::text ILIKE ?", "%"+term+"%")
		}
	}
	if filters.StrategyID != 0 {
		base = base.Where("strategy_id = ?", filters.StrategyID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, dataErr("trades.count", err)
	}

	var rows []model.Trade
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(filters.PageSize).
		Offset((filters.Page - 1) * filters.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, dataErr("trades.search_paginated", err)
	}

	return &TradePage{Rows: rows, Total: total}, nil
}
