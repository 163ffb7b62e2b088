package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// StrategyFilters are the recognized query filters for strategy listings.
type StrategyFilters struct {
	Status string
	Symbol string
	Limit  int
	Offset int
}

type StrategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository() *StrategyRepository {
	logger.WithField("component", "StrategyRepository").
		Info("Creating new StrategyRepository with MainDB")

	return &StrategyRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *StrategyRepository) WithDB(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

// Search lists strategies newest first.
func (r *StrategyRepository) Search(ctx context.Context, filters StrategyFilters) ([]model.Strategy, error) {
	logger.WithFields(map[string]interface{}{
		"repo":   "StrategyRepository",
		"op":     "Search",
		"status": filters.Status,
	}).Debug("Searching strategies")

	query := r.db.WithContext(ctx).Model(&model.Strategy{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Symbol != "" {
		query = query.Where("symbol = ?", filters.Symbol)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var strategies []model.Strategy
	if err := query.Find(&strategies).Error; err != nil {
		logger.WithField("repo", "StrategyRepository").
			WithError(err).Error("Failed to search strategies")
		return nil, dataErr("strategies.search", err)
	}
	return strategies, nil
}

func (r *StrategyRepository) Create(ctx context.Context, strategy *model.Strategy) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "StrategyRepository",
		"op":     "Create",
		"name":   strategy.Name,
		"symbol": strategy.Symbol,
	}).Debug("Creating strategy")

	if err := r.db.WithContext(ctx).Create(strategy).Error; err != nil {
		logger.WithField("repo", "StrategyRepository").
			WithError(err).Error("Failed to create strategy")
		return dataErr("strategies.create", err)
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "StrategyRepository",
		"op":          "Create",
		"strategy_id": strategy.ID,
	}).Info("Strategy created successfully")
	return nil
}

// FindByID fetches a strategy by primary key. Returns (nil, nil) when absent.
func (r *StrategyRepository) FindByID(ctx context.Context, id uint) (*model.Strategy, error) {
	var strategy model.Strategy
	err := r.db.WithContext(ctx).First(&strategy, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dataErr("strategies.find_by_id", err)
	}
	return &strategy, nil
}

// UpdateStatus updates only the status of the given strategy.
func (r *StrategyRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	err := r.db.WithContext(ctx).
		Model(&model.Strategy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return dataErr("strategies.update_status", err)
	}
	return nil
}
