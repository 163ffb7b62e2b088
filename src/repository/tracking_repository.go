package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// TrackingFilters are the recognized query filters for tracking listings.
type TrackingFilters struct {
	UserID     uint
	StrategyID uint
	Status     string
	Limit      int
	Offset     int
}

const DefaultTrackingLimit = 500

type TrackingRepository struct {
	db *gorm.DB
}

func NewTrackingRepository() *TrackingRepository {
	logger.WithField("component", "TrackingRepository").
		Info("Creating new TrackingRepository with MainDB")

	return &TrackingRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TrackingRepository) WithDB(db *gorm.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// Search lists tracking rows joined with username and strategy name, newest
// first. Strategy status and window are deliberately not filtered here; the
// frontend decides what to surface.
func (r *TrackingRepository) Search(ctx context.Context, filters TrackingFilters) ([]model.TrackingRow, error) {
	logger.WithFields(map[string]interface{}{
		"repo":        "TrackingRepository",
		"op":          "Search",
		"user_id":     filters.UserID,
		"strategy_id": filters.StrategyID,
		"status":      filters.Status,
	}).Debug("Searching user strategy tracking")

	if filters.Limit <= 0 {
		filters.Limit = DefaultTrackingLimit
	}

	query := r.db.WithContext(ctx).
		Table("user_strategy_tracking ust").
		Select("ust.*, u.username, s.name AS strategy_name").
		Joins("LEFT JOIN users u ON ust.user_id = u.id").
		Joins("LEFT JOIN strategies s ON ust.strategy_id = s.id")

	if filters.Status != "" {
		query = query.Where("ust.status = ?", filters.Status)
	}
	if filters.UserID != 0 {
		query = query.Where("ust.user_id = ?", filters.UserID)
	}
	if filters.StrategyID != 0 {
		query = query.Where("ust.strategy_id = ?", filters.StrategyID)
	}

	var rows []model.TrackingRow
	err := query.
		Order("ust.created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Scan(&rows).Error
	if err != nil {
		logger.WithField("repo", "TrackingRepository").
			WithError(err).Error("Failed to search tracking rows")
		return nil, dataErr("user_strategy_tracking.search", err)
	}
	return rows, nil
}

// Exists reports whether a tracking row exists for the user/strategy pair.
func (r *TrackingRepository) Exists(ctx context.Context, userID, strategyID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserStrategyTracking{}).
		Where("user_id = ? AND strategy_id = ?", userID, strategyID).
		Count(&count).Error
	if err != nil {
		return false, dataErr("user_strategy_tracking.exists", err)
	}
	return count > 0, nil
}

// UpdateStatus updates the status of one user/strategy tracking row.
func (r *TrackingRepository) UpdateStatus(ctx context.Context, userID, strategyID uint, status string) error {
	err := r.db.WithContext(ctx).
		Model(&model.UserStrategyTracking{}).
		Where("user_id = ? AND strategy_id = ?", userID, strategyID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return dataErr("user_strategy_tracking.update_status", err)
	}
	return nil
}

type UserStrategyRepository struct {
	db *gorm.DB
}

func NewUserStrategyRepository() *UserStrategyRepository {
	logger.WithField("component", "UserStrategyRepository").
		Info("Creating new UserStrategyRepository with MainDB")

	return &UserStrategyRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *UserStrategyRepository) WithDB(db *gorm.DB) *UserStrategyRepository {
	return &UserStrategyRepository{db: db}
}

// Exists reports whether the user is already bound to the strategy.
func (r *UserStrategyRepository) Exists(ctx context.Context, userID, strategyID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserStrategy{}).
		Where("user_id = ? AND strategy_id = ?", userID, strategyID).
		Count(&count).Error
	if err != nil {
		return false, dataErr("user_strategies.exists", err)
	}
	return count > 0, nil
}

// Create binds a user to a strategy.
func (r *UserStrategyRepository) Create(ctx context.Context, binding *model.UserStrategy) error {
	if err := r.db.WithContext(ctx).Create(binding).Error; err != nil {
		return dataErr("user_strategies.create", err)
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "UserStrategyRepository",
		"op":          "Create",
		"user_id":     binding.UserID,
		"strategy_id": binding.StrategyID,
	}).Info("User strategy binding created")
	return nil
}
