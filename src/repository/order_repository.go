package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// OrderFilters are the recognized query filters for order listings.
type OrderFilters struct {
	UserID   uint
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// DefaultOrderLimit caps unfiltered order listings; the table grows fast.
const DefaultOrderLimit = 500

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Search lists order snapshots joined with the owning username, newest first.
func (r *OrderRepository) Search(ctx context.Context, filters OrderFilters) ([]model.OrderRow, error) {
	logger.WithFields(map[string]interface{}{
		"repo":    "OrderRepository",
		"op":      "Search",
		"user_id": filters.UserID,
		"status":  filters.Status,
	}).Debug("Searching orders")

	if filters.Limit <= 0 {
		filters.Limit = DefaultOrderLimit
	}

	query := r.db.WithContext(ctx).
		Table("orders o").
		Select("o.*, u.username").
		Joins("LEFT JOIN users u ON o.user_id = u.id")

	if filters.UserID != 0 {
		query = query.Where("o.user_id = ?", filters.UserID)
	}
	if filters.Status != "" {
		query = query.Where("o.status = ?", filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("o.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("o.created_at <= ?", *filters.DateTo)
	}

	var rows []model.OrderRow
	err := query.
		Order("o.created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Scan(&rows).Error
	if err != nil {
		logger.WithField("repo", "OrderRepository").
			WithError(err).Error("Failed to search orders")
		return nil, dataErr("orders.search", err)
	}
	return rows, nil
}
