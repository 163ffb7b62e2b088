// Package service is the cache-wrapped data access layer. Every read goes
// through the TTL cache; every write invalidates the affected table's cached
// result sets before touching the database.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"alphamonitor/src/cache"
	"alphamonitor/src/model"
	"alphamonitor/src/repository"
)

// Dataset names double as cache key prefixes and as the table tags carried
// by push messages and incremental updates.
const (
	TableUsers      = "users"
	TableOrders     = "orders"
	TableUserAssets = "user_assets"
	TableStrategies = "strategies"
	TableTrades     = "trades"
	TableTracking   = "user_strategy_tracking"
)

// Tables lists the six broadcast datasets in their canonical order.
var Tables = []string{
	TableUsers,
	TableOrders,
	TableUserAssets,
	TableStrategies,
	TableTrades,
	TableTracking,
}

// Per-dataset TTLs: users move slowly, the trading tables churn, and the
// batch snapshot sits in between so the refresh loop re-queries every other
// tick at most.
const (
	UsersTTL    = 5 * time.Minute
	VolatileTTL = time.Minute
	BatchTTL    = 2 * time.Minute
	StatsTTL    = time.Minute
)

const batchPrefix = "all_data"
const statsKey = "optimized_stats"

// Snapshot is the full six-dataset payload served by the batch endpoint and
// re-fetched by the refresh loop.
type Snapshot struct {
	Users      []model.UserRow      `json:"users"`
	Orders     []model.OrderRow     `json:"orders"`
	UserAssets []model.UserAssetRow `json:"userAssets"`
	Strategies []model.Strategy     `json:"strategies"`
	Trades     []model.TradeRow     `json:"trades"`
	Tracking   []model.TrackingRow  `json:"userStrategyTracking"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Dataset returns the snapshot slice for one table tag.
func (s *Snapshot) Dataset(table string) interface{} {
	switch table {
	case TableUsers:
		return s.Users
	case TableOrders:
		return s.Orders
	case TableUserAssets:
		return s.UserAssets
	case TableStrategies:
		return s.Strategies
	case TableTrades:
		return s.Trades
	case TableTracking:
		return s.Tracking
	}
	return nil
}

// DataService owns the read path of the dashboard. Handlers never touch the
// repositories directly for list queries.
type DataService struct {
	cache      *cache.Store
	users      *repository.UserRepository
	orders     *repository.OrderRepository
	assets     *repository.AssetRepository
	strategies *repository.StrategyRepository
	trades     *repository.TradeRepository
	tracking   *repository.TrackingRepository
	stats      *repository.StatsRepository
}

func New(
	store *cache.Store,
	users *repository.UserRepository,
	orders *repository.OrderRepository,
	assets *repository.AssetRepository,
	strategies *repository.StrategyRepository,
	trades *repository.TradeRepository,
	tracking *repository.TrackingRepository,
	stats *repository.StatsRepository,
) *DataService {
	return &DataService{
		cache:      store,
		users:      users,
		orders:     orders,
		assets:     assets,
		strategies: strategies,
		trades:     trades,
		tracking:   tracking,
		stats:      stats,
	}
}

// cacheKey serializes a filter struct into a deterministic key. Filter
// structs marshal with fixed field order, so equal filters yield equal keys.
func cacheKey(prefix string, filters interface{}) string {
	encoded, err := json.Marshal(filters)
	if err != nil {
		// Filter structs are plain data; this cannot happen in practice.
		return fmt.Sprintf("%s_unkeyed_%v", prefix, filters)
	}
	return fmt.Sprintf("%s_%s", prefix, encoded)
}

// Users lists users through the cache.
func (s *DataService) Users(ctx context.Context, filters repository.UserFilters) ([]model.UserRow, error) {
	key := cacheKey(TableUsers, filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.UserRow), nil
	}

	rows, err := s.users.Search(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rows, UsersTTL)
	return rows, nil
}

// Orders lists order snapshots through the cache.
func (s *DataService) Orders(ctx context.Context, filters repository.OrderFilters) ([]model.OrderRow, error) {
	key := cacheKey(TableOrders, filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.OrderRow), nil
	}

	rows, err := s.orders.Search(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rows, VolatileTTL)
	return rows, nil
}

// UserAssets lists balance snapshots through the cache.
func (s *DataService) UserAssets(ctx context.Context, filters repository.AssetFilters) ([]model.UserAssetRow, error) {
	key := cacheKey(TableUserAssets, filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.UserAssetRow), nil
	}

	rows, err := s.assets.Search(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rows, VolatileTTL)
	return rows, nil
}

// Strategies lists strategies through the cache.
func (s *DataService) Strategies(ctx context.Context, filters repository.StrategyFilters) ([]model.Strategy, error) {
	key := cacheKey(TableStrategies, filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.Strategy), nil
	}

	rows, err := s.strategies.Search(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rows, VolatileTTL)
	return rows, nil
}

// Trades lists trades through the cache.
func (s *DataService) Trades(ctx context.Context, filters repository.TradeFilters) ([]model.TradeRow, error) {
	key := cacheKey(TableTrades, filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.TradeRow), nil
	}

	rows, err := s.trades.Search(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rows, VolatileTTL)
	return rows, nil
}

// Tracking lists per-user strategy progress through the cache.
func (s *DataService) Tracking(ctx context.Context, filters repository.TrackingFilters) ([]model.TrackingRow, error) {
	key := cacheKey(TableTracking, filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.TrackingRow), nil
	}

	rows, err := s.tracking.Search(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, rows, VolatileTTL)
	return rows, nil
}

// FetchAll loads all six datasets in parallel, served from and stored into
// the cache as one snapshot. The per-dataset accessors are reused so their
// individual caches warm up too.
func (s *DataService) FetchAll(ctx context.Context) (*Snapshot, error) {
	if cached, ok := s.cache.Get(batchPrefix); ok {
		return cached.(*Snapshot), nil
	}

	started := time.Now()
	snapshot := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snapshot.Users, err = s.Users(gctx, repository.UserFilters{Limit: 1000})
		return err
	})
	g.Go(func() (err error) {
		snapshot.Orders, err = s.Orders(gctx, repository.OrderFilters{Limit: 500})
		return err
	})
	g.Go(func() (err error) {
		snapshot.UserAssets, err = s.UserAssets(gctx, repository.AssetFilters{Limit: 500})
		return err
	})
	g.Go(func() (err error) {
		snapshot.Strategies, err = s.Strategies(gctx, repository.StrategyFilters{Limit: 10000})
		return err
	})
	g.Go(func() (err error) {
		snapshot.Trades, err = s.Trades(gctx, repository.TradeFilters{Limit: 1000})
		return err
	})
	g.Go(func() (err error) {
		snapshot.Tracking, err = s.Tracking(gctx, repository.TrackingFilters{Limit: 500})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot.Timestamp = time.Now()
	s.cache.Set(batchPrefix, snapshot, BatchTTL)

	logger.WithFields(map[string]interface{}{
		"component": "DataService",
		"took":      time.Since(started).String(),
	}).Debug("Batch snapshot fetched")

	return snapshot, nil
}

// Stats serves the overview counters with a short cache.
func (s *DataService) Stats(ctx context.Context) (*repository.DashboardStats, error) {
	if cached, ok := s.cache.Get(statsKey); ok {
		return cached.(*repository.DashboardStats), nil
	}

	stats, err := s.stats.Overview(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(statsKey, stats, StatsTTL)
	return stats, nil
}

// Invalidate drops every cached result set of one table, plus the batch
// snapshot and stats that embed it. Write paths call this before writing so
// the next read observes the new row.
func (s *DataService) Invalidate(table string) {
	removed := s.cache.DeletePrefix(table + "_")
	removed += s.cache.DeletePrefix(batchPrefix)
	s.cache.Delete(statsKey)

	logger.WithFields(map[string]interface{}{
		"component": "DataService",
		"table":     table,
		"removed":   removed,
	}).Debug("Cache invalidated")
}

// InvalidateAll clears every dataset cache.
func (s *DataService) InvalidateAll() {
	for _, table := range Tables {
		s.cache.DeletePrefix(table + "_")
	}
	s.cache.DeletePrefix(batchPrefix)
	s.cache.Delete(statsKey)
}
