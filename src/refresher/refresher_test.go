package refresher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alphamonitor/src/cache"
	"alphamonitor/src/database"
	"alphamonitor/src/model"
	"alphamonitor/src/repository"
	"alphamonitor/src/service"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	types []string
}

func (b *recordingBroadcaster) Broadcast(msgType string, data interface{}) {
	b.mu.Lock()
	b.types = append(b.types, msgType)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.types...)
}

func newTestData(t *testing.T) *service.DataService {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, db.Create(&model.User{Username: "alice", PasswordHash: "x", Status: model.UserStatusActive}).Error)
	require.NoError(t, db.Create(&model.Strategy{
		Name:               "btc-volume",
		Symbol:             "BTCUSDT",
		Status:             model.StrategyStatusActive,
		FundingType:        "fixed",
		FundingValue:       decimal.NewFromInt(100),
		MaxTotalVolumeUSDT: decimal.NewFromInt(10000),
		StartTime:          time.Now(),
		EndTime:            time.Now().Add(time.Hour),
	}).Error)

	return service.New(
		cache.New(cache.DefaultSweepInterval),
		(&repository.UserRepository{}).WithDB(db),
		(&repository.OrderRepository{}).WithDB(db),
		(&repository.AssetRepository{}).WithDB(db),
		(&repository.StrategyRepository{}).WithDB(db),
		(&repository.TradeRepository{}).WithDB(db),
		(&repository.TrackingRepository{}).WithDB(db),
		(&repository.StatsRepository{}).WithDB(db),
	)
}

func TestRefresherNotifyChanged(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	r := New(newTestData(t), broadcaster, time.Hour)

	require.True(t, r.LastRefresh().IsZero())

	r.NotifyChanged(context.Background(), service.TableStrategies)

	types := broadcaster.seen()
	require.Len(t, types, 1)
	assert.Equal(t, "strategies_updated", types[0])
	assert.False(t, r.LastRefresh().IsZero())
}

func TestRefresherLoopBroadcastsEveryDataset(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	r := New(newTestData(t), broadcaster, 20*time.Millisecond)

	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return len(broadcaster.seen()) >= len(service.Tables)
	}, 2*time.Second, 10*time.Millisecond)

	seen := make(map[string]bool)
	for _, msgType := range broadcaster.seen() {
		seen[msgType] = true
	}
	for _, table := range service.Tables {
		assert.True(t, seen[table+"_updated"], "missing broadcast for %s", table)
	}
}

func TestRefresherStopHaltsLoop(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	r := New(newTestData(t), broadcaster, 20*time.Millisecond)

	r.Start(context.Background())
	require.Eventually(t, func() bool {
		return len(broadcaster.seen()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop() // idempotent

	drained := len(broadcaster.seen())
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, len(broadcaster.seen()), drained+len(service.Tables))
}

func TestGetConfigDefaults(t *testing.T) {
	config := GetConfig()
	assert.Equal(t, 120, config.IntervalSeconds)
}
