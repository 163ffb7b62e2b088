// Package refresher runs the periodic data refresh loop. Every tick it
// rebuilds the batch snapshot and pushes each dataset to the WebSocket
// clients, so dashboards converge even when they miss individual updates.
package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/service"
)

type Config struct {
	// IntervalSeconds is the gap between refresh ticks.
	IntervalSeconds int `envconfig:"REFRESH_INTERVAL_SECONDS" default:"120"`
}

func GetConfig() Config {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		logger.Panicf("Failed to read refresher config from env: %v", err)
	}
	return config
}

// Broadcaster is the outbound side of the refresher, satisfied by ws.Hub.
type Broadcaster interface {
	Broadcast(msgType string, data interface{})
}

// Refresher periodically re-fetches all datasets and broadcasts them. It also
// serves as the write paths' rebroadcast hook and owns the last-refresh
// timestamp consulted by the incremental endpoint.
type Refresher struct {
	data     *service.DataService
	hub      Broadcaster
	interval time.Duration

	mu          sync.RWMutex
	lastRefresh time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func New(data *service.DataService, hub Broadcaster, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	return &Refresher{
		data:     data,
		hub:      hub,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the refresh loop. The first tick fires after one full
// interval; handlers populate the cache on demand before that.
func (r *Refresher) Start(ctx context.Context) {
	logger.WithFields(map[string]interface{}{
		"component": "refresher",
		"interval":  r.interval.String(),
	}).Info("Starting data refresh loop")

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.refreshAll(ctx)
			case <-r.stop:
				logger.WithField("component", "refresher").
					Info("Data refresh loop stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the loop. Safe to call more than once.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// LastRefresh reports when a snapshot was last rebuilt. Zero until the first
// refresh or write-through completes.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh
}

func (r *Refresher) markRefreshed() {
	r.mu.Lock()
	r.lastRefresh = time.Now()
	r.mu.Unlock()
}

// refreshAll drops every cached result set, rebuilds the snapshot and pushes
// each dataset. A failed tick is logged and skipped; the next tick retries.
func (r *Refresher) refreshAll(ctx context.Context) {
	started := time.Now()

	r.data.InvalidateAll()
	snapshot, err := r.data.FetchAll(ctx)
	if err != nil {
		logger.WithField("component", "refresher").
			WithError(err).Error("Scheduled refresh failed")
		return
	}
	r.markRefreshed()

	for _, table := range service.Tables {
		r.hub.Broadcast(table+"_updated", snapshot.Dataset(table))
	}

	logger.WithFields(map[string]interface{}{
		"component": "refresher",
		"took":      time.Since(started).String(),
	}).Info("Scheduled refresh completed")
}

// NotifyChanged rebroadcasts one dataset after a write. The write path has
// already invalidated the table's cache, so the fetch observes the new row.
func (r *Refresher) NotifyChanged(ctx context.Context, table string) {
	snapshot, err := r.data.FetchAll(ctx)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "refresher",
			"table":     table,
		}).WithError(err).Error("Post-write refresh failed")
		return
	}
	r.markRefreshed()

	r.hub.Broadcast(table+"_updated", snapshot.Dataset(table))
}
