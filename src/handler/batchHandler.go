package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/repository"
	"alphamonitor/src/service"
)

type snapshotSource interface {
	FetchAll(ctx context.Context) (*service.Snapshot, error)
}

type refreshClock interface {
	LastRefresh() time.Time
}

type statsSource interface {
	Stats(ctx context.Context) (*repository.DashboardStats, error)
}

// BatchAllHandler serves all six datasets in one response.
func BatchAllHandler(data snapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := data.FetchAll(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to fetch batch snapshot")
			writeError(w, http.StatusInternalServerError, "批量获取数据失败")
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

type incrementalUpdate struct {
	Table     string      `json:"table"`
	Operation string      `json:"operation"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// IncrementalHandler serves polling clients. Updates carry whole datasets,
// not row deltas: they are only returned on the first poll (since=0) or when
// a refresh happened after the client's cursor, so the payload stays bounded
// by poll frequency rather than by churn.
func IncrementalHandler(data snapshotSource, clock refreshClock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := int64(0)
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err == nil {
				since = parsed
			}
		}

		lastRefresh := clock.LastRefresh()
		lastRefreshMillis := int64(0)
		if !lastRefresh.IsZero() {
			lastRefreshMillis = lastRefresh.UnixMilli()
		}

		updates := []incrementalUpdate{}
		if since == 0 || lastRefreshMillis > since {
			snapshot, err := data.FetchAll(r.Context())
			if err != nil {
				logger.WithError(err).Error("failed to fetch incremental snapshot")
				writeError(w, http.StatusInternalServerError, "获取增量更新失败")
				return
			}
			for _, table := range service.Tables {
				updates = append(updates, incrementalUpdate{
					Table:     table,
					Operation: "update",
					Data:      snapshot.Dataset(table),
					Timestamp: lastRefreshMillis,
				})
			}
		}

		lastUpdateTime := lastRefreshMillis
		if lastUpdateTime == 0 {
			lastUpdateTime = time.Now().UnixMilli()
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"updates":        updates,
			"lastUpdateTime": lastUpdateTime,
		})
	}
}

// StatsHandler serves the cached overview counters.
func StatsHandler(data statsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := data.Stats(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to fetch dashboard stats")
			writeError(w, http.StatusInternalServerError, "获取优化统计数据失败")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
