package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
	"alphamonitor/src/service"
)

type trackingLister interface {
	Tracking(ctx context.Context, filters repository.TrackingFilters) ([]model.TrackingRow, error)
}

type trackingStore interface {
	Exists(ctx context.Context, userID, strategyID uint) (bool, error)
	UpdateStatus(ctx context.Context, userID, strategyID uint, status string) error
}

// TrackingFilteredHandler lists per-user strategy progress through the cache.
func TrackingFilteredHandler(data trackingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := data.Tracking(r.Context(), repository.TrackingFilters{
			UserID:     queryUint(r, "userId"),
			StrategyID: queryUint(r, "strategyId"),
			Status:     r.URL.Query().Get("status"),
			Limit:      queryInt(r, "limit", 0),
			Offset:     queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list tracking rows")
			writeError(w, http.StatusInternalServerError, "获取用户策略跟踪数据失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// UpdateTrackingStatusHandler flips one tracking row's status. The tracking
// status is independent of the parent strategy's status.
func UpdateTrackingStatusHandler(tracking trackingStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			UserID     uint   `json:"userId"`
			StrategyID uint   `json:"strategyId"`
			Status     string `json:"status"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.UserID == 0 || payload.StrategyID == 0 || payload.Status == "" {
			writeError(w, http.StatusBadRequest, "用户ID、策略ID和状态为必填字段")
			return
		}
		if !statusAllowed(payload.Status, model.ValidTrackingStatuses) {
			writeError(w, http.StatusBadRequest, "无效的状态值")
			return
		}

		exists, err := tracking.Exists(r.Context(), payload.UserID, payload.StrategyID)
		if err != nil {
			logger.WithError(err).Error("failed to check tracking row")
			writeError(w, http.StatusInternalServerError, "更新用户策略跟踪状态失败")
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "用户策略跟踪记录不存在")
			return
		}

		sink.Invalidate(service.TableTracking)
		if err := tracking.UpdateStatus(r.Context(), payload.UserID, payload.StrategyID, payload.Status); err != nil {
			logger.WithError(err).Error("failed to update tracking status")
			writeError(w, http.StatusInternalServerError, "更新用户策略跟踪状态失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableTracking)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":    "用户策略跟踪状态更新成功",
			"userId":     payload.UserID,
			"strategyId": payload.StrategyID,
			"status":     payload.Status,
		})
	}
}
