package handler

import (
	"context"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
	"alphamonitor/src/service"
)

type strategyLister interface {
	Strategies(ctx context.Context, filters repository.StrategyFilters) ([]model.Strategy, error)
}

type strategyStore interface {
	Create(ctx context.Context, strategy *model.Strategy) error
	FindByID(ctx context.Context, id uint) (*model.Strategy, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type bindingStore interface {
	Exists(ctx context.Context, userID, strategyID uint) (bool, error)
	Create(ctx context.Context, binding *model.UserStrategy) error
}

// StrategiesFilteredHandler lists strategies through the cache.
func StrategiesFilteredHandler(data strategyLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		rows, err := data.Strategies(r.Context(), repository.StrategyFilters{
			Status: query.Get("status"),
			Symbol: query.Get("symbol"),
			Limit:  queryInt(r, "limit", 0),
			Offset: queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list strategies")
			writeError(w, http.StatusInternalServerError, "获取策略数据失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

type createStrategyPayload struct {
	Name                string           `json:"name"`
	Symbol              string           `json:"symbol"`
	FundingType         string           `json:"funding_type"`
	FundingValue        *decimal.Decimal `json:"funding_value"`
	ProfitMarginPercent *decimal.Decimal `json:"profit_margin_percent"`
	StopLossPercent     *decimal.Decimal `json:"stop_loss_percent"`
	Speed               *int             `json:"speed"`
	MaxTotalVolumeUSDT  *decimal.Decimal `json:"max_total_volume_usdt"`
	AvgPrice            *decimal.Decimal `json:"avg_price"`
	Status              string           `json:"status"`
	StartTime           string           `json:"start_time"`
	EndTime             string           `json:"end_time"`
}

// parseStrategyTime accepts the RFC3339 variants the frontend emits. The
// minute-precision layouts cover datetime-local inputs, which carry no
// seconds.
func parseStrategyTime(raw string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// CreateStrategyHandler validates and stores a new strategy. The time window
// is checked here only; later status flips do not re-validate it.
func CreateStrategyHandler(strategies strategyStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createStrategyPayload
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.Name == "" || payload.Symbol == "" ||
			payload.FundingValue == nil || payload.MaxTotalVolumeUSDT == nil ||
			payload.StartTime == "" || payload.EndTime == "" {
			writeError(w, http.StatusBadRequest, "缺少必填字段")
			return
		}

		startTime, okStart := parseStrategyTime(payload.StartTime)
		endTime, okEnd := parseStrategyTime(payload.EndTime)
		if !okStart || !okEnd {
			writeError(w, http.StatusBadRequest, "时间格式无效")
			return
		}
		if !startTime.Before(endTime) {
			writeError(w, http.StatusBadRequest, "开始时间必须早于结束时间")
			return
		}

		status := payload.Status
		if status == "" {
			status = model.StrategyStatusActive
		}

		strategy := &model.Strategy{
			Name:                payload.Name,
			Symbol:              payload.Symbol,
			Status:              status,
			FundingType:         payload.FundingType,
			FundingValue:        *payload.FundingValue,
			ProfitMarginPercent: payload.ProfitMarginPercent,
			StopLossPercent:     payload.StopLossPercent,
			Speed:               payload.Speed,
			MaxTotalVolumeUSDT:  *payload.MaxTotalVolumeUSDT,
			AvgPrice:            payload.AvgPrice,
			StartTime:           startTime,
			EndTime:             endTime,
		}

		sink.Invalidate(service.TableStrategies)
		if err := strategies.Create(r.Context(), strategy); err != nil {
			logger.WithError(err).Error("failed to create strategy")
			writeError(w, http.StatusInternalServerError, "创建策略失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableStrategies)

		writeJSON(w, http.StatusCreated, strategy)
	}
}

// UpdateStrategyStatusHandler flips a strategy's status within the allowed
// set.
func UpdateStrategyStatusHandler(strategies strategyStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.ID == 0 || payload.Status == "" {
			writeError(w, http.StatusBadRequest, "策略ID和状态为必填字段")
			return
		}
		if !statusAllowed(payload.Status, model.ValidStrategyStatuses) {
			writeError(w, http.StatusBadRequest, "无效的状态值")
			return
		}

		existing, err := strategies.FindByID(r.Context(), payload.ID)
		if err != nil {
			logger.WithError(err).Error("failed to load strategy for status update")
			writeError(w, http.StatusInternalServerError, "更新策略状态失败")
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "策略不存在")
			return
		}

		sink.Invalidate(service.TableStrategies)
		if err := strategies.UpdateStatus(r.Context(), payload.ID, payload.Status); err != nil {
			logger.WithError(err).Error("failed to update strategy status")
			writeError(w, http.StatusInternalServerError, "更新策略状态失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableStrategies)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "策略状态更新成功",
			"id":      payload.ID,
			"status":  payload.Status,
		})
	}
}

// CreateUserStrategyHandler binds a user to a strategy. Both sides must exist
// and the pair must be new.
func CreateUserStrategyHandler(users userFinder, strategies strategyStore, bindings bindingStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			UserID     uint `json:"user_id"`
			StrategyID uint `json:"strategy_id"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.UserID == 0 || payload.StrategyID == 0 {
			writeError(w, http.StatusBadRequest, "缺少必填字段：user_id 和 strategy_id")
			return
		}

		user, err := users.FindByID(r.Context(), payload.UserID)
		if err != nil {
			logger.WithError(err).Error("failed to load user for binding")
			writeError(w, http.StatusInternalServerError, "创建用户策略绑定关系失败")
			return
		}
		if user == nil {
			writeError(w, http.StatusNotFound, "用户不存在")
			return
		}

		strategy, err := strategies.FindByID(r.Context(), payload.StrategyID)
		if err != nil {
			logger.WithError(err).Error("failed to load strategy for binding")
			writeError(w, http.StatusInternalServerError, "创建用户策略绑定关系失败")
			return
		}
		if strategy == nil {
			writeError(w, http.StatusNotFound, "策略不存在")
			return
		}

		exists, err := bindings.Exists(r.Context(), payload.UserID, payload.StrategyID)
		if err != nil {
			logger.WithError(err).Error("failed to check existing binding")
			writeError(w, http.StatusInternalServerError, "创建用户策略绑定关系失败")
			return
		}
		if exists {
			writeError(w, http.StatusConflict, "用户策略绑定关系已存在")
			return
		}

		binding := &model.UserStrategy{
			UserID:     payload.UserID,
			StrategyID: payload.StrategyID,
			IsActive:   true,
		}

		sink.Invalidate(service.TableTracking)
		if err := bindings.Create(r.Context(), binding); err != nil {
			logger.WithError(err).Error("failed to create binding")
			writeError(w, http.StatusInternalServerError, "创建用户策略绑定关系失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableTracking)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "用户策略绑定关系创建成功",
			"data":    binding,
		})
	}
}

func statusAllowed(status string, allowed []string) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}
