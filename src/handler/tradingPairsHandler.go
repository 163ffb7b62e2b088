package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/repository"
)

type pairStatsSource interface {
	TradingPairs(ctx context.Context, limit int) ([]repository.TradingPair, error)
	PairUserStats(ctx context.Context, symbol, search string, limit, offset int) ([]repository.PairUserStat, int64, *repository.PairTotals, error)
}

// TradingPairsHandler lists the most recently active symbols.
func TradingPairsHandler(stats pairStatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pairs, err := stats.TradingPairs(r.Context(), queryInt(r, "limit", 8))
		if err != nil {
			logger.WithError(err).Error("failed to fetch trading pairs")
			writeError(w, http.StatusInternalServerError, "获取交易对信息失败")
			return
		}

		rendered := make([]map[string]interface{}, 0, len(pairs))
		for _, pair := range pairs {
			rendered = append(rendered, map[string]interface{}{
				"symbol":        pair.Symbol,
				"strategyCount": pair.StrategyCount,
				"userCount":     pair.UserCount,
				"totalVolume":   pair.TotalVolume.StringFixed(8),
			})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tradingPairs": rendered,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// PairUsersHandler serves the per-symbol volume leaderboard, paginated with
// an optional nickname search.
func PairUsersHandler(stats pairStatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := chi.URLParam(r, "symbol")
		if symbol == "" {
			writeError(w, http.StatusBadRequest, "交易对符号不能为空")
			return
		}

		page := queryInt(r, "page", 1)
		if page <= 0 {
			page = 1
		}
		limit := queryInt(r, "limit", 10)
		if limit <= 0 {
			limit = 10
		}
		search := r.URL.Query().Get("search")

		rows, total, totals, err := stats.PairUserStats(r.Context(), symbol, search, limit, (page-1)*limit)
		if err != nil {
			logger.WithError(err).Error("failed to fetch pair user stats")
			writeError(w, http.StatusInternalServerError, "获取交易对用户统计失败")
			return
		}

		totalPages := (total + int64(limit) - 1) / int64(limit)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":    symbol,
			"userStats": rows,
			"totalStats": map[string]interface{}{
				"totalUsers":      totals.TotalUsers,
				"totalVolume":     totals.TotalVolume.StringFixed(8),
				"totalStrategies": totals.TotalStrategies,
			},
			"pagination": map[string]interface{}{
				"currentPage": page,
				"totalPages":  totalPages,
				"totalCount":  total,
				"limit":       limit,
				"hasNextPage": int64(page) < totalPages,
				"hasPrevPage": page > 1,
			},
			"search":    search,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
