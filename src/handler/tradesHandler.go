package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
)

type tradeLister interface {
	Trades(ctx context.Context, filters repository.TradeFilters) ([]model.TradeRow, error)
}

type tradePager interface {
	SearchPaginated(ctx context.Context, filters repository.TradePageFilters) (*repository.TradePage, error)
}

// TradesFilteredHandler lists trades through the cache.
func TradesFilteredHandler(data tradeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := data.Trades(r.Context(), repository.TradeFilters{
			StrategyID: queryUint(r, "strategyId"),
			UserID:     queryUint(r, "userId"),
			Symbol:     r.URL.Query().Get("symbol"),
			DateFrom:   queryTime(r, "dateFrom"),
			DateTo:     queryTime(r, "dateTo"),
			Limit:      queryInt(r, "limit", 0),
			Offset:     queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list trades")
			writeError(w, http.StatusInternalServerError, "获取交易数据失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// TradesPaginatedHandler serves the trades admin table. The user term matches
// user_id exactly when numeric and fuzzily otherwise.
func TradesPaginatedHandler(trades tradePager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "pageSize", 20)
		if page <= 0 {
			page = 1
		}
		if pageSize <= 0 {
			pageSize = 20
		}

		result, err := trades.SearchPaginated(r.Context(), repository.TradePageFilters{
			Page:       page,
			PageSize:   pageSize,
			UserTerm:   r.URL.Query().Get("userUuid"),
			StrategyID: queryUint(r, "strategyId"),
		})
		if err != nil {
			logger.WithError(err).Error("failed to paginate trades")
			writeError(w, http.StatusInternalServerError, "获取交易记录失败")
			return
		}

		totalPages := (result.Total + int64(pageSize) - 1) / int64(pageSize)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":       result.Rows,
			"total":      result.Total,
			"page":       page,
			"pageSize":   pageSize,
			"totalPages": totalPages,
		})
	}
}
