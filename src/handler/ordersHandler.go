package handler

import (
	"context"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
)

type orderLister interface {
	Orders(ctx context.Context, filters repository.OrderFilters) ([]model.OrderRow, error)
}

// queryTime parses an RFC3339 or date-only query parameter; nil when absent
// or unparseable.
func queryTime(r *http.Request, name string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed
		}
	}
	return nil
}

// OrdersFilteredHandler lists exchange-order snapshots through the cache.
func OrdersFilteredHandler(data orderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := data.Orders(r.Context(), repository.OrderFilters{
			UserID:   queryUint(r, "userId"),
			Status:   r.URL.Query().Get("status"),
			DateFrom: queryTime(r, "dateFrom"),
			DateTo:   queryTime(r, "dateTo"),
			Limit:    queryInt(r, "limit", 0),
			Offset:   queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list orders")
			writeError(w, http.StatusInternalServerError, "获取订单数据失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
