package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
)

type mockStrategyStore struct {
	created  *model.Strategy
	existing *model.Strategy
	statusID uint
	status   string
}

func (m *mockStrategyStore) Create(ctx context.Context, strategy *model.Strategy) error {
	strategy.ID = 42
	m.created = strategy
	return nil
}

func (m *mockStrategyStore) FindByID(ctx context.Context, id uint) (*model.Strategy, error) {
	if m.existing != nil && m.existing.ID == id {
		return m.existing, nil
	}
	return nil, nil
}

func (m *mockStrategyStore) UpdateStatus(ctx context.Context, id uint, status string) error {
	m.statusID = id
	m.status = status
	return nil
}

type mockSink struct {
	invalidated []string
	notified    []string
}

func (m *mockSink) Invalidate(table string) {
	m.invalidated = append(m.invalidated, table)
}

func (m *mockSink) NotifyChanged(ctx context.Context, table string) {
	m.notified = append(m.notified, table)
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestCreateStrategyHandler(t *testing.T) {
	valid := map[string]interface{}{
		"name":                  "btc-volume",
		"symbol":                "BTCUSDT",
		"funding_type":          "fixed",
		"funding_value":         "100",
		"max_total_volume_usdt": "10000",
		"start_time":            "2024-06-01T09:00:00Z",
		"end_time":              "2024-06-30T18:00:00Z",
	}

	t.Run("creates strategy and rebroadcasts", func(t *testing.T) {
		store := &mockStrategyStore{}
		sink := &mockSink{}
		rec := postJSON(t, CreateStrategyHandler(store, sink), "/api/strategies", valid)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, store.created)
		assert.Equal(t, "btc-volume", store.created.Name)
		assert.Equal(t, model.StrategyStatusActive, store.created.Status)
		assert.True(t, store.created.StartTime.Before(store.created.EndTime))
		assert.Equal(t, []string{"strategies"}, sink.invalidated)
		assert.Equal(t, []string{"strategies"}, sink.notified)

		var created model.Strategy
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, uint(42), created.ID)
	})

	t.Run("accepts minute-precision datetime-local input", func(t *testing.T) {
		payload := map[string]interface{}{}
		for k, v := range valid {
			payload[k] = v
		}
		payload["start_time"] = "2024-01-01T10:00"
		payload["end_time"] = "2024-01-01T18:30"

		store := &mockStrategyStore{}
		rec := postJSON(t, CreateStrategyHandler(store, &mockSink{}), "/api/strategies", payload)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, store.created)
		assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), store.created.StartTime)
		assert.Equal(t, time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC), store.created.EndTime)
	})

	t.Run("reports ordering error for minute-precision window", func(t *testing.T) {
		payload := map[string]interface{}{}
		for k, v := range valid {
			payload[k] = v
		}
		payload["start_time"] = "2024-01-01T10:00"
		payload["end_time"] = "2024-01-01T09:00"

		store := &mockStrategyStore{}
		rec := postJSON(t, CreateStrategyHandler(store, &mockSink{}), "/api/strategies", payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "开始时间必须早于结束时间", errorBody(t, rec))
		assert.Nil(t, store.created)
	})

	t.Run("keeps submitted status and avg_price", func(t *testing.T) {
		payload := map[string]interface{}{}
		for k, v := range valid {
			payload[k] = v
		}
		payload["status"] = "paused"
		payload["avg_price"] = "42000.5"

		store := &mockStrategyStore{}
		rec := postJSON(t, CreateStrategyHandler(store, &mockSink{}), "/api/strategies", payload)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, store.created)
		assert.Equal(t, model.StrategyStatusPaused, store.created.Status)
		require.NotNil(t, store.created.AvgPrice)
		assert.Equal(t, "42000.5", store.created.AvgPrice.String())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		payload := map[string]interface{}{"name": "incomplete"}
		rec := postJSON(t, CreateStrategyHandler(&mockStrategyStore{}, &mockSink{}), "/api/strategies", payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "缺少必填字段", errorBody(t, rec))
	})

	t.Run("rejects malformed time", func(t *testing.T) {
		payload := map[string]interface{}{}
		for k, v := range valid {
			payload[k] = v
		}
		payload["start_time"] = "yesterday"
		rec := postJSON(t, CreateStrategyHandler(&mockStrategyStore{}, &mockSink{}), "/api/strategies", payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "时间格式无效", errorBody(t, rec))
	})

	t.Run("rejects end before start", func(t *testing.T) {
		payload := map[string]interface{}{}
		for k, v := range valid {
			payload[k] = v
		}
		payload["start_time"] = "2024-06-30T18:00:00Z"
		payload["end_time"] = "2024-06-01T09:00:00Z"

		store := &mockStrategyStore{}
		rec := postJSON(t, CreateStrategyHandler(store, &mockSink{}), "/api/strategies", payload)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "开始时间必须早于结束时间", errorBody(t, rec))
		assert.Nil(t, store.created)
	})
}

func TestUpdateStrategyStatusHandler(t *testing.T) {
	t.Run("updates allowed status", func(t *testing.T) {
		store := &mockStrategyStore{existing: &model.Strategy{ID: 7, Status: model.StrategyStatusActive}}
		sink := &mockSink{}
		rec := postJSON(t, UpdateStrategyStatusHandler(store, sink), "/api/strategies/update-status",
			map[string]interface{}{"id": 7, "status": "paused"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint(7), store.statusID)
		assert.Equal(t, "paused", store.status)
		assert.Equal(t, []string{"strategies"}, sink.notified)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		store := &mockStrategyStore{existing: &model.Strategy{ID: 7}}
		rec := postJSON(t, UpdateStrategyStatusHandler(store, &mockSink{}), "/api/strategies/update-status",
			map[string]interface{}{"id": 7, "status": "sideways"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "无效的状态值", errorBody(t, rec))
		assert.Empty(t, store.status)
	})

	t.Run("404 on missing strategy", func(t *testing.T) {
		rec := postJSON(t, UpdateStrategyStatusHandler(&mockStrategyStore{}, &mockSink{}), "/api/strategies/update-status",
			map[string]interface{}{"id": 99, "status": "paused"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "策略不存在", errorBody(t, rec))
	})
}

type mockStrategyLister struct {
	filters repository.StrategyFilters
	rows    []model.Strategy
}

func (m *mockStrategyLister) Strategies(ctx context.Context, filters repository.StrategyFilters) ([]model.Strategy, error) {
	m.filters = filters
	return m.rows, nil
}

func TestStrategiesFilteredHandler(t *testing.T) {
	lister := &mockStrategyLister{rows: []model.Strategy{{ID: 1, Name: "alpha"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/strategies-filtered?status=active&symbol=BTCUSDT&limit=10&bogus=1", nil)
	rec := httptest.NewRecorder()
	StrategiesFilteredHandler(lister)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", lister.filters.Status)
	assert.Equal(t, "BTCUSDT", lister.filters.Symbol)
	assert.Equal(t, 10, lister.filters.Limit)

	var rows []model.Strategy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].Name)
}
