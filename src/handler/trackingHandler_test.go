package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphamonitor/src/model"
)

type mockBindingStore struct {
	existing bool
	created  *model.UserStrategy
}

func (m *mockBindingStore) Exists(ctx context.Context, userID, strategyID uint) (bool, error) {
	return m.existing, nil
}

func (m *mockBindingStore) Create(ctx context.Context, binding *model.UserStrategy) error {
	binding.ID = 3
	m.created = binding
	return nil
}

func TestCreateUserStrategyHandler(t *testing.T) {
	users := &mockUserStore{users: map[uint]*model.User{1: {ID: 1, Username: "alice"}}}
	strategies := &mockStrategyStore{existing: &model.Strategy{ID: 2, Name: "alpha"}}

	t.Run("creates binding", func(t *testing.T) {
		bindings := &mockBindingStore{}
		sink := &mockSink{}
		rec := postJSON(t, CreateUserStrategyHandler(users, strategies, bindings, sink), "/api/user-strategies",
			map[string]uint{"user_id": 1, "strategy_id": 2})

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, bindings.created)
		assert.Equal(t, uint(1), bindings.created.UserID)
		assert.True(t, bindings.created.IsActive)
		assert.Equal(t, []string{"user_strategy_tracking"}, sink.notified)
	})

	t.Run("409 on duplicate pair", func(t *testing.T) {
		bindings := &mockBindingStore{existing: true}
		rec := postJSON(t, CreateUserStrategyHandler(users, strategies, bindings, &mockSink{}), "/api/user-strategies",
			map[string]uint{"user_id": 1, "strategy_id": 2})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "用户策略绑定关系已存在", errorBody(t, rec))
		assert.Nil(t, bindings.created)
	})

	t.Run("404 on missing user", func(t *testing.T) {
		rec := postJSON(t, CreateUserStrategyHandler(users, strategies, &mockBindingStore{}, &mockSink{}), "/api/user-strategies",
			map[string]uint{"user_id": 9, "strategy_id": 2})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "用户不存在", errorBody(t, rec))
	})

	t.Run("404 on missing strategy", func(t *testing.T) {
		rec := postJSON(t, CreateUserStrategyHandler(users, strategies, &mockBindingStore{}, &mockSink{}), "/api/user-strategies",
			map[string]uint{"user_id": 1, "strategy_id": 9})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "策略不存在", errorBody(t, rec))
	})

	t.Run("400 on missing ids", func(t *testing.T) {
		rec := postJSON(t, CreateUserStrategyHandler(users, strategies, &mockBindingStore{}, &mockSink{}), "/api/user-strategies",
			map[string]uint{"user_id": 1})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type mockTrackingStore struct {
	existing bool
	userID   uint
	status   string
}

func (m *mockTrackingStore) Exists(ctx context.Context, userID, strategyID uint) (bool, error) {
	return m.existing, nil
}

func (m *mockTrackingStore) UpdateStatus(ctx context.Context, userID, strategyID uint, status string) error {
	m.userID = userID
	m.status = status
	return nil
}

func TestUpdateTrackingStatusHandler(t *testing.T) {
	t.Run("updates allowed status", func(t *testing.T) {
		store := &mockTrackingStore{existing: true}
		sink := &mockSink{}
		rec := postJSON(t, UpdateTrackingStatusHandler(store, sink), "/api/user-strategy-tracking/update-status",
			map[string]interface{}{"userId": 1, "strategyId": 2, "status": "paused"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "paused", store.status)
		assert.Equal(t, []string{"user_strategy_tracking"}, sink.invalidated)
	})

	t.Run("rejects status outside whitelist", func(t *testing.T) {
		store := &mockTrackingStore{existing: true}
		rec := postJSON(t, UpdateTrackingStatusHandler(store, &mockSink{}), "/api/user-strategy-tracking/update-status",
			map[string]interface{}{"userId": 1, "strategyId": 2, "status": "inactive"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "无效的状态值", errorBody(t, rec))
		assert.Empty(t, store.status)
	})

	t.Run("404 on missing tracking row", func(t *testing.T) {
		rec := postJSON(t, UpdateTrackingStatusHandler(&mockTrackingStore{}, &mockSink{}), "/api/user-strategy-tracking/update-status",
			map[string]interface{}{"userId": 1, "strategyId": 2, "status": "paused"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "用户策略跟踪记录不存在", errorBody(t, rec))
	})
}
