package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphamonitor/src/model"
	"alphamonitor/src/security"
)

type mockUserAccounts struct {
	byID       map[uint]*model.User
	byUsername map[string]*model.User
	storedHash string
	storedFor  uint
}

func (m *mockUserAccounts) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserAccounts) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.byUsername[username], nil
}

func (m *mockUserAccounts) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	m.storedFor = id
	m.storedHash = hash
	return nil
}

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("s3cret")
	require.NoError(t, err)
	alice := &model.User{ID: 1, Username: "alice", PasswordHash: hash, Status: model.UserStatusActive}
	accounts := &mockUserAccounts{byUsername: map[string]*model.User{"alice": alice}}

	t.Run("accepts valid credentials", func(t *testing.T) {
		rec := postJSON(t, LoginHandler(accounts), "/api/auth/login",
			map[string]string{"username": "alice", "password": "s3cret"})

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Success bool          `json:"success"`
			User    model.UserRow `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, "alice", body.User.Username)
		assert.NotContains(t, rec.Body.String(), hash)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		wrongPassword := postJSON(t, LoginHandler(accounts), "/api/auth/login",
			map[string]string{"username": "alice", "password": "nope"})
		unknownUser := postJSON(t, LoginHandler(accounts), "/api/auth/login",
			map[string]string{"username": "mallory", "password": "nope"})

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
		assert.Equal(t, "用户名或密码错误", errorBody(t, wrongPassword))
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		rec := postJSON(t, LoginHandler(accounts), "/api/auth/login",
			map[string]string{"username": "alice"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("accepts legacy sha256 hashes", func(t *testing.T) {
		legacy := &model.User{ID: 2, Username: "bob", PasswordHash: security.LegacyHash("old-pass")}
		legacyAccounts := &mockUserAccounts{byUsername: map[string]*model.User{"bob": legacy}}

		rec := postJSON(t, LoginHandler(legacyAccounts), "/api/auth/login",
			map[string]string{"username": "bob", "password": "old-pass"})

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestChangePasswordHandler(t *testing.T) {
	hash, err := security.HashPassword("old-pass")
	require.NoError(t, err)

	newAccounts := func() *mockUserAccounts {
		return &mockUserAccounts{byID: map[uint]*model.User{
			1: {ID: 1, Username: "alice", PasswordHash: hash},
		}}
	}

	t.Run("stores a fresh hash", func(t *testing.T) {
		accounts := newAccounts()
		rec := postJSON(t, ChangePasswordHandler(accounts), "/api/auth/change-password",
			map[string]interface{}{"userId": 1, "currentPassword": "old-pass", "newPassword": "new-pass"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint(1), accounts.storedFor)
		assert.True(t, security.VerifyPassword("new-pass", accounts.storedHash))
	})

	t.Run("rejects wrong current password", func(t *testing.T) {
		accounts := newAccounts()
		rec := postJSON(t, ChangePasswordHandler(accounts), "/api/auth/change-password",
			map[string]interface{}{"userId": 1, "currentPassword": "guess", "newPassword": "new-pass"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "当前密码错误", errorBody(t, rec))
		assert.Empty(t, accounts.storedHash)
	})

	t.Run("404 on unknown user", func(t *testing.T) {
		rec := postJSON(t, ChangePasswordHandler(newAccounts()), "/api/auth/change-password",
			map[string]interface{}{"userId": 9, "currentPassword": "old-pass", "newPassword": "new-pass"})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		rec := postJSON(t, ChangePasswordHandler(newAccounts()), "/api/auth/change-password",
			map[string]interface{}{"userId": 1})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
