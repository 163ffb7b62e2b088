package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
	"alphamonitor/src/security"
)

type userAccounts interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
}

// LoginHandler authenticates an operator. The 401 body never distinguishes a
// missing account from a wrong password.
func LoginHandler(users userAccounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.Username == "" || payload.Password == "" {
			writeError(w, http.StatusBadRequest, "用户名和密码不能为空")
			return
		}

		user, err := users.FindByUsername(r.Context(), payload.Username)
		if err != nil {
			logger.WithError(err).Error("failed to look up user for login")
			writeError(w, http.StatusInternalServerError, "服务器内部错误")
			return
		}
		if user == nil || !security.VerifyPassword(payload.Password, user.PasswordHash) {
			logger.WithField("username", payload.Username).Info("login rejected")
			writeError(w, http.StatusUnauthorized, "用户名或密码错误")
			return
		}

		logger.WithField("username", user.Username).Info("login succeeded")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user":    user.ToRow(),
			"message": "登录成功",
		})
	}
}

// ChangePasswordHandler verifies the current password and stores a fresh hash
// for the new one. Legacy SHA-256 hashes are upgraded to bcrypt on the way.
func ChangePasswordHandler(users userAccounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			UserID          uint   `json:"userId"`
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.UserID == 0 || payload.CurrentPassword == "" || payload.NewPassword == "" {
			writeError(w, http.StatusBadRequest, "用户ID、当前密码和新密码不能为空")
			return
		}

		user, err := users.FindByID(r.Context(), payload.UserID)
		if err != nil {
			logger.WithError(err).Error("failed to look up user for password change")
			writeError(w, http.StatusInternalServerError, "服务器内部错误")
			return
		}
		if user == nil {
			writeError(w, http.StatusNotFound, "用户不存在")
			return
		}

		if !security.VerifyPassword(payload.CurrentPassword, user.PasswordHash) {
			logger.WithField("username", user.Username).Info("password change rejected")
			writeError(w, http.StatusUnauthorized, "当前密码错误")
			return
		}

		hash, err := security.HashPassword(payload.NewPassword)
		if err != nil {
			logger.WithError(err).Error("failed to hash new password")
			writeError(w, http.StatusInternalServerError, "服务器内部错误")
			return
		}
		if err := users.UpdatePasswordHash(r.Context(), user.ID, hash); err != nil {
			logger.WithError(err).Error("failed to store new password hash")
			writeError(w, http.StatusInternalServerError, "服务器内部错误")
			return
		}

		logger.WithField("username", user.Username).Info("password changed")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "密码修改成功",
		})
	}
}
