package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
)

type loginStatusStore interface {
	GetOrCreate(ctx context.Context, userID uint) (*model.UserLoginStatus, error)
	StartLogin(ctx context.Context, userID uint, qrStatus string) (*model.UserLoginStatus, error)
	ConfirmLogin(ctx context.Context, userID uint) (*model.UserLoginStatus, error)
	SetQRCodeImage(ctx context.Context, userID uint, image string) (*model.UserLoginStatus, error)
	Check(ctx context.Context, userID uint) (*model.UserLoginStatus, error)
}

// GetLoginStatusHandler fetches a user's login-status record, creating an
// idle one on first access.
func GetLoginStatusHandler(statuses loginStatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uintParam(r, "userId")
		if userID == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		status, err := statuses.GetOrCreate(r.Context(), userID)
		if err != nil {
			logger.WithError(err).Error("failed to fetch login status")
			writeError(w, http.StatusInternalServerError, "获取用户登录状态失败")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// StartLoginHandler begins a QR login flow. The body may carry a
// qr_code_status override; empty means waiting.
func StartLoginHandler(statuses loginStatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uintParam(r, "userId")
		if userID == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		var payload struct {
			QRCodeStatus string `json:"qr_code_status"`
		}
		// An empty body is fine here.
		_ = decodeLenient(r, &payload)

		status, err := statuses.StartLogin(r.Context(), userID, payload.QRCodeStatus)
		if err != nil {
			logger.WithError(err).Error("failed to start login flow")
			writeError(w, http.StatusInternalServerError, "获取二维码失败")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// ConfirmLoginHandler marks the user online with a scanned QR code.
func ConfirmLoginHandler(statuses loginStatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uintParam(r, "userId")
		if userID == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		status, err := statuses.ConfirmLogin(r.Context(), userID)
		if err != nil {
			logger.WithError(err).Error("failed to confirm login")
			writeError(w, http.StatusInternalServerError, "确认登录失败")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// SetQRCodeHandler stores a freshly generated QR code image.
func SetQRCodeHandler(statuses loginStatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uintParam(r, "userId")
		if userID == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		var payload struct {
			QRCodeImage string `json:"qrCodeImage"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		status, err := statuses.SetQRCodeImage(r.Context(), userID, payload.QRCodeImage)
		if err != nil {
			logger.WithError(err).Error("failed to store qr code image")
			writeError(w, http.StatusInternalServerError, "更新二维码图片失败")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// CheckLoginStatusHandler reads the login status, expiring a stale QR code
// on the way.
func CheckLoginStatusHandler(statuses loginStatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uintParam(r, "userId")
		if userID == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		status, err := statuses.Check(r.Context(), userID)
		if err != nil {
			logger.WithError(err).Error("failed to check login status")
			writeError(w, http.StatusInternalServerError, "检查登录状态失败")
			return
		}
		if status == nil {
			writeError(w, http.StatusNotFound, "用户登录状态不存在")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
