package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

type LoginStatusRepository struct {
	db *gorm.DB
}

func NewLoginStatusRepository() *LoginStatusRepository {
	logger.WithField("component", "LoginStatusRepository").
		Info("Creating new LoginStatusRepository with MainDB")

	return &LoginStatusRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *LoginStatusRepository) WithDB(db *gorm.DB) *LoginStatusRepository {
	return &LoginStatusRepository{db: db}
}

// GetOrCreate fetches the login-status row for a user, creating an idle one
// when none exists yet.
func (r *LoginStatusRepository) GetOrCreate(ctx context.Context, userID uint) (*model.UserLoginStatus, error) {
	var status model.UserLoginStatus
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&status).Error
	if err == nil {
		return &status, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dataErr("user_login_status.get", err)
	}

	status = model.UserLoginStatus{
		UserID:       userID,
		Status:       model.LoginStatusIdle,
		QRCodeStatus: model.QRCodeNotGenerated,
	}
	if err := r.db.WithContext(ctx).Create(&status).Error; err != nil {
		return nil, dataErr("user_login_status.create", err)
	}
	return &status, nil
}

// StartLogin sets the QR code status for a user's login flow, creating an
// offline row when none exists. An empty qrStatus defaults to waiting.
func (r *LoginStatusRepository) StartLogin(ctx context.Context, userID uint, qrStatus string) (*model.UserLoginStatus, error) {
	if qrStatus == "" {
		qrStatus = model.QRCodeWaiting
	}

	var status model.UserLoginStatus
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		status = model.UserLoginStatus{
			UserID:       userID,
			Status:       model.LoginStatusOffline,
			QRCodeStatus: qrStatus,
		}
		if err := r.db.WithContext(ctx).Create(&status).Error; err != nil {
			return nil, dataErr("user_login_status.start_create", err)
		}
		return &status, nil
	}
	if err != nil {
		return nil, dataErr("user_login_status.start_get", err)
	}

	status.QRCodeStatus = qrStatus
	if err := r.db.WithContext(ctx).
		Model(&status).
		Update("qr_code_status", qrStatus).Error; err != nil {
		return nil, dataErr("user_login_status.start_update", err)
	}
	return &status, nil
}

// ConfirmLogin marks the user online with a scanned QR code.
func (r *LoginStatusRepository) ConfirmLogin(ctx context.Context, userID uint) (*model.UserLoginStatus, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.UserLoginStatus{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":          model.LoginStatusOnline,
			"qr_code_status":  model.QRCodeScanned,
			"last_login_time": now,
		}).Error
	if err != nil {
		return nil, dataErr("user_login_status.confirm", err)
	}

	var status model.UserLoginStatus
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&status).Error; err != nil {
		return nil, dataErr("user_login_status.confirm_get", err)
	}
	return &status, nil
}

// SetQRCodeImage stores a freshly generated QR code image.
func (r *LoginStatusRepository) SetQRCodeImage(ctx context.Context, userID uint, image string) (*model.UserLoginStatus, error) {
	err := r.db.WithContext(ctx).
		Model(&model.UserLoginStatus{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"qr_code_image":  image,
			"qr_code_status": model.QRCodeGenerated,
		}).Error
	if err != nil {
		return nil, dataErr("user_login_status.set_qrcode", err)
	}

	var status model.UserLoginStatus
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&status).Error; err != nil {
		return nil, dataErr("user_login_status.set_qrcode_get", err)
	}
	return &status, nil
}

// Check fetches the login status and expires the QR code when its deadline
// has passed. Returns (nil, nil) when no row exists.
func (r *LoginStatusRepository) Check(ctx context.Context, userID uint) (*model.UserLoginStatus, error) {
	var status model.UserLoginStatus
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dataErr("user_login_status.check", err)
	}

	if status.QRCodeExpiresAt != nil && time.Now().After(*status.QRCodeExpiresAt) {
		if err := r.db.WithContext(ctx).
			Model(&model.UserLoginStatus{}).
			Where("user_id = ?", userID).
			Update("qr_code_status", model.QRCodeExpired).Error; err != nil {
			return nil, dataErr("user_login_status.check_expire", err)
		}
		status.QRCodeStatus = model.QRCodeExpired
	}
	return &status, nil
}
