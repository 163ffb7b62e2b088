package model

import "time"

const (
	LoginStatusIdle    = "idle"
	LoginStatusOffline = "offline"
	LoginStatusOnline  = "online"
)

const (
	QRCodeNotGenerated = "not_generated"
	QRCodeWaiting      = "Waitting" // legacy spelling kept for wire compatibility
	QRCodeGenerated    = "generated"
	QRCodeScanned      = "scanned"
	QRCodeExpired      = "expired"
)

// UserLoginStatus tracks the exchange login session of a user, driven by the
// QR-code login flow. One row per user.
type UserLoginStatus struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Status          string     `gorm:"size:30;not null;default:idle" json:"status"`
	QRCodeStatus    string     `gorm:"size:30;not null;default:not_generated;column:qr_code_status" json:"qr_code_status"`
	QRCodeImage     *string    `gorm:"type:text;column:qr_code_image" json:"qr_code_image,omitempty"`
	QRCodeExpiresAt *time.Time `gorm:"column:qr_code_expires_at" json:"qr_code_expires_at,omitempty"`
	LastLoginTime   *time.Time `gorm:"column:last_login_time" json:"last_login_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (UserLoginStatus) TableName() string {
	return "user_login_status"
}
