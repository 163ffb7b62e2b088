package model

import "time"

const (
	UserStatusActive          = "active"
	UserStatusInactive        = "inactive"
	UserStatusUnauthenticated = "unauthenticated"
)

// User is a monitored dashboard user. The UUID column holds the numeric
// exchange uid as a string and links the user to its asset snapshots.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:255;not null;uniqueIndex" json:"username"`
	PasswordHash string     `gorm:"size:255;not null;column:password_hash" json:"-"`
	AdminID      *uint      `gorm:"column:admin_id" json:"admin_id"`
	Nickname     *string    `gorm:"size:255" json:"nickname"`
	Email        *string    `gorm:"size:255" json:"email"`
	Mobile       *string    `gorm:"size:60" json:"mobile"`
	UUID         *string    `gorm:"size:60;index;column:uuid" json:"uuid"`
	Status       string     `gorm:"size:30;not null;default:active;index" json:"status"`
	CreatedAt    time.Time  `gorm:"index:idx_users_created_at,sort:desc" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	LoginStatus *UserLoginStatus `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"login_status_record,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserRow is the user shape served by list endpoints. It joins the
// login-status sub-record and never carries the password hash.
type UserRow struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	AdminID      *uint     `json:"admin_id"`
	Nickname     *string   `json:"nickname"`
	Email        *string   `json:"email"`
	Mobile       *string   `json:"mobile"`
	UUID         *string   `json:"uuid"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LoginStatus  *string   `json:"login_status"`
	QRCodeStatus *string   `json:"qr_code_status"`
}

// ToRow strips write-only fields for API responses.
func (u *User) ToRow() UserRow {
	row := UserRow{
		ID:        u.ID,
		Username:  u.Username,
		AdminID:   u.AdminID,
		Nickname:  u.Nickname,
		Email:     u.Email,
		Mobile:    u.Mobile,
		UUID:      u.UUID,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
	if u.LoginStatus != nil {
		row.LoginStatus = &u.LoginStatus.Status
		row.QRCodeStatus = &u.LoginStatus.QRCodeStatus
	}
	return row
}
