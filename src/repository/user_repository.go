package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
)

// UserFilters are the recognized query filters for user listings. Anything
// not representable here never reaches SQL.
type UserFilters struct {
	Status    string
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// userSortColumns whitelists the columns a caller may sort by. Unknown
// values fall back to created_at.
var userSortColumns = map[string]bool{
	"created_at": true,
	"username":   true,
	"status":     true,
	"uuid":       true,
}

func (f UserFilters) orderClause() string {
	column := f.SortBy
	if !userSortColumns[column] {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository() *UserRepository {
	logger.WithField("component", "UserRepository").
		Info("Creating new UserRepository with MainDB")

	return &UserRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *UserRepository) WithDB(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Search lists users joined with their login-status sub-record. Inactive
// users are always excluded; unauthenticated ones sort first so the operator
// sees accounts needing attention at the top.
func (r *UserRepository) Search(ctx context.Context, filters UserFilters) ([]model.UserRow, error) {
	logger.WithFields(map[string]interface{}{
		"repo":   "UserRepository",
		"op":     "Search",
		"status": filters.Status,
	}).Debug("Searching users")

	query := r.db.WithContext(ctx).
		Table("users u").
		Select("u.id, u.username, u.admin_id, u.nickname, u.email, u.mobile, u.uuid, u.status, u.created_at, uls.status AS login_status, uls.qr_code_status").
		Joins("LEFT JOIN user_login_status uls ON u.id = uls.user_id").
		Where("u.status <> ?", model.UserStatusInactive)

	if filters.Status != "" {
		query = query.Where("u.status = ?", filters.Status)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("u.username ILIKE ? OR u.email ILIKE ?", pattern, pattern)
	}

	query = query.Order("CASE WHEN u.status = 'unauthenticated' THEN 0 ELSE 1 END").
		Order(filters.orderClause())

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []model.UserRow
	if err := query.Scan(&rows).Error; err != nil {
		logger.WithField("repo", "UserRepository").
			WithError(err).Error("Failed to search users")
		return nil, dataErr("users.search", err)
	}
	return rows, nil
}

// PaginatedFilters drive the paginated user listing. A numeric search term
// matches the uuid exactly; anything else matches username/nickname/email.
type PaginatedFilters struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	Status    string
}

// Page is one page of users plus the total row count across all pages.
type Page struct {
	Rows  []model.UserRow
	Total int64
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SearchPaginated returns one page of users and the filtered total.
func (r *UserRepository) SearchPaginated(ctx context.Context, filters PaginatedFilters) (*Page, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}

	base := r.db.WithContext(ctx).
		Table("users").
		Where("status <> ?", model.UserStatusInactive)

	if search := strings.TrimSpace(filters.Search); search != "" {
		if isNumeric(search) {
			base = base.Where("uuid = ?", search)
		} else {
			pattern := "%" + search + "%"
			base = base.Where("username ILIKE ? OR nickname ILIKE ? OR email ILIKE ?", pattern, pattern, pattern)
		}
	}
	if filters.Status != "" {
		base = base.Where("status = ?", filters.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, dataErr("users.count", err)
	}

	order := UserFilters{SortBy: filters.SortBy, SortOrder: filters.SortOrder}.orderClause()

	var rows []model.UserRow
	err := base.Session(&gorm.Session{}).
		Select("id, username, admin_id, nickname, email, mobile, uuid, status, created_at").
		Order(order).
		Limit(filters.Limit).
		Offset((filters.Page - 1) * filters.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataErr("users.search_paginated", err)
	}

	return &Page{Rows: rows, Total: total}, nil
}

// FindByID fetches a user by primary key. Returns (nil, nil) when absent.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dataErr("users.find_by_id", err)
	}
	return &user, nil
}

// FindByUsername fetches a user by username. Returns (nil, nil) when absent.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dataErr("users.find_by_username", err)
	}
	return &user, nil
}

// UsernameTaken reports whether another user (excluding excludeID, pass 0 to
// check all) already holds the username.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("username = ?", username)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, dataErr("users.username_taken", err)
	}
	return count > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "UserRepository",
		"op":       "Create",
		"username": user.Username,
	}).Debug("Creating user")

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.WithField("repo", "UserRepository").
			WithError(err).Error("Failed to create user")
		return dataErr("users.create", err)
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "UserRepository",
		"op":      "Create",
		"user_id": user.ID,
	}).Info("User created successfully")
	return nil
}

// Update persists the given column set for one user. Columns are matched by
// name, so callers pass exactly what the request carried.
func (r *UserRepository) Update(ctx context.Context, id uint, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(columns).Error
	if err != nil {
		return dataErr("users.update", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.User{}, id).Error; err != nil {
		return dataErr("users.delete", err)
	}
	return nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
	if err != nil {
		return dataErr("users.update_password", err)
	}
	return nil
}

// FindByUUIDs fetches active users whose exchange uid is in the given set.
func (r *UserRepository) FindByUUIDs(ctx context.Context, uuids []string) ([]model.UserRow, error) {
	var rows []model.UserRow
	err := r.db.WithContext(ctx).
		Table("users").
		Select("id, username, admin_id, nickname, email, mobile, uuid, status, created_at").
		Where("uuid IN ?", uuids).
		Where("status = ?", model.UserStatusActive).
		Order("created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, dataErr("users.find_by_uuids", err)
	}
	return rows, nil
}
