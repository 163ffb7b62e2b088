package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
	"alphamonitor/src/security"
	"alphamonitor/src/service"
)

type userLister interface {
	Users(ctx context.Context, filters repository.UserFilters) ([]model.UserRow, error)
}

type userStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id uint, columns map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	SearchPaginated(ctx context.Context, filters repository.PaginatedFilters) (*repository.Page, error)
	FindByUUIDs(ctx context.Context, uuids []string) ([]model.UserRow, error)
}

// UsersFilteredHandler lists users through the cache. Unrecognized query
// parameters are dropped here; only these ever reach SQL.
func UsersFilteredHandler(data userLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		rows, err := data.Users(r.Context(), repository.UserFilters{
			Status:    query.Get("status"),
			Search:    query.Get("search"),
			SortBy:    query.Get("sortBy"),
			SortOrder: query.Get("sortOrder"),
			Limit:     queryInt(r, "limit", 0),
			Offset:    queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list users")
			writeError(w, http.StatusInternalServerError, "获取用户数据失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// UsersPaginatedHandler serves the users admin table.
func UsersPaginatedHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filters := repository.PaginatedFilters{
			Page:      queryInt(r, "page", 1),
			Limit:     queryInt(r, "limit", 20),
			SortBy:    query.Get("sortBy"),
			SortOrder: query.Get("sortOrder"),
			Search:    query.Get("search"),
			Status:    query.Get("status"),
		}

		page, err := users.SearchPaginated(r.Context(), filters)
		if err != nil {
			logger.WithError(err).Error("failed to paginate users")
			writeError(w, http.StatusInternalServerError, "分页获取用户数据失败")
			return
		}

		totalPages := (page.Total + int64(filters.Limit) - 1) / int64(filters.Limit)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":       page.Rows,
			"total":      page.Total,
			"page":       filters.Page,
			"totalPages": totalPages,
		})
	}
}

// UsersByUUIDsHandler resolves a set of exchange uids to active users.
func UsersByUUIDsHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			UUIDs []string `json:"uuids"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		if len(payload.UUIDs) == 0 {
			writeError(w, http.StatusBadRequest, "UUID列表不能为空")
			return
		}

		cleaned := make([]string, 0, len(payload.UUIDs))
		for _, raw := range payload.UUIDs {
			if trimmed := strings.TrimSpace(raw); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) == 0 {
			writeJSON(w, http.StatusOK, []model.UserRow{})
			return
		}

		rows, err := users.FindByUUIDs(r.Context(), cleaned)
		if err != nil {
			logger.WithError(err).Error("failed to find users by uuids")
			writeError(w, http.StatusInternalServerError, "根据UUID批量查询用户失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// CreateUserHandler registers a new dashboard user.
func CreateUserHandler(users userStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Username string  `json:"username"`
			Password string  `json:"password"`
			Nickname *string `json:"nickname"`
			Email    *string `json:"email"`
			Mobile   *string `json:"mobile"`
			UUID     *string `json:"uuid"`
			Status   string  `json:"status"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		if payload.Username == "" || payload.Password == "" {
			writeError(w, http.StatusBadRequest, "用户名和密码不能为空")
			return
		}

		taken, err := users.UsernameTaken(r.Context(), payload.Username, 0)
		if err != nil {
			logger.WithError(err).Error("failed to check username uniqueness")
			writeError(w, http.StatusInternalServerError, "创建用户失败")
			return
		}
		if taken {
			writeError(w, http.StatusConflict, "用户名已存在")
			return
		}

		hash, err := security.HashPassword(payload.Password)
		if err != nil {
			logger.WithError(err).Error("failed to hash password")
			writeError(w, http.StatusInternalServerError, "创建用户失败")
			return
		}

		status := payload.Status
		if status == "" {
			status = model.UserStatusActive
		}
		user := &model.User{
			Username:     payload.Username,
			PasswordHash: hash,
			Nickname:     payload.Nickname,
			Email:        payload.Email,
			Mobile:       payload.Mobile,
			UUID:         payload.UUID,
			Status:       status,
		}

		sink.Invalidate(service.TableUsers)
		if err := users.Create(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to create user")
			writeError(w, http.StatusInternalServerError, "创建用户失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableUsers)

		writeJSON(w, http.StatusCreated, user.ToRow())
	}
}

// UpdateUserHandler applies a partial update to one user. Only fields present
// in the body are touched.
func UpdateUserHandler(users userStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uintParam(r, "id")
		if id == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		var payload struct {
			Username *string `json:"username"`
			Password *string `json:"password"`
			Nickname *string `json:"nickname"`
			Email    *string `json:"email"`
			Mobile   *string `json:"mobile"`
			UUID     *string `json:"uuid"`
			Status   *string `json:"status"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}

		existing, err := users.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load user for update")
			writeError(w, http.StatusInternalServerError, "更新用户失败")
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "用户不存在")
			return
		}

		columns := map[string]interface{}{}
		if payload.Username != nil && *payload.Username != existing.Username {
			taken, err := users.UsernameTaken(r.Context(), *payload.Username, id)
			if err != nil {
				logger.WithError(err).Error("failed to check username uniqueness")
				writeError(w, http.StatusInternalServerError, "更新用户失败")
				return
			}
			if taken {
				writeError(w, http.StatusConflict, "用户名已存在")
				return
			}
			columns["username"] = *payload.Username
		}
		if payload.Password != nil && *payload.Password != "" {
			hash, err := security.HashPassword(*payload.Password)
			if err != nil {
				logger.WithError(err).Error("failed to hash password")
				writeError(w, http.StatusInternalServerError, "更新用户失败")
				return
			}
			columns["password_hash"] = hash
		}
		if payload.Nickname != nil {
			columns["nickname"] = *payload.Nickname
		}
		if payload.Email != nil {
			columns["email"] = *payload.Email
		}
		if payload.Mobile != nil {
			columns["mobile"] = *payload.Mobile
		}
		if payload.UUID != nil {
			columns["uuid"] = *payload.UUID
		}
		if payload.Status != nil {
			columns["status"] = *payload.Status
		}

		if len(columns) == 0 {
			writeError(w, http.StatusBadRequest, "没有提供要更新的字段")
			return
		}
		columns["updated_at"] = time.Now()

		sink.Invalidate(service.TableUsers)
		if err := users.Update(r.Context(), id, columns); err != nil {
			logger.WithError(err).Error("failed to update user")
			writeError(w, http.StatusInternalServerError, "更新用户失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableUsers)

		updated, err := users.FindByID(r.Context(), id)
		if err != nil || updated == nil {
			writeError(w, http.StatusInternalServerError, "更新用户失败")
			return
		}
		writeJSON(w, http.StatusOK, updated.ToRow())
	}
}

// DeleteUserHandler removes one user.
func DeleteUserHandler(users userStore, sink changeSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uintParam(r, "id")
		if id == 0 {
			writeError(w, http.StatusBadRequest, "无效的用户ID")
			return
		}

		existing, err := users.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load user for delete")
			writeError(w, http.StatusInternalServerError, "删除用户失败")
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "用户不存在")
			return
		}

		sink.Invalidate(service.TableUsers)
		if err := users.Delete(r.Context(), id); err != nil {
			logger.WithError(err).Error("failed to delete user")
			writeError(w, http.StatusInternalServerError, "删除用户失败")
			return
		}
		sink.NotifyChanged(r.Context(), service.TableUsers)

		writeJSON(w, http.StatusOK, map[string]string{"message": "用户删除成功"})
	}
}
