package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/repository"
)

type inconsistencySource interface {
	InconsistentTracking(ctx context.Context) ([]repository.InconsistencyRow, error)
}

type missingStrategy struct {
	StrategyID     uint      `json:"strategyId"`
	StrategyName   string    `json:"strategyName"`
	StrategySymbol string    `json:"strategySymbol"`
	StrategyStatus string    `json:"strategyStatus"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
}

type inconsistentUser struct {
	User              map[string]interface{} `json:"user"`
	MissingStrategies []missingStrategy      `json:"missingStrategies"`
}

// DataInconsistencyHandler reports users bound to active strategies that have
// no tracking record, both as raw rows and grouped per user.
func DataInconsistencyHandler(stats inconsistencySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := stats.InconsistentTracking(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to run data consistency check")
			writeError(w, http.StatusInternalServerError, "数据不一致检测失败")
			return
		}

		groups := make(map[uint]*inconsistentUser)
		order := make([]uint, 0, len(rows))
		for _, row := range rows {
			group, ok := groups[row.UserID]
			if !ok {
				group = &inconsistentUser{
					User: map[string]interface{}{
						"id":       row.UserID,
						"username": row.Username,
						"nickname": row.Nickname,
						"uuid":     row.UUID,
						"mobile":   row.Mobile,
						"email":    row.Email,
						"status":   row.UserStatus,
					},
				}
				groups[row.UserID] = group
				order = append(order, row.UserID)
			}
			group.MissingStrategies = append(group.MissingStrategies, missingStrategy{
				StrategyID:     row.StrategyID,
				StrategyName:   row.StrategyName,
				StrategySymbol: row.StrategySymbol,
				StrategyStatus: row.StrategyStatus,
				StartTime:      row.StartTime,
				EndTime:        row.EndTime,
			})
		}

		userStats := make([]*inconsistentUser, 0, len(order))
		for _, id := range order {
			userStats = append(userStats, groups[id])
		}

		message := "数据一致性检查通过，未发现问题"
		if len(rows) > 0 {
			message = fmt.Sprintf("发现 %d 条数据不一致：%d 个用户在活跃策略中缺少user_strategy_tracking表记录", len(rows), len(userStats))
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"count":     len(rows),
			"userCount": len(userStats),
			"data":      rows,
			"userStats": userStats,
			"message":   message,
		})
	}
}
