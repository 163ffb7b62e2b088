package handler

import (
	"context"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
)

type balanceSource interface {
	LatestUSDTValuation(ctx context.Context, uuid string) (decimal.Decimal, bool, error)
	USDTBalances(ctx context.Context, userIDs []uint) ([]repository.UserBalance, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// maxBalanceBatch caps how many users one balance request may resolve.
const maxBalanceBatch = 100

// UserUSDTBalanceHandler reports one user's latest USDT funding-wallet
// valuation, rendered with two decimal places like the rest of the dashboard.
func UserUSDTBalanceHandler(users userFinder, assets balanceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uintParam(r, "id")
		if id == 0 {
			writeError(w, http.StatusBadRequest, "用户ID不能为空")
			return
		}

		user, err := users.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load user for balance lookup")
			writeError(w, http.StatusInternalServerError, "获取用户USDT余额失败")
			return
		}
		if user == nil {
			writeError(w, http.StatusNotFound, "用户不存在")
			return
		}
		if user.UUID == nil || *user.UUID == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "用户UUID不存在",
				"balance": "0.00",
			})
			return
		}

		balance, _, err := assets.LatestUSDTValuation(r.Context(), *user.UUID)
		if err != nil {
			logger.WithError(err).Error("failed to fetch usdt valuation")
			writeError(w, http.StatusInternalServerError, "获取用户USDT余额失败")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"userId":      user.ID,
			"uuid":        *user.UUID,
			"usdtBalance": balance.StringFixed(2),
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// USDTBalancesHandler resolves the USDT balances of up to 100 users at once.
func USDTBalancesHandler(assets balanceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			UserIDs []uint `json:"userIds"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		if len(payload.UserIDs) == 0 {
			writeError(w, http.StatusBadRequest, "用户ID列表不能为空")
			return
		}
		if len(payload.UserIDs) > maxBalanceBatch {
			writeError(w, http.StatusBadRequest, "批量查询用户数量不能超过100个")
			return
		}

		balances, err := assets.USDTBalances(r.Context(), payload.UserIDs)
		if err != nil {
			logger.WithError(err).Error("failed to fetch usdt balances")
			writeError(w, http.StatusInternalServerError, "批量获取用户USDT余额失败")
			return
		}

		rendered := make([]map[string]interface{}, 0, len(balances))
		for _, b := range balances {
			rendered = append(rendered, map[string]interface{}{
				"userId":      b.UserID,
				"uuid":        b.UUID,
				"usdtBalance": b.USDTBalance.StringFixed(2),
			})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"balances":  rendered,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
