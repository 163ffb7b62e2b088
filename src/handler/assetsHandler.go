package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/model"
	"alphamonitor/src/repository"
)

type assetLister interface {
	UserAssets(ctx context.Context, filters repository.AssetFilters) ([]model.UserAssetRow, error)
}

// AssetsFilteredHandler lists balance snapshots through the cache.
func AssetsFilteredHandler(data assetLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := data.UserAssets(r.Context(), repository.AssetFilters{
			UserID: queryUint(r, "userId"),
			Asset:  r.URL.Query().Get("asset"),
			Limit:  queryInt(r, "limit", 0),
			Offset: queryInt(r, "offset", 0),
		})
		if err != nil {
			logger.WithError(err).Error("failed to list user assets")
			writeError(w, http.StatusInternalServerError, "获取用户资产数据失败")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
