package pipeline

import (
	"poi-heatmap/internal/basemap"
	"poi-heatmap/internal/config"
	"poi-heatmap/internal/logger"
	"poi-heatmap/internal/poi"
	"poi-heatmap/internal/store"
	"poi-heatmap/internal/utils"
)

// 文档注释：按配置组装兴趣点来源
// 约束：POI_SOURCE=postgres 或开启 RESULTS_TO_DB 时才打开数据库；返回的 Store 可能为 nil，非 nil 时由调用方关闭。
func OpenSource(cfg config.Config) (poi.Source, *store.Store, error) {
	var st *store.Store
	if cfg.POISource == "postgres" || cfg.ResultsToDB {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, nil, err
		}
		st = store.AttachDB(db)
	}
	if cfg.POISource == "csv" {
		logger.L().Info("poi_source", "kind", "csv", "path", cfg.POICSV)
		return &poi.CSVSource{Path: cfg.POICSV}, st, nil
	}
	logger.L().Info("poi_source", "kind", "postgres", "table", cfg.POITable)
	return &store.POISource{Store: st, Table: cfg.POITable}, st, nil
}

// NewBasemap：REDIS_HOST 未设置时不缓存
func NewBasemap(cfg config.Config) *basemap.Client {
	return basemap.New(cfg.BasemapURL, cfg.BasemapService, cfg.HTTPTimeout, utils.OpenRedisFromEnv(), cfg.BasemapTTL)
}
