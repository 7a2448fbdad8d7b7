package migrate

import (
	"context"
	"database/sql"

	"poi-heatmap/internal/logger"
)

// 背景：首次写入聚类结果时自动建表；只读拉取兴趣点不需要建表
// 约束：全部语句可重复执行；旧表只补 status 列
var stmts = []string{
	`CREATE TABLE IF NOT EXISTS _poi_cluster_runs (
            id UUID PRIMARY KEY,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            bbox TEXT NOT NULL,
            sample_size INT NOT NULL,
            clusters INT NOT NULL,
            buffer_km DOUBLE PRECISION NOT NULL,
            seed BIGINT,
            row_count INT NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'running'
        )`,
	`ALTER TABLE _poi_cluster_runs ADD COLUMN IF NOT EXISTS status TEXT NOT NULL DEFAULT 'running'`,
	`CREATE TABLE IF NOT EXISTS _poi_clusters (
            run_id UUID NOT NULL REFERENCES _poi_cluster_runs(id) ON DELETE CASCADE,
            seq INT NOT NULL,
            point_id TEXT NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            lon DOUBLE PRECISION NOT NULL,
            cluster_id INT NOT NULL,
            PRIMARY KEY (run_id, seq)
        )`,
	`CREATE INDEX IF NOT EXISTS idx_poi_clusters_label ON _poi_clusters(run_id, cluster_id)`,
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
