// 包 store: PostgreSQL 数据访问层，负责整表拉取兴趣点与聚类结果落库
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/logger"
	"poi-heatmap/internal/poi"
	"poi-heatmap/internal/result"
)

var ErrBadTable = errors.New("bad table name")

// 每批提交的行数，降低长事务的锁持有与 WAL 压力
var batchSize = 5000

// Store: 持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// quoteTable：支持 schema.table，逐段加引号
func quoteTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrBadTable
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: %q", ErrBadTable, name)
	}
	for i, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrBadTable, name)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}

// 文档注释：整表拉取兴趣点
// 背景：数据仓库侧不做任何过滤，区域与缓冲区过滤全部在本地完成。
// 约束：表需包含 id/lat/lon 列；坐标为 NULL 的行跳过并计数。
func (s *Store) FetchPOIs(ctx context.Context, table string) ([]poi.Record, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	logger.L().Info("poi_fetch_begin", "table", table)
	rows, err := s.db.QueryContext(ctx, "SELECT id::text, lat, lon FROM "+qt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []poi.Record
	skipped := 0
	for rows.Next() {
		var id sql.NullString
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&id, &lat, &lon); err != nil {
			return nil, err
		}
		if !lat.Valid || !lon.Valid {
			skipped++
			continue
		}
		out = append(out, poi.Record{ID: id.String, Lat: lat.Float64, Lon: lon.Float64})
		if len(out)%100000 == 0 {
			logger.L().Debug("poi_fetch_progress", "rows", len(out))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Info("poi_fetch_done", "rows", len(out), "skipped_null", skipped)
	return out, nil
}

// POISource：以数据库表作为兴趣点源
type POISource struct {
	Store *Store
	Table string
}

func (p *POISource) Fetch(ctx context.Context) ([]poi.Record, error) {
	return p.Store.FetchPOIs(ctx, p.Table)
}

// 文档注释：一次聚类运行的参数快照
type Run struct {
	ID         string
	BBox       geo.BBox
	SampleSize int
	Clusters   int
	BufferKm   float64
	Seed       int64
	Seeded     bool
}

func NewRunID() string { return uuid.NewString() }

const (
	insertRun = `INSERT INTO _poi_cluster_runs(id, bbox, sample_size, clusters, buffer_km, seed) VALUES($1,$2,$3,$4,$5,$6)`
	insertRow = `INSERT INTO _poi_clusters(run_id, seq, point_id, lat, lon, cluster_id) VALUES($1,$2,$3,$4,$5,$6)`
	updateRun = `UPDATE _poi_cluster_runs SET row_count=$2, status='complete' WHERE id=$1`
	failRun   = `UPDATE _poi_cluster_runs SET status='failed' WHERE id=$1`
)

// 文档注释：写入一次运行及其结果行
// 背景：按 batchSize 分批提交；行序号 seq 与输出 CSV 行序一致。
// 约束：运行行以 status='running' 写入，最后一批与 row_count 一起置为 'complete'。
// 异常：任何数据库错误直接返回，不做重试；已提交的批次保留，运行被标记为 'failed'。
func (s *Store) SaveRun(ctx context.Context, run Run, rows []result.Row) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	err := s.saveRun(ctx, run, rows)
	if err != nil {
		// 运行行未提交时该语句不影响任何行
		if _, e := s.db.ExecContext(context.WithoutCancel(ctx), failRun, run.ID); e != nil {
			logger.L().Warn("store_run_mark_failed_error", "run", run.ID, "err", e)
		}
		logger.L().Error("store_run_failed", "run", run.ID, "err", err)
	}
	return err
}

func (s *Store) saveRun(ctx context.Context, run Run, rows []result.Row) error {
	seed := sql.NullInt64{Int64: run.Seed, Valid: run.Seeded}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, insertRun, run.ID, run.BBox.String(), run.SampleSize, run.Clusters, run.BufferKm, seed); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.PointID, r.Lat, r.Lon, r.ClusterID); err != nil {
			stmt.Close()
			return err
		}
		if (i+1)%batchSize == 0 && i+1 < len(rows) {
			logger.L().Debug("store_run_progress", "run", run.ID, "rows", i+1)
			stmt.Close()
			if err = tx.Commit(); err != nil {
				return err
			}
			if tx, err = s.db.BeginTx(ctx, nil); err != nil {
				return err
			}
			if stmt, err = tx.PrepareContext(ctx, insertRow); err != nil {
				return err
			}
		}
	}
	stmt.Close()
	if _, err := tx.ExecContext(ctx, updateRun, run.ID, len(rows)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Info("store_run_saved", "run", run.ID, "rows", len(rows))
	return nil
}
