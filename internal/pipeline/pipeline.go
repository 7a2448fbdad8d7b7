// 包 pipeline：两个阶段的编排。阶段一拉取、过滤、抽样、聚类并写出结果表；阶段二读取结果表并渲染热力图。
// 两阶段之间只通过结果 CSV 传递数据。
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/browser"

	"poi-heatmap/internal/basemap"
	"poi-heatmap/internal/boundary"
	"poi-heatmap/internal/cluster"
	"poi-heatmap/internal/config"
	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/grid"
	"poi-heatmap/internal/logger"
	"poi-heatmap/internal/metrics"
	"poi-heatmap/internal/migrate"
	"poi-heatmap/internal/poi"
	"poi-heatmap/internal/render"
	"poi-heatmap/internal/result"
	"poi-heatmap/internal/store"
)

// 浏览器打开函数，测试中替换
var openFile = browser.OpenFile

// stage：记录阶段耗时
func stage(name string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	ms := time.Since(t0).Milliseconds()
	metrics.StageDurationMs.WithLabelValues(name).Observe(float64(ms))
	if err != nil {
		logger.L().Error("stage_failed", "stage", name, "duration_ms", ms, "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.L().Debug("stage_done", "stage", name, "duration_ms", ms)
	return nil
}

// 文档注释：阶段一，提取与聚类
// 流程：整表拉取 → 包围盒过滤 → 场馆缓冲区排除 → 无放回抽样 → 谱聚类 → 写结果 CSV（可选落库）。
// 约束：st 为空或未开启 ResultsToDB 时不写数据库；结果文件只在聚类成功后写出。
func RunCluster(ctx context.Context, cfg config.Config, src poi.Source, st *store.Store) ([]result.Row, error) {
	l := logger.L()
	var (
		records []poi.Record
		venues  []poi.Venue
		sample  []poi.Record
		res     *cluster.Result
	)
	if err := stage("fetch", func() (err error) {
		records, err = src.Fetch(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	metrics.PointsFetchedTotal.Add(float64(len(records)))

	if err := stage("venues", func() (err error) {
		venues, err = poi.ReadVenues(cfg.VenuesPath, cfg.VenuesEncoding)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage("filter", func() error {
		region := poi.FilterRegion(records, cfg.BBox)
		metrics.PointsInRegionTotal.Add(float64(len(region)))
		ex, err := poi.NewExclusion(venues, geo.NewProjector(cfg.BBox.Origin()), cfg.BufferKm)
		if err != nil {
			return err
		}
		kept, excluded := ex.Apply(region)
		metrics.PointsExcludedTotal.Add(float64(excluded))
		l.Info("filter_done", "fetched", len(records), "in_region", len(region), "excluded", excluded, "kept", len(kept), "venues", len(venues))

		sample, err = poi.Sample(kept, cfg.SampleSize, poi.NewRand(cfg.Seed, cfg.Seeded))
		return err
	}); err != nil {
		return nil, err
	}
	metrics.PointsSampledTotal.Add(float64(len(sample)))

	if err := stage("cluster", func() (err error) {
		pts := make([]geo.Point, len(sample))
		for i, r := range sample {
			pts[i] = r.Point()
		}
		res, err = cluster.Spectral(ctx, pts, cfg.ClusterOptions())
		return err
	}); err != nil {
		return nil, err
	}
	for c, n := range res.Sizes {
		metrics.ClusterSize.WithLabelValues(strconv.Itoa(c)).Set(float64(n))
	}

	rows := make([]result.Row, len(sample))
	for i, r := range sample {
		rows[i] = result.Row{Lat: r.Lat, Lon: r.Lon, PointID: r.ID, ClusterID: res.Labels[i]}
	}
	if err := stage("write", func() error { return result.WriteFile(cfg.ResultsCSV, rows) }); err != nil {
		return nil, err
	}
	l.Info("results_written", "path", cfg.ResultsCSV, "rows", len(rows))

	if cfg.ResultsToDB && st != nil {
		if err := stage("persist", func() error {
			if err := migrate.EnsureSchema(ctx, st.DB()); err != nil {
				return err
			}
			return st.SaveRun(ctx, store.Run{
				ID:         store.NewRunID(),
				BBox:       cfg.BBox,
				SampleSize: cfg.SampleSize,
				Clusters:   cfg.Clusters,
				BufferKm:   cfg.BufferKm,
				Seed:       cfg.Seed,
				Seeded:     cfg.Seeded,
			}, rows)
		}); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// 文档注释：阶段二，插值与渲染
// 流程：读结果 CSV → 网格最近邻插值 → 底图 → 行政边界 → 合成并保存 PNG → 可选用系统查看器打开。
// 约束：bm 为空时不取底图，以白底渲染；BoundaryPath 为空时跳过边界层。
func RunRender(ctx context.Context, cfg config.Config, bm *basemap.Client) (string, error) {
	l := logger.L()
	var (
		rows []result.Row
		g    *grid.Grid
		ly   render.Layers
		err  error
	)
	if err = stage("read", func() (err error) {
		rows, err = result.ReadFile(cfg.ResultsCSV)
		return err
	}); err != nil {
		return "", err
	}
	if err = stage("interpolate", func() (err error) {
		if g, err = grid.New(cfg.BBox, cfg.GridStep); err != nil {
			return err
		}
		return grid.Interpolate(g, rows)
	}); err != nil {
		return "", err
	}
	metrics.GridCells.Set(float64(len(g.Labels)))
	l.Info("grid_done", "rows", g.Rows(), "cols", g.Cols(), "points", len(rows), "clusters", result.Labels(rows))
	ly.Grid, ly.Points = g, rows

	if bm != nil {
		if err = stage("basemap", func() (err error) {
			ly.Base, err = bm.Fetch(ctx, cfg.BBox, cfg.BasemapXPixels)
			return err
		}); err != nil {
			return "", err
		}
	}
	if cfg.BoundaryPath != "" {
		if err = stage("boundary", func() (err error) {
			ly.Boundaries, err = boundary.Load(cfg.BoundaryPath, cfg.BBox)
			return err
		}); err != nil {
			return "", err
		}
	}

	opts := render.DefaultOptions()
	opts.Width = cfg.BasemapXPixels
	opts.Title = cfg.Title
	if err = stage("render", func() error {
		out, err := render.Render(cfg.BBox, ly, opts)
		if err != nil {
			return err
		}
		return render.SavePNG(cfg.OutputImage, out)
	}); err != nil {
		return "", err
	}
	l.Info("image_written", "path", cfg.OutputImage)

	if cfg.RenderOpen {
		if err = openFile(cfg.OutputImage); err != nil {
			return "", fmt.Errorf("open %s: %w", cfg.OutputImage, err)
		}
	}
	return cfg.OutputImage, nil
}
