package main

import (
	"context"
	"os"
	"os/signal"

	"poi-heatmap/internal/config"
	"poi-heatmap/internal/logger"
	"poi-heatmap/internal/metrics"
	"poi-heatmap/internal/pipeline"
)

// 两个阶段顺序执行，中间结果仍落到 RESULTS_CSV
func main() {
	cfg, err := config.Load()
	l := logger.Setup("poi-pipeline")
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, st, err := pipeline.OpenSource(cfg)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	if st != nil {
		defer st.Close()
	}
	if _, err := pipeline.RunCluster(ctx, cfg, src, st); err != nil {
		l.Error("cluster_error", "err", err)
		os.Exit(1)
	}
	bm := pipeline.NewBasemap(cfg)
	if bm.Redis != nil {
		defer bm.Redis.Close()
	}
	out, err := pipeline.RunRender(ctx, cfg, bm)
	if err != nil {
		l.Error("render_error", "err", err)
		os.Exit(1)
	}
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			l.Warn("metrics_write_error", "err", err)
		}
	}
	l.Info("pipeline_finished", "results", cfg.ResultsCSV, "image", out)
}
