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

func main() {
	cfg, err := config.Load()
	l := logger.Setup("poi-cluster")
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
	l.Info("cluster_begin", "bbox", cfg.BBox.String(), "sample_size", cfg.SampleSize, "clusters", cfg.Clusters, "buffer_km", cfg.BufferKm, "seeded", cfg.Seeded)
	rows, err := pipeline.RunCluster(ctx, cfg, src, st)
	if err != nil {
		l.Error("cluster_error", "err", err)
		os.Exit(1)
	}
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			l.Warn("metrics_write_error", "err", err)
		}
	}
	l.Info("cluster_finished", "rows", len(rows), "path", cfg.ResultsCSV)
}
