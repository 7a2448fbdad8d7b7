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
	l := logger.Setup("poi-render")
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
	l.Info("render_finished", "path", out)
}
