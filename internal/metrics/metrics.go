package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PointsFetchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_points_fetched_total",
		Help: "Total raw POI records read from the source",
	})
	PointsInRegionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_points_in_region_total",
		Help: "Total POI records inside the bounding box",
	})
	PointsExcludedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_points_buffer_excluded_total",
		Help: "Total POI records dropped by the venue buffer",
	})
	PointsSampledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_points_sampled_total",
		Help: "Total POI records kept by sampling",
	})
	ClusterSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poi_cluster_size",
		Help: "Points per cluster label in the last run",
	}, []string{"cluster"})
	StageDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poi_stage_duration_ms",
		Help:    "Pipeline stage duration in milliseconds",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000, 300000},
	}, []string{"stage"})
	BasemapRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_basemap_requests_total",
		Help: "Total basemap export requests",
	})
	BasemapFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_basemap_fail_total",
		Help: "Total basemap export failures",
	})
	BasemapCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poi_basemap_cache_hits_total",
		Help: "Total basemap redis cache hits",
	})
	BasemapDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poi_basemap_duration_ms",
		Help:    "Basemap export duration in milliseconds",
		Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000},
	})
	GridCells = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poi_grid_cells",
		Help: "Number of interpolated grid cells in the last render",
	})
)

func init() {
	prometheus.MustRegister(PointsFetchedTotal)
	prometheus.MustRegister(PointsInRegionTotal)
	prometheus.MustRegister(PointsExcludedTotal)
	prometheus.MustRegister(PointsSampledTotal)
	prometheus.MustRegister(ClusterSize)
	prometheus.MustRegister(StageDurationMs)
	prometheus.MustRegister(BasemapRequestsTotal)
	prometheus.MustRegister(BasemapFailTotal)
	prometheus.MustRegister(BasemapCacheHitsTotal)
	prometheus.MustRegister(BasemapDurationMs)
	prometheus.MustRegister(GridCells)
}

// 文档注释：导出指标到文本文件
// 背景：批处理没有常驻进程可供抓取，结束时写成 node_exporter textfile collector 可读的格式。
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
