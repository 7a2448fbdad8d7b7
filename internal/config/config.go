// 包 config：批处理参数；默认值即 Madrid 分析的固定常量，环境变量可逐项覆盖
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"poi-heatmap/internal/cluster"
	"poi-heatmap/internal/geo"
)

type Config struct {
	BBox       geo.BBox
	SampleSize int
	Clusters   int
	BufferKm   float64
	GridStep   float64
	Seed       int64
	Seeded     bool

	POISource      string
	POITable       string
	POICSV         string
	VenuesPath     string
	VenuesEncoding string
	ResultsCSV     string
	ResultsToDB    bool

	BoundaryPath   string
	BasemapURL     string
	BasemapService string
	BasemapXPixels int
	BasemapTTL     time.Duration
	OutputImage    string
	Title          string
	RenderOpen     bool
	HTTPTimeout    time.Duration

	MetricsTextfile string
}

// Default：Madrid 分析的固定参数
func Default() Config {
	return Config{
		BBox:           geo.Madrid,
		SampleSize:     20000,
		Clusters:       5,
		BufferKm:       0.15,
		GridStep:       0.001,
		POISource:      "postgres",
		POITable:       "pois",
		POICSV:         "pois.csv",
		VenuesPath:     "208862-7650164-ocio_salas.csv",
		ResultsCSV:     "madrid_poi_clusters.csv",
		BoundaryPath:   "gadm36_ESP_4.shp",
		BasemapURL:     "https://server.arcgisonline.com/ArcGIS/rest/services",
		BasemapService: "World_Shaded_Relief",
		BasemapXPixels: 3000,
		BasemapTTL:     24 * time.Hour,
		OutputImage:    "madrid_poi_clusters.png",
		Title:          "Madrid POI clusters",
		HTTPTimeout:    60 * time.Second,
	}
}

// 文档注释：加载配置
// 背景：先读 .env 与 data/env/.env（不存在时忽略），再以进程环境变量覆盖默认值。
// 约束：只有 BBOX 解析失败会返回错误；其余数值非法时保留默认值。
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv()
}

func FromEnv() (Config, error) {
	c := Default()
	if v := os.Getenv("BBOX"); v != "" {
		b, err := geo.ParseBBox(v)
		if err != nil {
			return c, err
		}
		c.BBox = b
	}
	if v := os.Getenv("SAMPLE_SIZE"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			c.SampleSize = n
		}
	}
	if v := os.Getenv("CLUSTERS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			c.Clusters = n
		}
	}
	if v := os.Getenv("BUFFER_KM"); v != "" {
		if f, e := strconv.ParseFloat(v, 64); e == nil && f > 0 {
			c.BufferKm = f
		}
	}
	if v := os.Getenv("GRID_STEP"); v != "" {
		if f, e := strconv.ParseFloat(v, 64); e == nil && f > 0 {
			c.GridStep = f
		}
	}
	if v := os.Getenv("SEED"); v != "" {
		if n, e := strconv.ParseInt(v, 10, 64); e == nil {
			c.Seed, c.Seeded = n, true
		}
	}
	if v := strings.ToLower(os.Getenv("POI_SOURCE")); v == "csv" || v == "postgres" {
		c.POISource = v
	}
	str(&c.POITable, "POI_TABLE")
	str(&c.POICSV, "POI_CSV")
	str(&c.VenuesPath, "VENUES_PATH")
	str(&c.VenuesEncoding, "VENUES_ENCODING")
	str(&c.ResultsCSV, "RESULTS_CSV")
	c.ResultsToDB = os.Getenv("RESULTS_TO_DB") == "true"

	str(&c.BoundaryPath, "BOUNDARY_PATH")
	str(&c.BasemapURL, "BASEMAP_URL")
	str(&c.BasemapService, "BASEMAP_SERVICE")
	if v := os.Getenv("BASEMAP_XPIXELS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			c.BasemapXPixels = n
		}
	}
	if v := os.Getenv("BASEMAP_CACHE_TTL_S"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n >= 0 {
			c.BasemapTTL = time.Duration(n) * time.Second
		}
	}
	str(&c.OutputImage, "OUTPUT_IMAGE")
	str(&c.Title, "RENDER_TITLE")
	c.RenderOpen = os.Getenv("RENDER_OPEN") == "true"
	if v := os.Getenv("HTTP_TIMEOUT_S"); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n > 0 {
			c.HTTPTimeout = time.Duration(n) * time.Second
		}
	}
	str(&c.MetricsTextfile, "METRICS_TEXTFILE")
	return c, nil
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ClusterOptions：聚类默认参数叠加 K 与种子
func (c Config) ClusterOptions() cluster.Options {
	o := cluster.DefaultOptions()
	o.K = c.Clusters
	o.Seed, o.Seeded = c.Seed, c.Seeded
	return o
}
