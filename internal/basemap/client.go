// 包 basemap：ArcGIS MapServer export 底图客户端，可选 Redis 缓存
package basemap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/logger"
	"poi-heatmap/internal/metrics"
)

var ErrBadStatus = errors.New("basemap: unexpected response")

// 文档注释：底图客户端
// 背景：底图按 EPSG:4326 导出，像素与经纬度线性对应，渲染时再按纬度做纵横比修正。
// 约束：Redis 为空或 TTL<=0 时不缓存。
type Client struct {
	BaseURL string
	Service string
	HTTP    *http.Client
	Redis   *redis.Client
	TTL     time.Duration
}

// New：HTTP 客户端挂载访问日志 Transport
func New(baseURL, service string, timeout time.Duration, rc *redis.Client, ttl time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Service: service,
		HTTP:    &http.Client{Timeout: timeout, Transport: logger.Transport(nil, nil)},
		Redis:   rc,
		TTL:     ttl,
	}
}

// Size：给定宽度时导出图像的像素尺寸，高度按经纬跨度等比
func Size(b geo.BBox, width int) (int, int) {
	h := int(math.Round(float64(width) * b.LatSpan() / b.LonSpan()))
	if h < 1 {
		h = 1
	}
	return width, h
}

func (c *Client) exportURL(b geo.BBox, w, h int) string {
	q := url.Values{}
	q.Set("bbox", b.String())
	q.Set("bboxSR", "4326")
	q.Set("imageSR", "4326")
	q.Set("size", strconv.Itoa(w)+","+strconv.Itoa(h))
	q.Set("format", "png32")
	q.Set("transparent", "false")
	q.Set("f", "image")
	return c.BaseURL + "/" + url.PathEscape(c.Service) + "/MapServer/export?" + q.Encode()
}

func cacheKey(service string, b geo.BBox, w, h int) string {
	return fmt.Sprintf("basemap:%s:%s:%dx%d", service, b.String(), w, h)
}

// 文档注释：获取底图
// 流程：先查 Redis（命中即解码返回），未命中则请求 export 接口并回写缓存。
// 返回：解码后的图像；非 200 或返回非图像内容时返回 ErrBadStatus。
func (c *Client) Fetch(ctx context.Context, b geo.BBox, width int) (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	w, h := Size(b, width)
	key := cacheKey(c.Service, b, w, h)
	l := logger.L()
	if c.Redis != nil && c.TTL > 0 {
		if raw, err := c.Redis.Get(ctx, key).Bytes(); err == nil {
			if img, _, err := image.Decode(bytes.NewReader(raw)); err == nil {
				metrics.BasemapCacheHitsTotal.Inc()
				l.Debug("basemap_cache_hit", "key", key)
				return img, nil
			}
			l.Warn("basemap_cache_corrupt", "key", key)
		} else if !errors.Is(err, redis.Nil) {
			l.Warn("basemap_cache_error", "err", err)
		}
	}

	raw, err := c.download(ctx, c.exportURL(b, w, h))
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		metrics.BasemapFailTotal.Inc()
		return nil, fmt.Errorf("basemap decode: %w", err)
	}
	if c.Redis != nil && c.TTL > 0 {
		if err := c.Redis.Set(ctx, key, raw, c.TTL).Err(); err != nil {
			l.Warn("basemap_cache_set_error", "err", err)
		}
	}
	l.Info("basemap_fetched", "service", c.Service, "width", w, "height", h, "bytes", len(raw))
	return img, nil
}

func (c *Client) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	t0 := time.Now()
	metrics.BasemapRequestsTotal.Inc()
	resp, err := hc.Do(req)
	if err != nil {
		metrics.BasemapFailTotal.Inc()
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BasemapFailTotal.Inc()
		return nil, err
	}
	metrics.BasemapDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	if resp.StatusCode != http.StatusOK {
		metrics.BasemapFailTotal.Inc()
		return nil, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}
	// ArcGIS 出错时仍可能以 200 返回 JSON
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "json") || strings.HasPrefix(ct, "text/") {
		metrics.BasemapFailTotal.Inc()
		return nil, fmt.Errorf("%w: content-type %s: %.200s", ErrBadStatus, ct, body)
	}
	return body, nil
}
