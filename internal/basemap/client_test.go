package basemap

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-heatmap/internal/geo"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSize(t *testing.T) {
	w, h := Size(geo.BBox{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 1}, 300)
	assert.Equal(t, 300, w)
	assert.Equal(t, 150, h)
}

func TestFetchBuildsExportRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/World_Shaded_Relief/MapServer/export", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "-4,40,-3,40.5", q.Get("bbox"))
		assert.Equal(t, "4326", q.Get("bboxSR"))
		assert.Equal(t, "4326", q.Get("imageSR"))
		assert.Equal(t, "200,100", q.Get("size"))
		assert.Equal(t, "image", q.Get("f"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, 200, 100))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "World_Shaded_Relief", time.Second, nil, 0)
	img, err := c.Fetch(context.Background(), geo.BBox{MinLon: -4, MinLat: 40, MaxLon: -3, MaxLat: 40.5}, 200)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, 40, 20))
	}))
	defer srv.Close()

	c := New(srv.URL, "World_Shaded_Relief", time.Second, rc, time.Hour)
	b := geo.BBox{MinLon: -4, MinLat: 40, MaxLon: -3, MaxLat: 40.5}
	ctx := context.Background()
	_, err := c.Fetch(ctx, b, 40)
	require.NoError(t, err)
	img, err := c.Fetch(ctx, b, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, mr.Exists(cacheKey("World_Shaded_Relief", b, 40, 20)))
	assert.Greater(t, mr.TTL(cacheKey("World_Shaded_Relief", b, 40, 20)), time.Duration(0))
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("size") == "10,5" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid bbox"}}`))
			return
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "World_Shaded_Relief", time.Second, nil, 0)
	b := geo.BBox{MinLon: -4, MinLat: 40, MaxLon: -3, MaxLat: 40.5}
	_, err := c.Fetch(context.Background(), b, 10)
	assert.ErrorIs(t, err, ErrBadStatus)
	_, err = c.Fetch(context.Background(), b, 20)
	assert.ErrorIs(t, err, ErrBadStatus)
}
