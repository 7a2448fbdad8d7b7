package render

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-heatmap/internal/boundary"
	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/grid"
	"poi-heatmap/internal/result"
)

var box = geo.BBox{MinLon: -3.9, MinLat: 40.3, MaxLon: -3.7, MaxLat: 40.4}

func TestCanvasSizeCorrectsLatitude(t *testing.T) {
	w, h := CanvasSize(box, 400)
	assert.Equal(t, 400, w)
	want := 400 * 0.1 / (0.2 * math.Cos(40.35*math.Pi/180))
	assert.InDelta(t, want, float64(h), 1)
	assert.Greater(t, h, 200)
}

func TestViridisEnds(t *testing.T) {
	assert.Equal(t, color.RGBA{68, 1, 84, 255}, Viridis(0))
	assert.Equal(t, color.RGBA{253, 231, 37, 255}, Viridis(1))
	assert.Equal(t, Viridis(1), Viridis(3))
	assert.Equal(t, Viridis(0), LabelColor(2, 2, 2))
	assert.Equal(t, Viridis(0.5), LabelColor(2, 0, 4))
}

func TestRenderLayers(t *testing.T) {
	g, err := grid.New(box, 0.01)
	require.NoError(t, err)
	rows := []result.Row{
		{Lat: 40.35, Lon: -3.8, PointID: "a", ClusterID: 0},
		{Lat: 40.32, Lon: -3.88, PointID: "b", ClusterID: 1},
	}
	require.NoError(t, grid.Interpolate(g, rows))

	opts := DefaultOptions()
	opts.Width = 400
	opts.Title = "test"
	img, err := Render(box, Layers{
		Grid:       g,
		Points:     rows,
		Boundaries: []boundary.Line{{Points: orb.LineString{{-3.75, 40.3}, {-3.75, 40.4}}}},
	}, opts)
	require.NoError(t, err)
	w, h := CanvasSize(box, 400)
	assert.Equal(t, image.Rect(0, 0, w, h), img.Bounds())

	// 样本点在最上层，保持纯红
	x := int((-3.8 - box.MinLon) / box.LonSpan() * float64(w))
	y := int((box.MaxLat - 40.35) / box.LatSpan() * float64(h))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(x, y))

	// 网格半透明叠在白底上
	mx, my := w/10, h/2
	got := img.RGBAAt(mx, my)
	assert.NotEqual(t, color.RGBA{255, 255, 255, 255}, got)
	assert.Greater(t, got.R, uint8(150))

	// 边界线
	lx := int((-3.75 - box.MinLon) / box.LonSpan() * float64(w))
	line := img.RGBAAt(lx, h/3)
	assert.Less(t, line.R, uint8(120))
}

func TestRenderScalesBase(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			base.SetRGBA(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	opts := DefaultOptions()
	opts.Width = 100
	opts.Legend = false
	img, err := Render(box, Layers{Base: base}, opts)
	require.NoError(t, err)
	px := img.RGBAAt(50, img.Bounds().Dy()/2)
	assert.Less(t, px.R, uint8(5))
	assert.Greater(t, px.B, uint8(250))
}

func TestRenderRejectsBadWidth(t *testing.T) {
	opts := DefaultOptions()
	opts.Width = 0
	_, err := Render(box, Layers{}, opts)
	assert.ErrorIs(t, err, ErrBadCanvas)
}

func TestSavePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	path := filepath.Join(t.TempDir(), "out", "map.png")
	require.NoError(t, SavePNG(path, img))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), dec.Bounds())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
