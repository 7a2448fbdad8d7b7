package grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/result"
)

func TestNewArangeSemantics(t *testing.T) {
	g, err := New(geo.Madrid, 0.001)
	require.NoError(t, err)
	assert.Equal(t, int(math.Ceil((geo.Madrid.MaxLat-geo.Madrid.MinLat)/0.001)), g.Rows())
	assert.Equal(t, int(math.Ceil((geo.Madrid.MaxLon-geo.Madrid.MinLon)/0.001)), g.Cols())
	assert.Equal(t, geo.Madrid.MinLat, g.Lats[0])
	assert.Less(t, g.Lats[g.Rows()-1], geo.Madrid.MaxLat)
	assert.Less(t, g.Lons[g.Cols()-1], geo.Madrid.MaxLon)

	small, err := New(geo.BBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 0.5}, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25}, small.Lats)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, small.Lons)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(geo.Madrid, 0)
	assert.ErrorIs(t, err, ErrBadStep)
	_, err = New(geo.BBox{MinLon: 1, MinLat: 0, MaxLon: 0, MaxLat: 1}, 0.1)
	assert.Error(t, err)
}

func TestInterpolateMatchesBruteForce(t *testing.T) {
	b := geo.BBox{MinLon: -3.9, MinLat: 40.3, MaxLon: -3.8, MaxLat: 40.4}
	g, err := New(b, 0.005)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	rows := make([]result.Row, 40)
	for i := range rows {
		rows[i] = result.Row{
			Lat:       b.MinLat + rng.Float64()*b.LatSpan(),
			Lon:       b.MinLon + rng.Float64()*b.LonSpan(),
			ClusterID: rng.Intn(5),
		}
	}
	require.NoError(t, Interpolate(g, rows))
	require.Len(t, g.Labels, g.Rows()*g.Cols())

	for r, lat := range g.Lats {
		for c, lon := range g.Lons {
			best, bestD := -1, math.Inf(1)
			for i, row := range rows {
				d := (row.Lat-lat)*(row.Lat-lat) + (row.Lon-lon)*(row.Lon-lon)
				if d < bestD {
					best, bestD = i, d
				}
			}
			assert.Equal(t, rows[best].ClusterID, g.At(r, c), "cell %d,%d", r, c)
		}
	}
}

func TestInterpolateTieGoesToFirstRow(t *testing.T) {
	g, err := New(geo.BBox{MinLon: 0, MinLat: 0, MaxLon: 0.5, MaxLat: 0.5}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, g.Rows()*g.Cols())
	// 四个点与 (0,0) 等距
	rows := []result.Row{
		{Lat: 1, Lon: 0, ClusterID: 3},
		{Lat: 0, Lon: 1, ClusterID: 1},
		{Lat: -1, Lon: 0, ClusterID: 2},
		{Lat: 0, Lon: -1, ClusterID: 4},
	}
	require.NoError(t, Interpolate(g, rows))
	assert.Equal(t, 3, g.At(0, 0))

	rows[0], rows[2] = rows[2], rows[0]
	require.NoError(t, Interpolate(g, rows))
	assert.Equal(t, 2, g.At(0, 0))
}

func TestInterpolateNoPoints(t *testing.T) {
	g, err := New(geo.Madrid, 0.01)
	require.NoError(t, err)
	assert.ErrorIs(t, Interpolate(g, nil), ErrNoPoints)
}
