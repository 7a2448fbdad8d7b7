package boundary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-heatmap/internal/geo"
)

var box = geo.BBox{MinLon: -4, MinLat: 40, MaxLon: -3, MaxLat: 41}

const fc = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"NAME_4":"Madrid"},
  "geometry":{"type":"Polygon","coordinates":[[[-3.8,40.2],[-3.2,40.2],[-3.2,40.8],[-3.8,40.8],[-3.8,40.2]]]}},
 {"type":"Feature","properties":{"NAME_4":"Lejos"},
  "geometry":{"type":"Polygon","coordinates":[[[10,10],[11,10],[11,11],[10,10]]]}},
 {"type":"Feature","properties":{"name":"Rio"},
  "geometry":{"type":"LineString","coordinates":[[-3.5,39.5],[-3.5,40.5]]}}
]}`

func TestLoadGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "municipios.geojson")
	require.NoError(t, os.WriteFile(path, []byte(fc), 0o644))

	lines, err := Load(path, box)
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	names := map[string]bool{}
	for _, ln := range lines {
		names[ln.Name] = true
		for _, p := range ln.Points {
			assert.GreaterOrEqual(t, p.Lon(), box.MinLon)
			assert.LessOrEqual(t, p.Lon(), box.MaxLon)
			assert.GreaterOrEqual(t, p.Lat(), box.MinLat)
			assert.LessOrEqual(t, p.Lat(), box.MaxLat)
		}
	}
	assert.True(t, names["Madrid"])
	assert.True(t, names["Rio"])
	assert.False(t, names["Lejos"])
}

func TestLoadShapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gadm.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME_4", 20)}))
	ring := []shp.Point{{X: -3.8, Y: 40.2}, {X: -3.8, Y: 40.8}, {X: -3.2, Y: 40.8}, {X: -3.2, Y: 40.2}, {X: -3.8, Y: 40.2}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	n := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(n), 0, "Madrid"))
	w.Close()
	// 写端把属性文件命名为 <base>dbf，读端按 <base>.dbf 打开
	if _, err := os.Stat(filepath.Join(dir, "gadmdbf")); err == nil {
		require.NoError(t, os.Rename(filepath.Join(dir, "gadmdbf"), filepath.Join(dir, "gadm.dbf")))
	}
	require.FileExists(t, filepath.Join(dir, "gadm.dbf"))

	lines, err := Load(path, box)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for _, ln := range lines {
		assert.Equal(t, "Madrid", ln.Name)
		assert.GreaterOrEqual(t, len(ln.Points), 2)
	}
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("boundaries.kml", box)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestClipDropsOutside(t *testing.T) {
	in := []Line{
		{Name: "in", Points: orb.LineString{{-3.5, 40.5}, {-3.4, 40.6}}},
		{Name: "out", Points: orb.LineString{{5, 5}, {6, 6}}},
		{Name: "short", Points: orb.LineString{{-3.5, 40.5}}},
	}
	out := Clip(in, box)
	require.Len(t, out, 1)
	assert.Equal(t, "in", out[0].Name)
}
