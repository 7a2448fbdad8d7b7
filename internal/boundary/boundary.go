// 包 boundary：行政边界矢量文件加载（ESRI Shapefile / GeoJSON），裁剪到分析区域后以折线输出
package boundary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"

	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/logger"
)

var ErrUnsupportedFormat = errors.New("unsupported boundary format")

// 名称字段候选，GADM 第 4 级为市镇
var nameFields = []string{"NAME_4", "NAME_3", "NAME", "NOMBRE", "name"}

// 文档注释：单个边界折线
// 约束：坐标为 (lon, lat)；多边形的每个环都拆成独立折线，洞与外环不作区分。
type Line struct {
	Name   string
	Points orb.LineString
}

// 文档注释：按扩展名加载边界并裁剪到包围盒
// 返回：与包围盒相交的折线；完全在外的环被丢弃，跨越边界的环被切成多段。
func Load(path string, b geo.BBox) ([]Line, error) {
	var (
		lines []Line
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		lines, err = readShapefile(path)
	case ".geojson", ".json":
		lines, err = readGeoJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	out := Clip(lines, b)
	logger.L().Info("boundary_loaded", "path", path, "lines", len(lines), "clipped", len(out))
	return out, nil
}

// Clip：裁剪到包围盒，少于两个点的片段丢弃
func Clip(lines []Line, b geo.BBox) []Line {
	bound := orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}
	var out []Line
	for _, ln := range lines {
		if len(ln.Points) < 2 || !ln.Points.Bound().Intersects(bound) {
			continue
		}
		for _, part := range clip.LineString(bound, ln.Points) {
			if len(part) >= 2 {
				out = append(out, Line{Name: ln.Name, Points: part})
			}
		}
	}
	return out
}

func readShapefile(path string) ([]Line, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	nameIdx := -1
	fields := r.Fields()
	for _, want := range nameFields {
		for i, f := range fields {
			if strings.EqualFold(f.String(), want) {
				nameIdx = i
				break
			}
		}
		if nameIdx >= 0 {
			break
		}
	}
	var lines []Line
	for r.Next() {
		n, s := r.Shape()
		name := ""
		if nameIdx >= 0 {
			name = strings.TrimSpace(r.ReadAttribute(n, nameIdx))
		}
		switch g := s.(type) {
		case *shp.Polygon:
			lines = append(lines, splitParts(name, g.Parts, g.Points)...)
		case *shp.PolyLine:
			lines = append(lines, splitParts(name, g.Parts, g.Points)...)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// splitParts：Parts 为各部分在 Points 中的起始下标
func splitParts(name string, parts []int32, pts []shp.Point) []Line {
	out := make([]Line, 0, len(parts))
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		ls := make(orb.LineString, 0, end-start)
		for _, p := range pts[start:end] {
			ls = append(ls, orb.Point{p.X, p.Y})
		}
		out = append(out, Line{Name: name, Points: ls})
	}
	return out
}

func readGeoJSON(path string) ([]Line, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if fc, err := geojson.UnmarshalFeatureCollection(raw); err == nil && len(fc.Features) > 0 {
		var lines []Line
		for _, f := range fc.Features {
			lines = append(lines, fromGeometry(featureName(f), f.Geometry)...)
		}
		return lines, nil
	}
	if f, err := geojson.UnmarshalFeature(raw); err == nil && f.Geometry != nil {
		return fromGeometry(featureName(f), f.Geometry), nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("geojson %s: %w", path, err)
	}
	return fromGeometry("", g.Geometry()), nil
}

func featureName(f *geojson.Feature) string {
	for _, k := range nameFields {
		if s := f.Properties.MustString(k, ""); s != "" {
			return s
		}
	}
	return ""
}

func fromGeometry(name string, g orb.Geometry) []Line {
	var out []Line
	add := func(ls orb.LineString) { out = append(out, Line{Name: name, Points: ls}) }
	switch v := g.(type) {
	case orb.LineString:
		add(v)
	case orb.MultiLineString:
		for _, ls := range v {
			add(ls)
		}
	case orb.Ring:
		add(orb.LineString(v))
	case orb.Polygon:
		for _, r := range v {
			add(orb.LineString(r))
		}
	case orb.MultiPolygon:
		for _, p := range v {
			for _, r := range p {
				add(orb.LineString(r))
			}
		}
	case orb.Collection:
		for _, c := range v {
			out = append(out, fromGeometry(name, c)...)
		}
	}
	return out
}
