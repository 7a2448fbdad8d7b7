package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 文档注释：经纬度坐标（WGS84）
type Point struct {
	Lat float64
	Lon float64
}

// 文档注释：平面坐标（千米），相对投影原点；X 向东，Y 向北
type Planar struct {
	X float64
	Y float64
}

// 文档注释：经纬度包围盒
// 约束：四条边均为闭区间；Min 角同时作为平面投影原点
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Madrid：分析区域默认包围盒
var Madrid = BBox{
	MinLon: -3.93455628,
	MinLat: 40.25387182,
	MaxLon: -3.31993445,
	MaxLat: 40.57085727,
}

var ErrBadBBox = errors.New("bad bbox")

// Contains：闭区间判定
func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

func (b BBox) Origin() Point { return Point{Lat: b.MinLat, Lon: b.MinLon} }

func (b BBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

func (b BBox) LonSpan() float64 { return b.MaxLon - b.MinLon }
func (b BBox) LatSpan() float64 { return b.MaxLat - b.MinLat }

func (b BBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrBadBBox
		}
	}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return ErrBadBBox
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return ErrBadBBox
	}
	return nil
}

// String：minLon,minLat,maxLon,maxLat，与 ParseBBox 互逆
func (b BBox) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(b.MinLon) + "," + f(b.MinLat) + "," + f(b.MaxLon) + "," + f(b.MaxLat)
}

// ParseBBox：解析 "minLon,minLat,maxLon,maxLat"
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("%w: want 4 values, got %d", ErrBadBBox, len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("%w: %v", ErrBadBBox, err)
		}
		v[i] = f
	}
	b := BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}
