// 包 grid：规则经纬度网格与最近邻标签插值
package grid

import (
	"errors"
	"fmt"
	"math"

	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/result"
)

var (
	ErrBadStep  = errors.New("grid step must be positive")
	ErrNoPoints = errors.New("no points to interpolate from")
)

// 文档注释：规则网格
// 约束：Labels 行优先存储，行对应纬度下标、列对应经度下标；Lats/Lons 为 [Min, Max) 上的等差序列。
type Grid struct {
	BBox   geo.BBox
	Step   float64
	Lats   []float64
	Lons   []float64
	Labels []int
}

// New：按步长生成网格坐标，终点不含在内
func New(b geo.BBox, step float64) (*Grid, error) {
	if !(step > 0) {
		return nil, ErrBadStep
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Grid{
		BBox: b,
		Step: step,
		Lats: arange(b.MinLat, b.MaxLat, step),
		Lons: arange(b.MinLon, b.MaxLon, step),
	}, nil
}

// arange：start + i*step，i < ceil((stop-start)/step)
func arange(start, stop, step float64) []float64 {
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func (g *Grid) Rows() int { return len(g.Lats) }
func (g *Grid) Cols() int { return len(g.Lons) }

// At：第 r 行第 c 列的标签
func (g *Grid) At(r, c int) int { return g.Labels[r*len(g.Lons)+c] }

// 文档注释：最近邻插值
// 背景：每个格点取 (lat, lon) 欧氏距离最近的样本点的簇标签。
// 约束：多个样本点等距时取结果表中行号最小者。
func Interpolate(g *Grid, rows []result.Row) error {
	if len(rows) == 0 {
		return ErrNoPoints
	}
	pts := make([]geo.Point, len(rows))
	for i, r := range rows {
		pts[i] = geo.Point{Lat: r.Lat, Lon: r.Lon}
	}
	idx := geo.NewKDIndex(pts)
	labels := make([]int, len(g.Lats)*len(g.Lons))
	for i, lat := range g.Lats {
		for j, lon := range g.Lons {
			k, _ := idx.Nearest(geo.Point{Lat: lat, Lon: lon})
			if k < 0 {
				return fmt.Errorf("grid cell %d,%d: %w", i, j, ErrNoPoints)
			}
			labels[i*len(g.Lons)+j] = rows[k].ClusterID
		}
	}
	g.Labels = labels
	return nil
}
