package poi

import (
	"poi-heatmap/internal/geo"
)

// FilterRegion：保留包围盒内（含边界）的点，保持原顺序
func FilterRegion(in []Record, b geo.BBox) []Record {
	out := make([]Record, 0, len(in))
	for _, r := range in {
		if b.Contains(r.Point()) {
			out = append(out, r)
		}
	}
	return out
}

// 文档注释：场馆缓冲区排除器
// 背景：场馆与兴趣点使用同一原点投影到平面千米坐标，再以固定半径圆盘排除附近的点。
// 约束：距离 <= 半径视为落入缓冲区；保留下来的点到所有场馆的平面距离均大于半径。
type Exclusion struct {
	proj *geo.Projector
	idx  *geo.BufferIndex
}

func NewExclusion(venues []Venue, proj *geo.Projector, radiusKm float64) (*Exclusion, error) {
	centers := make([]geo.Planar, len(venues))
	for i, v := range venues {
		centers[i] = proj.Project(v.Point())
	}
	idx, err := geo.NewBufferIndex(centers, radiusKm)
	if err != nil {
		return nil, err
	}
	return &Exclusion{proj: proj, idx: idx}, nil
}

// Near：点是否落入任一场馆缓冲区
func (e *Exclusion) Near(r Record) bool {
	return e.idx.Covers(e.proj.Project(r.Point()))
}

// Apply：返回保留的点与被排除数量
func (e *Exclusion) Apply(in []Record) ([]Record, int) {
	out := make([]Record, 0, len(in))
	excluded := 0
	for _, r := range in {
		if e.Near(r) {
			excluded++
			continue
		}
		out = append(out, r)
	}
	return out, excluded
}
