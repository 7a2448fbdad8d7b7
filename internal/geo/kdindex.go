package geo

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// 文档注释：经纬度 KD-Tree 索引（度数空间欧氏距离）
// 背景：聚类的近邻图与网格最近邻插值都直接在原始 (lat, lon) 上计算距离，不经过平面投影。
// 约束：下标为构建时切片的下标；距离相等时取下标最小者，保证结果可复现。
type KDIndex struct {
	tree *kdtree.Tree
	n    int
}

type kdPoint struct {
	c   [2]float64 // 0:lat,1:lon
	idx int
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	return p.c[d] - q.c[d]
}

func (p kdPoint) Dims() int { return 2 }

// Distance：平方欧氏距离
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	dx := p.c[0] - q.c[0]
	dy := p.c[1] - q.c[1]
	return dx*dx + dy*dy
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{kdPoints: p, Dim: d}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool { return p.kdPoints[i].c[p.Dim] < p.kdPoints[j].c[p.Dim] }
func (p kdPlane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p kdPlane) Swap(i, j int) { p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i] }

func NewKDIndex(pts []Point) *KDIndex {
	data := make(kdPoints, len(pts))
	for i, p := range pts {
		data[i] = kdPoint{c: [2]float64{p.Lat, p.Lon}, idx: i}
	}
	var t *kdtree.Tree
	if len(data) > 0 {
		t = kdtree.New(data, false)
	}
	return &KDIndex{tree: t, n: len(pts)}
}

func (x *KDIndex) Len() int { return x.n }

// Nearest：最近点下标与平方距离；等距时取下标最小者
func (x *KDIndex) Nearest(q Point) (int, float64) {
	if x.tree == nil {
		return -1, 0
	}
	qp := kdPoint{c: [2]float64{q.Lat, q.Lon}, idx: -1}
	c, d := x.tree.Nearest(qp)
	best := c.(kdPoint).idx
	// 收集同距离的全部候选
	keep := kdtree.NewDistKeeper(d)
	x.tree.NearestSet(keep, qp)
	for _, cd := range keep.Heap {
		if cd.Comparable == nil || cd.Dist > d {
			continue
		}
		if i := cd.Comparable.(kdPoint).idx; i < best {
			best = i
		}
	}
	return best, d
}

// KNearest：最近的 k 个点下标，按距离升序，等距按下标升序
func (x *KDIndex) KNearest(q Point, k int) []int {
	if x.tree == nil || k <= 0 {
		return nil
	}
	if k > x.n {
		k = x.n
	}
	qp := kdPoint{c: [2]float64{q.Lat, q.Lon}, idx: -1}
	keep := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keep, qp)
	out := make([]kdtree.ComparableDist, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		if cd.Comparable != nil {
			out = append(out, cd)
		}
	}
	sortByDistIdx(out)
	idx := make([]int, len(out))
	for i, cd := range out {
		idx[i] = cd.Comparable.(kdPoint).idx
	}
	return idx
}

func sortByDistIdx(s []kdtree.ComparableDist) {
	// 插入排序：k 很小
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && lessDist(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func lessDist(a, b kdtree.ComparableDist) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Comparable.(kdPoint).idx < b.Comparable.(kdPoint).idx
}
