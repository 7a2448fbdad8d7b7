package geo

import (
	"errors"

	"github.com/dhconnelly/rtreego"
)

var ErrBadRadius = errors.New("buffer radius must be positive")

// 文档注释：排除缓冲区索引
// 背景：每个场馆投影点周围一个固定半径的圆盘；点落入任一圆盘即被排除。
// 约束：R-Tree 仅存圆盘外接正方形用于候选过滤，最终以平面距离 <= 半径判定，结果与逐个圆盘遍历一致。
type BufferIndex struct {
	tree   *rtreego.Rtree
	radius float64
	size   int
}

type disk struct {
	c   Planar
	idx int
	r   float64
}

func (d *disk) Bounds() rtreego.Rect {
	// 外接正方形略放大，避免边界点因浮点误差漏检
	pad := d.r*(1+1e-9) + 1e-12
	rect, _ := rtreego.NewRect(rtreego.Point{d.c.X - pad, d.c.Y - pad}, []float64{2 * pad, 2 * pad})
	return rect
}

func NewBufferIndex(centers []Planar, radius float64) (*BufferIndex, error) {
	if !(radius > 0) {
		return nil, ErrBadRadius
	}
	tree := rtreego.NewTree(2, 25, 50)
	for i, c := range centers {
		tree.Insert(&disk{c: c, idx: i, r: radius})
	}
	return &BufferIndex{tree: tree, radius: radius, size: len(centers)}, nil
}

func (b *BufferIndex) Len() int { return b.size }

func (b *BufferIndex) Radius() float64 { return b.radius }

// Covers：点是否落入任一缓冲区（距离 <= 半径）
func (b *BufferIndex) Covers(p Planar) bool {
	_, ok := b.Nearest(p)
	return ok
}

// Nearest：返回覆盖该点的缓冲区中距离最近的场馆下标
func (b *BufferIndex) Nearest(p Planar) (int, bool) {
	if b.size == 0 {
		return -1, false
	}
	q := rtreego.Point{p.X, p.Y}.ToRect(1e-9)
	best := -1
	bestD := b.radius * b.radius
	for _, s := range b.tree.SearchIntersect(q) {
		d := s.(*disk)
		dx := d.c.X - p.X
		dy := d.c.Y - p.Y
		dd := dx*dx + dy*dy
		if dd <= bestD && (best == -1 || dd < bestD || d.idx < best) {
			best = d.idx
			bestD = dd
		}
	}
	return best, best != -1
}
