package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"poi-heatmap/internal/geo"
)

// 亲和矩阵 W（对称、非负）
type affinity interface {
	Len() int
	Degrees() []float64
	MulVec(dst, x []float64) // dst = W x
}

type edge struct {
	j int
	w float64
}

// 稀疏亲和（邻接表）
type sparseAffinity struct {
	adj [][]edge
}

// knnAffinity：含自身的 k 近邻连通图，W = 0.5 (C + Cᵀ)
func knnAffinity(pts []geo.Point, k int) *sparseAffinity {
	n := len(pts)
	idx := geo.NewKDIndex(pts)
	rows := make([]map[int]float64, n)
	for i := range rows {
		rows[i] = make(map[int]float64, k+2)
	}
	for i, p := range pts {
		nb := idx.KNearest(p, k)
		self := false
		for _, j := range nb {
			if j == i {
				self = true
				break
			}
		}
		// 重复坐标可能把自身挤出近邻集合
		if !self && len(nb) > 0 {
			nb[len(nb)-1] = i
		}
		for _, j := range nb {
			rows[i][j] += 0.5
			rows[j][i] += 0.5
		}
	}
	adj := make([][]edge, n)
	for i, r := range rows {
		es := make([]edge, 0, len(r))
		for j, w := range r {
			es = append(es, edge{j: j, w: w})
		}
		sort.Slice(es, func(a, b int) bool { return es[a].j < es[b].j })
		adj[i] = es
	}
	return &sparseAffinity{adj: adj}
}

func (s *sparseAffinity) Len() int { return len(s.adj) }

func (s *sparseAffinity) Degrees() []float64 {
	d := make([]float64, len(s.adj))
	for i, es := range s.adj {
		for _, e := range es {
			d[i] += e.w
		}
	}
	return d
}

func (s *sparseAffinity) MulVec(dst, x []float64) {
	for i, es := range s.adj {
		var v float64
		for _, e := range es {
			v += e.w * x[e.j]
		}
		dst[i] = v
	}
}

// 稠密 RBF 亲和：exp(-gamma·|xi-xj|²)，对角线为 1
type denseAffinity struct {
	w *mat.SymDense
}

func rbfAffinity(pts []geo.Point, gamma float64) *denseAffinity {
	n := len(pts)
	w := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		w.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			dx := pts[i].Lat - pts[j].Lat
			dy := pts[i].Lon - pts[j].Lon
			w.SetSym(i, j, math.Exp(-gamma*(dx*dx+dy*dy)))
		}
	}
	return &denseAffinity{w: w}
}

func (d *denseAffinity) Len() int { return d.w.SymmetricDim() }

func (d *denseAffinity) Degrees() []float64 {
	n := d.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i] += d.w.At(i, j)
		}
	}
	return out
}

func (d *denseAffinity) MulVec(dst, x []float64) {
	xv := mat.NewVecDense(len(x), x)
	dv := mat.NewVecDense(len(dst), dst)
	dv.MulVec(d.w, xv)
}

// 归一化算子 M = D^-1/2 W D^-1/2
type normalized struct {
	a       affinity
	invSqrt []float64
	tmp     []float64
}

func normalize(a affinity) *normalized {
	deg := a.Degrees()
	inv := make([]float64, len(deg))
	for i, d := range deg {
		if d <= 0 {
			d = 1
		}
		inv[i] = 1 / math.Sqrt(d)
	}
	return &normalized{a: a, invSqrt: inv, tmp: make([]float64, len(deg))}
}

func (m *normalized) Len() int { return len(m.invSqrt) }

func (m *normalized) MulVec(dst, x []float64) {
	for i, v := range x {
		m.tmp[i] = v * m.invSqrt[i]
	}
	m.a.MulVec(dst, m.tmp)
	for i := range dst {
		dst[i] *= m.invSqrt[i]
	}
}

// dense：显式构造 M，用于小规模直接特征分解
func (m *normalized) dense() *mat.SymDense {
	n := m.Len()
	out := mat.NewSymDense(n, nil)
	e := make([]float64, n)
	col := make([]float64, n)
	for j := 0; j < n; j++ {
		e[j] = 1
		m.MulVec(col, e)
		e[j] = 0
		for i := 0; i <= j; i++ {
			out.SetSym(i, j, col[i])
		}
	}
	return out
}
