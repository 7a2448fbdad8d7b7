package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// 低于该规模时直接对稠密矩阵做特征分解
const denseEigenLimit = 1000

var errEigen = errors.New("eigen decomposition failed")

type symOperator interface {
	Len() int
	MulVec(dst, x []float64)
}

// 文档注释：对称算子的最大 k 个特征对
// 背景：样本量上万时无法构造稠密矩阵；使用分块 Krylov 子空间（完全重正交化）加 Rayleigh-Ritz，
// 分块起始可以分离重特征值（近邻图不连通时特征值 1 的重数等于连通分量数）。
// 返回：特征值降序；vecs[c] 为第 c 个特征向量（单位长度）。
func topEigen(op symOperator, k, krylov int, rng *rand.Rand) ([]float64, [][]float64, error) {
	n := op.Len()
	if k < 1 || k > n {
		return nil, nil, fmt.Errorf("%w: k=%d n=%d", ErrBadK, k, n)
	}
	if n <= denseEigenLimit {
		if d, ok := op.(interface{ dense() *mat.SymDense }); ok {
			return denseTop(d.dense(), k)
		}
	}
	return krylovTop(op, k, krylov, rng)
}

func denseTop(a *mat.SymDense, k int) ([]float64, [][]float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(a, true); !ok {
		return nil, nil, errEigen
	}
	vals := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)
	order := descending(vals)
	outV := make([]float64, k)
	outX := make([][]float64, k)
	for c := 0; c < k; c++ {
		outV[c] = vals[order[c]]
		outX[c] = mat.Col(nil, order[c], &ev)
	}
	return outV, outX, nil
}

func krylovTop(op symOperator, k, krylov int, rng *rand.Rand) ([]float64, [][]float64, error) {
	n := op.Len()
	block := 2 * k
	if block < 4 {
		block = 4
	}
	m := krylov
	if m < 2*block {
		m = 2 * block
	}
	if m > n {
		m = n
	}
	var basis, images [][]float64
	// add：对全部基向量做两遍 Gram-Schmidt，范数过小则丢弃
	add := func(w []float64) bool {
		norm0 := floats.Norm(w, 2)
		for pass := 0; pass < 2; pass++ {
			for _, v := range basis {
				floats.AddScaled(w, -floats.Dot(w, v), v)
			}
		}
		nw := floats.Norm(w, 2)
		if nw <= 1e-10*math.Max(norm0, 1e-300) || nw == 0 {
			return false
		}
		floats.Scale(1/nw, w)
		av := make([]float64, n)
		op.MulVec(av, w)
		basis = append(basis, w)
		images = append(images, av)
		return true
	}
	randVec := func() []float64 {
		w := make([]float64, n)
		for i := range w {
			w[i] = rng.NormFloat64()
		}
		return w
	}
	for i := 0; i < block && len(basis) < m; i++ {
		add(randVec())
	}
	last := 0
	for len(basis) < m {
		cur := len(basis)
		grew := false
		for i := last; i < cur && len(basis) < m; i++ {
			w := append([]float64(nil), images[i]...)
			if add(w) {
				grew = true
			}
		}
		last = cur
		if !grew {
			// 不变子空间：补随机方向
			tries := 0
			for len(basis) == cur && tries < 3 {
				add(randVec())
				tries++
			}
			if len(basis) == cur {
				break
			}
		}
	}
	mm := len(basis)
	if mm < k {
		return nil, nil, fmt.Errorf("%w: krylov basis %d < k %d", errEigen, mm, k)
	}
	h := mat.NewSymDense(mm, nil)
	for i := 0; i < mm; i++ {
		for j := i; j < mm; j++ {
			v := 0.5 * (floats.Dot(basis[i], images[j]) + floats.Dot(basis[j], images[i]))
			h.SetSym(i, j, v)
		}
	}
	vals, small, err := denseTop(h, k)
	if err != nil {
		return nil, nil, err
	}
	vecs := make([][]float64, k)
	for c := 0; c < k; c++ {
		y := make([]float64, n)
		for i := 0; i < mm; i++ {
			floats.AddScaled(y, small[c][i], basis[i])
		}
		if nrm := floats.Norm(y, 2); nrm > 0 {
			floats.Scale(1/nrm, y)
		}
		vecs[c] = y
	}
	return vals, vecs, nil
}

// residual：|A y - λ y|
func residual(op symOperator, val float64, y []float64) float64 {
	ay := make([]float64, len(y))
	op.MulVec(ay, y)
	floats.AddScaled(ay, -val, y)
	return floats.Norm(ay, 2)
}

func descending(vals []float64) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })
	return order
}
