package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/logger"
)

// 文档注释：聚类结果
// 约束：Labels[i] 对应输入第 i 个点，取值 [0, K)；标签按首次出现顺序编号。
type Result struct {
	Labels      []int
	Sizes       []int
	Eigenvalues []float64
	Inertia     float64
}

// 文档注释：谱聚类
// 背景：直接在原始 (lat, lon) 度数坐标上构图，不使用缓冲区过滤时的平面投影。
// 流程：亲和图 → M = D^-1/2 W D^-1/2 的前 K 个特征向量 → 行除以 sqrt(度) 并做符号规范 → k-means++ 多次重启取最优。
func Spectral(ctx context.Context, pts []geo.Point, opts Options) (*Result, error) {
	n := len(pts)
	if err := opts.validate(n); err != nil {
		return nil, err
	}
	if d := distinct(pts); d < opts.K {
		return nil, fmt.Errorf("%w: %d distinct points for k=%d", ErrBadK, d, opts.K)
	}
	l := logger.L()
	if opts.K == 1 {
		return &Result{Labels: make([]int, n), Sizes: []int{n}}, nil
	}
	rng := newRand(opts)

	t0 := time.Now()
	var a affinity
	switch opts.Affinity {
	case AffinityRBF:
		a = rbfAffinity(pts, opts.Gamma)
	default:
		a = knnAffinity(pts, opts.Neighbors)
	}
	l.Debug("cluster_affinity_done", "affinity", string(opts.Affinity), "n", n, "duration_ms", time.Since(t0).Milliseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t1 := time.Now()
	m := normalize(a)
	vals, vecs, maxRes, err := embedding(m, opts, rng)
	if err != nil {
		return nil, err
	}
	l.Debug("cluster_embedding_done", "eigenvalues", vals, "max_residual", maxRes, "duration_ms", time.Since(t1).Milliseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emb := embed(vecs, m.invSqrt)
	labels, inertia, err := assign(ctx, emb, opts.K, opts.NInit, rng)
	if err != nil {
		return nil, err
	}
	labels = relabel(labels, opts.K)
	sizes := make([]int, opts.K)
	for _, lb := range labels {
		sizes[lb]++
	}
	l.Info("cluster_done", "n", n, "k", opts.K, "sizes", sizes, "inertia", inertia)
	return &Result{Labels: labels, Sizes: sizes, Eigenvalues: vals, Inertia: inertia}, nil
}

// 文档注释：前 K 个特征对
// 背景：多取一个特征值用于估计第 K 与第 K+1 个特征值之间的间隔；残差超过间隔的 residualGapRatio 倍时
// 子空间可能混入后续特征向量，此时把 Krylov 维度加倍重算一次，仍未收敛则告警后继续。
func embedding(m *normalized, opts Options, rng *rand.Rand) ([]float64, [][]float64, float64, error) {
	n := m.Len()
	want := opts.K
	if want < n {
		want++
	}
	krylov := opts.KrylovDim
	var (
		vals   []float64
		vecs   [][]float64
		maxRes float64
		gap    float64
		ok     bool
	)
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		vals, vecs, err = topEigen(m, want, krylov, rng)
		if err != nil {
			return nil, nil, 0, err
		}
		maxRes = 0
		for c := 0; c < opts.K; c++ {
			maxRes = math.Max(maxRes, residual(m, vals[c], vecs[c]))
		}
		gap, ok = converged(vals, opts.K, maxRes)
		if ok || n <= denseEigenLimit || krylov >= n {
			break
		}
		logger.L().Debug("cluster_eigen_retry", "krylov", krylov, "max_residual", maxRes, "gap", gap)
		krylov *= 2
	}
	if !ok {
		logger.L().Warn("cluster_eigen_unconverged", "krylov", krylov, "max_residual", maxRes, "gap", gap)
	}
	return vals[:opts.K], vecs[:opts.K], maxRes, nil
}

// 残差相对特征值间隔的上限
const residualGapRatio = 0.1

// converged：vals 至少含 k+1 个值时比较残差与 vals[k-1]-vals[k]；否则无从比较，视为收敛
func converged(vals []float64, k int, maxRes float64) (float64, bool) {
	if len(vals) <= k {
		return 0, true
	}
	gap := vals[k-1] - vals[k]
	return gap, maxRes <= residualGapRatio*gap
}

func newRand(o Options) *rand.Rand {
	seed := o.Seed
	if !o.Seeded {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func distinct(pts []geo.Point) int {
	seen := make(map[geo.Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// embed：行 i = (v_0[i], ..., v_k-1[i]) / sqrt(deg_i)；每列最大绝对值分量取正
func embed(vecs [][]float64, invSqrt []float64) [][]float64 {
	n := len(invSqrt)
	k := len(vecs)
	emb := make([][]float64, n)
	for i := range emb {
		emb[i] = make([]float64, k)
		for c := 0; c < k; c++ {
			emb[i][c] = vecs[c][i] * invSqrt[i]
		}
	}
	for c := 0; c < k; c++ {
		arg, best := 0, -1.0
		for i := 0; i < n; i++ {
			if a := math.Abs(emb[i][c]); a > best {
				arg, best = i, a
			}
		}
		if emb[arg][c] < 0 {
			for i := 0; i < n; i++ {
				emb[i][c] = -emb[i][c]
			}
		}
	}
	return emb
}

// relabel：按首次出现顺序重新编号
func relabel(labels []int, k int) []int {
	m := make(map[int]int, k)
	out := make([]int, len(labels))
	for i, lb := range labels {
		v, ok := m[lb]
		if !ok {
			v = len(m)
			m[lb] = v
		}
		out[i] = v
	}
	return out
}
