// 包 cluster：基于相似图的谱聚类（近邻图/RBF 亲和 → 归一化谱嵌入 → k-means 分配标签）
package cluster

import (
	"errors"
	"fmt"
)

type Affinity string

const (
	AffinityNearestNeighbors Affinity = "nearest_neighbors"
	AffinityRBF              Affinity = "rbf"
)

// MaxDenseRBF：RBF 亲和矩阵为稠密矩阵，超过该点数拒绝构建
const MaxDenseRBF = 4000

var ErrBadK = errors.New("bad cluster count")

// 文档注释：谱聚类参数
// 约束：Seeded 为 false 时每次运行结果不同；标签只是分组编号，不保证跨运行稳定。
type Options struct {
	K         int
	Affinity  Affinity
	Neighbors int     // 近邻图的邻居数（含自身）
	Gamma     float64 // RBF 核系数
	KrylovDim int     // Krylov 子空间维数上限
	NInit     int     // k-means 重启次数，取惯性最小者
	Seed      int64
	Seeded    bool
}

func DefaultOptions() Options {
	return Options{
		K:         5,
		Affinity:  AffinityNearestNeighbors,
		Neighbors: 10,
		Gamma:     1.0,
		KrylovDim: 300,
		NInit:     10,
	}
}

func (o Options) validate(n int) error {
	if o.K < 1 {
		return fmt.Errorf("%w: k=%d", ErrBadK, o.K)
	}
	if o.K > n {
		return fmt.Errorf("%w: k=%d exceeds %d points", ErrBadK, o.K, n)
	}
	switch o.Affinity {
	case AffinityNearestNeighbors:
		if o.Neighbors < 1 {
			return fmt.Errorf("bad neighbors %d", o.Neighbors)
		}
	case AffinityRBF:
		if !(o.Gamma > 0) {
			return fmt.Errorf("bad gamma %v", o.Gamma)
		}
		if n > MaxDenseRBF {
			return fmt.Errorf("rbf affinity limited to %d points, got %d", MaxDenseRBF, n)
		}
	default:
		return fmt.Errorf("unknown affinity %q", o.Affinity)
	}
	return nil
}
