package cluster

import (
	"context"
	"math"
	"math/rand"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/floats"

	"poi-heatmap/internal/logger"
)

const maxLloydIter = 300

// 嵌入空间中的观测点
type observation struct {
	c clusters.Coordinates
}

func (o observation) Coordinates() clusters.Coordinates { return o.c }

// Distance：平方欧氏距离
func (o observation) Distance(p clusters.Coordinates) float64 {
	var d float64
	for i, v := range o.c {
		dd := v - p[i]
		d += dd * dd
	}
	return d
}

// 文档注释：k-means 标签分配
// 约束：每次重启用 k-means++ 播种，随机源由调用方提供。
// 返回：惯性（平方距离和）最小的一次结果。
func assign(ctx context.Context, emb [][]float64, k, nInit int, rng *rand.Rand) ([]int, float64, error) {
	if nInit < 1 {
		nInit = 1
	}
	obs := make(clusters.Observations, len(emb))
	for i, e := range emb {
		obs[i] = observation{c: clusters.Coordinates(e)}
	}
	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < nInit; r++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		cc := seedCenters(obs, k, rng)
		labels, inertia, iters := lloyd(obs, cc)
		logger.L().Debug("cluster_kmeans_run", "run", r, "iterations", iters, "inertia", inertia)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best, bestInertia, nil
}

// seedCenters：k-means++，按到已选中心的平方距离加权抽取
func seedCenters(obs clusters.Observations, k int, rng *rand.Rand) clusters.Clusters {
	n := len(obs)
	cc := make(clusters.Clusters, 0, k)
	cc = append(cc, clusters.Cluster{Center: cloneCoords(obs[rng.Intn(n)].Coordinates())})
	d2 := make([]float64, n)
	for i, o := range obs {
		d2[i] = o.Distance(cc[0].Center)
	}
	for len(cc) < k {
		pick := rng.Intn(n)
		if sum := floats.Sum(d2); sum > 0 {
			r := rng.Float64() * sum
			for pick = 0; pick < n-1; pick++ {
				r -= d2[pick]
				if r < 0 {
					break
				}
			}
		}
		c := cloneCoords(obs[pick].Coordinates())
		cc = append(cc, clusters.Cluster{Center: c})
		for i, o := range obs {
			if d := o.Distance(c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return cc
}

// lloyd：迭代分配与重算中心直到标签不再变化
// 约束：出现空簇时，把离所属中心最远的点（所在簇至少两个点）移入空簇
func lloyd(obs clusters.Observations, cc clusters.Clusters) ([]int, float64, int) {
	labels := make([]int, len(obs))
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for ; iter < maxLloydIter; iter++ {
		changed := 0
		for i, o := range obs {
			ci := cc.Nearest(o)
			if labels[i] != ci {
				labels[i] = ci
				changed++
			}
		}
		changed += fillEmpty(obs, cc, labels)
		cc.Reset()
		for i, o := range obs {
			cc[labels[i]].Append(o)
		}
		cc.Recenter()
		if changed == 0 {
			break
		}
	}
	inertia := 0.0
	for i, o := range obs {
		inertia += o.Distance(cc[labels[i]].Center)
	}
	return labels, inertia, iter
}

func fillEmpty(obs clusters.Observations, cc clusters.Clusters, labels []int) int {
	sizes := make([]int, len(cc))
	for _, lb := range labels {
		sizes[lb]++
	}
	moved := 0
	for ci := range cc {
		if sizes[ci] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, o := range obs {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := o.Distance(cc[labels[i]].Center); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			break
		}
		sizes[labels[far]]--
		labels[far] = ci
		sizes[ci]++
		cc[ci].Center = cloneCoords(obs[far].Coordinates())
		moved++
	}
	return moved
}

func cloneCoords(c clusters.Coordinates) clusters.Coordinates {
	return append(clusters.Coordinates(nil), c...)
}
