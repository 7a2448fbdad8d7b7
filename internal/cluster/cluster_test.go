package cluster

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"poi-heatmap/internal/geo"
)

type diagOp []float64

func (d diagOp) Len() int { return len(d) }
func (d diagOp) MulVec(dst, x []float64) {
	for i, v := range d {
		dst[i] = v * x[i]
	}
}

func TestKrylovTopSeparatedSpectrum(t *testing.T) {
	n := 1500
	d := make(diagOp, n)
	for i := range d {
		d[i] = float64(i) / float64(n)
	}
	d[17], d[400], d[1203] = 4, 3, 2
	vals, vecs, err := topEigen(d, 3, 120, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 3, 2}, vals, 1e-8)
	for c, at := range []int{17, 400, 1203} {
		assert.InDelta(t, 1, math.Abs(vecs[c][at]), 1e-6)
	}
}

func TestKrylovTopRepeatedEigenvalue(t *testing.T) {
	n := 1200
	d := make(diagOp, n)
	for i := range d {
		d[i] = 0.5 * float64(i) / float64(n)
	}
	hot := []int{5, 600, 1100}
	for _, i := range hot {
		d[i] = 1
	}
	vals, vecs, err := topEigen(d, 3, 90, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, vals, 1e-8)
	for c := range vecs {
		w := 0.0
		for _, i := range hot {
			w += vecs[c][i] * vecs[c][i]
		}
		assert.InDelta(t, 1, w, 1e-6)
	}
}

func TestDenseTopMatchesDiagonal(t *testing.T) {
	d := diagOp{0.1, 0.9, 0.3, 0.7}
	vals, vecs, err := topEigen(&wrapDense{d}, 2, 10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.9, 0.7}, vals, 1e-12)
	assert.InDelta(t, 1, math.Abs(vecs[0][1]), 1e-12)
	assert.InDelta(t, 1, math.Abs(vecs[1][3]), 1e-12)
}

type wrapDense struct{ diagOp }

func (w *wrapDense) dense() *mat.SymDense {
	n := len(w.diagOp)
	s := mat.NewSymDense(n, nil)
	for i, v := range w.diagOp {
		s.SetSym(i, i, v)
	}
	return s
}

// blobs：k 个相距 0.1° 的紧密点团
func blobs(k, per int, seed int64) ([]geo.Point, []int) {
	rng := rand.New(rand.NewSource(seed))
	var pts []geo.Point
	var truth []int
	for b := 0; b < k; b++ {
		cLat := 40.3 + 0.1*float64(b%3)
		cLon := -3.9 + 0.1*float64(b/3)
		for i := 0; i < per; i++ {
			pts = append(pts, geo.Point{Lat: cLat + rng.NormFloat64()*0.002, Lon: cLon + rng.NormFloat64()*0.002})
			truth = append(truth, b)
		}
	}
	// 打乱顺序，避免依赖输入排列
	rng.Shuffle(len(pts), func(i, j int) {
		pts[i], pts[j] = pts[j], pts[i]
		truth[i], truth[j] = truth[j], truth[i]
	})
	return pts, truth
}

func assertRecovers(t *testing.T, res *Result, truth []int, k int) {
	t.Helper()
	require.Len(t, res.Labels, len(truth))
	byTruth := map[int]int{}
	used := map[int]bool{}
	for i, lb := range res.Labels {
		require.GreaterOrEqual(t, lb, 0)
		require.Less(t, lb, k)
		if prev, ok := byTruth[truth[i]]; ok {
			require.Equal(t, prev, lb, "blob %d split", truth[i])
			continue
		}
		require.False(t, used[lb], "label %d shared by two blobs", lb)
		byTruth[truth[i]] = lb
		used[lb] = true
	}
	assert.Len(t, byTruth, k)
	total := 0
	for _, s := range res.Sizes {
		total += s
	}
	assert.Equal(t, len(truth), total)
}

func TestSpectralNearestNeighborsDense(t *testing.T) {
	pts, truth := blobs(5, 60, 1)
	opts := DefaultOptions()
	opts.Seed, opts.Seeded = 9, true
	res, err := Spectral(context.Background(), pts, opts)
	require.NoError(t, err)
	assertRecovers(t, res, truth, 5)
	assert.Equal(t, 0, res.Labels[0])
}

func TestSpectralNearestNeighborsKrylov(t *testing.T) {
	pts, truth := blobs(5, 240, 2)
	require.Greater(t, len(pts), denseEigenLimit)
	opts := DefaultOptions()
	opts.Seed, opts.Seeded = 3, true
	res, err := Spectral(context.Background(), pts, opts)
	require.NoError(t, err)
	assertRecovers(t, res, truth, 5)
	for _, v := range res.Eigenvalues {
		assert.InDelta(t, 1, v, 1e-6)
	}
}

func TestSpectralRBF(t *testing.T) {
	pts, truth := blobs(4, 50, 4)
	opts := DefaultOptions()
	opts.K = 4
	opts.Affinity = AffinityRBF
	opts.Gamma = 1e4
	res, err := Spectral(context.Background(), pts, opts)
	require.NoError(t, err)
	assertRecovers(t, res, truth, 4)
}

func TestSpectralSeededIsReproducible(t *testing.T) {
	pts, _ := blobs(5, 40, 5)
	opts := DefaultOptions()
	opts.Seed, opts.Seeded = 11, true
	a, err := Spectral(context.Background(), pts, opts)
	require.NoError(t, err)
	b, err := Spectral(context.Background(), pts, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)
}

func TestSpectralSingleCluster(t *testing.T) {
	pts, _ := blobs(2, 5, 6)
	opts := DefaultOptions()
	opts.K = 1
	res, err := Spectral(context.Background(), pts, opts)
	require.NoError(t, err)
	assert.Equal(t, make([]int, 10), res.Labels)
}

func TestSpectralValidation(t *testing.T) {
	pts, _ := blobs(1, 4, 7)
	ctx := context.Background()

	opts := DefaultOptions()
	opts.K = 0
	_, err := Spectral(ctx, pts, opts)
	assert.ErrorIs(t, err, ErrBadK)

	opts = DefaultOptions()
	_, err = Spectral(ctx, pts, opts)
	assert.ErrorIs(t, err, ErrBadK)

	same := []geo.Point{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 1}}
	opts.K = 2
	_, err = Spectral(ctx, same, opts)
	assert.ErrorIs(t, err, ErrBadK)

	opts = DefaultOptions()
	opts.K = 2
	opts.Affinity = "cosine"
	_, err = Spectral(ctx, pts, opts)
	assert.Error(t, err)

	big := make([]geo.Point, MaxDenseRBF+1)
	opts.Affinity = AffinityRBF
	_, err = Spectral(ctx, big, opts)
	assert.Error(t, err)
}

func TestSpectralCancelled(t *testing.T) {
	pts, _ := blobs(5, 30, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Spectral(ctx, pts, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKNNAffinitySymmetricWithSelf(t *testing.T) {
	pts := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}, {Lat: 0, Lon: 10}}
	a := knnAffinity(pts, 2)
	w := map[[2]int]float64{}
	for i, es := range a.adj {
		for _, e := range es {
			w[[2]int{i, e.j}] = e.w
		}
	}
	for k, v := range w {
		assert.Equal(t, v, w[[2]int{k[1], k[0]}])
	}
	for i := range pts {
		assert.Equal(t, 1.0, w[[2]int{i, i}])
	}
	deg := a.Degrees()
	assert.Len(t, deg, 4)
	for _, d := range deg {
		assert.Greater(t, d, 0.0)
	}
}

func TestRelabel(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0, 2, 1}, relabel([]int{3, 1, 3, 0, 1}, 4))
}

func TestConvergedComparesResidualWithGap(t *testing.T) {
	gap, ok := converged([]float64{1, 0.999, 0.99}, 2, 1e-5)
	assert.InDelta(t, 0.009, gap, 1e-12)
	assert.True(t, ok)

	// 残差与间隔同量级：前 K 个特征向量可能混入第 K+1 个
	_, ok = converged([]float64{1, 0.9988, 0.9976}, 2, 9.4e-4)
	assert.False(t, ok)

	_, ok = converged([]float64{1, 0.5}, 2, 1)
	assert.True(t, ok)
}
