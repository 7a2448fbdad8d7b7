package poi

import (
	"fmt"
	"math/rand"
	"time"
)

// NewRand：seeded 为 false 时按当前时间播种，与未固定种子的行为一致
func NewRand(seed int64, seeded bool) *rand.Rand {
	if !seeded {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// 文档注释：无放回均匀抽样
// 约束：可用点少于 n 时返回 ErrInsufficientPoints；结果顺序随机；不修改输入切片。
func Sample(in []Record, n int, rng *rand.Rand) ([]Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative sample size %d", n)
	}
	if len(in) < n {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrInsufficientPoints, len(in), n)
	}
	if rng == nil {
		rng = NewRand(0, false)
	}
	idx := make([]int, len(in))
	for i := range idx {
		idx[i] = i
	}
	// 部分 Fisher-Yates：只洗前 n 个位置
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = in[idx[i]]
	}
	return out, nil
}
