// 包 poi：兴趣点与参考场馆的读取、区域过滤、缓冲区排除与抽样
package poi

import (
	"context"
	"errors"

	"poi-heatmap/internal/geo"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points for sample")
	ErrMissingColumn      = errors.New("missing column")
)

// 文档注释：兴趣点记录
// 约束：只保留标识与坐标，源表其他属性不参与计算
type Record struct {
	ID  string
	Lat float64
	Lon float64
}

func (r Record) Point() geo.Point { return geo.Point{Lat: r.Lat, Lon: r.Lon} }

// 文档注释：参考场馆（影院等），用于构建排除缓冲区
type Venue struct {
	Name string
	Lat  float64
	Lon  float64
}

func (v Venue) Point() geo.Point { return geo.Point{Lat: v.Lat, Lon: v.Lon} }

// 文档注释：兴趣点数据源
// 约束：整表拉取，不向源端下推过滤条件
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}
