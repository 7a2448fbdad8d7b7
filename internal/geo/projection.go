package geo

import (
	"github.com/tidwall/geodesic"
)

// 文档注释：局部平面投影
// 背景：在城市尺度上用度数计算欧氏距离会因经线收敛而失真；改为以原点为参照，分别沿纬线与经线取椭球测地距离。
// 约束：Y 为 (lat, 原点经度) 到原点的测地距离，X 为 (原点纬度, lon) 到原点的测地距离；位于原点以南/以西取负值。单位千米。
type Projector struct {
	origin Point
}

func NewProjector(origin Point) *Projector { return &Projector{origin: origin} }

func (p *Projector) Origin() Point { return p.origin }

func (p *Projector) Project(pt Point) Planar {
	y := distanceKm(pt.Lat, p.origin.Lon, p.origin.Lat, p.origin.Lon)
	if pt.Lat < p.origin.Lat {
		y = -y
	}
	x := distanceKm(p.origin.Lat, pt.Lon, p.origin.Lat, p.origin.Lon)
	if pt.Lon < p.origin.Lon {
		x = -x
	}
	return Planar{X: x, Y: y}
}

// 椭球测地距离（WGS84），千米
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &s12, nil, nil)
	return s12 / 1000
}
