// 包 render：把底图、插值网格、行政边界与样本点按图层顺序合成为一张 PNG
package render

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f32"
	"golang.org/x/image/vector"

	"poi-heatmap/internal/boundary"
	"poi-heatmap/internal/geo"
	"poi-heatmap/internal/grid"
	"poi-heatmap/internal/result"
)

var ErrBadCanvas = errors.New("render: canvas size must be positive")

// 文档注释：渲染参数
// 约束：MeshAlpha 取值 [0,1]；PointSize/LineWidth 以像素计。
type Options struct {
	Width      int
	MeshAlpha  float64
	PointColor color.RGBA
	PointSize  int
	LineColor  color.RGBA
	LineWidth  float32
	Title      string
	Legend     bool
}

func DefaultOptions() Options {
	return Options{
		Width:      3000,
		MeshAlpha:  0.2,
		PointColor: color.RGBA{255, 0, 0, 255},
		PointSize:  2,
		LineColor:  color.RGBA{40, 40, 40, 255},
		LineWidth:  1.5,
		Legend:     true,
	}
}

// Layers：自下而上的图层内容；任一项为空时跳过该层
type Layers struct {
	Base       image.Image
	Grid       *grid.Grid
	Boundaries []boundary.Line
	Points     []result.Row
}

// CanvasSize：高度按中纬度余弦修正，使东西与南北方向比例一致
func CanvasSize(b geo.BBox, width int) (int, int) {
	mid := (b.MinLat + b.MaxLat) / 2 * math.Pi / 180
	h := int(math.Round(float64(width) * b.LatSpan() / (b.LonSpan() * math.Cos(mid))))
	if h < 1 {
		h = 1
	}
	return width, h
}

// 经纬度到画布像素的线性映射
type frame struct {
	b    geo.BBox
	w, h float64
}

func (f frame) xy(lon, lat float64) (float64, float64) {
	return (lon - f.b.MinLon) / f.b.LonSpan() * f.w, (f.b.MaxLat - lat) / f.b.LatSpan() * f.h
}

// 文档注释：合成图像
// 流程：底图（缩放铺满）→ 半透明网格 → 边界描线 → 样本点 → 标题与图例。
func Render(b geo.BBox, ly Layers, opts Options) (*image.RGBA, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		return nil, ErrBadCanvas
	}
	w, h := CanvasSize(b, opts.Width)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	fr := frame{b: b, w: float64(w), h: float64(h)}

	if ly.Base != nil {
		draw.CatmullRom.Scale(dst, dst.Bounds(), ly.Base, ly.Base.Bounds(), draw.Src, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	}
	lo, hi := 0, 0
	if ly.Grid != nil && len(ly.Grid.Labels) > 0 {
		lo, hi = labelRange(ly.Grid.Labels)
		drawMesh(dst, fr, ly.Grid, lo, hi, opts.MeshAlpha)
	}
	drawLines(dst, fr, ly.Boundaries, opts.LineColor, opts.LineWidth)
	drawPoints(dst, fr, ly.Points, opts.PointColor, opts.PointSize)
	if err := drawText(dst, opts.Title, opts.Legend && ly.Grid != nil && len(ly.Grid.Labels) > 0, lo, hi); err != nil {
		return nil, err
	}
	return dst, nil
}

func labelRange(labels []int) (int, int) {
	lo, hi := labels[0], labels[0]
	for _, v := range labels[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// drawMesh：每个格点一个像素的小图，再最近邻放大到网格覆盖的画布区域
// 约束：格点 (r, c) 覆盖 [lon, lon+step) × [lat, lat+step)
func drawMesh(dst *image.RGBA, fr frame, g *grid.Grid, lo, hi int, alpha float64) {
	rows, cols := g.Rows(), g.Cols()
	if rows == 0 || cols == 0 {
		return
	}
	a := uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255))
	mesh := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		y := rows - 1 - r
		for c := 0; c < cols; c++ {
			col := LabelColor(g.At(r, c), lo, hi)
			mesh.SetNRGBA(c, y, color.NRGBA{col.R, col.G, col.B, a})
		}
	}
	x0, y1 := fr.xy(g.Lons[0], g.Lats[0])
	x1, y0 := fr.xy(g.Lons[cols-1]+g.Step, g.Lats[rows-1]+g.Step)
	rect := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
	draw.NearestNeighbor.Scale(dst, rect, mesh, mesh.Bounds(), draw.Over, nil)
}

// drawLines：每段线以矩形四边形光栅化
// 约束：所有四边形同向绕行，重叠处覆盖率累加后截断，不会互相抵消
func drawLines(dst *image.RGBA, fr frame, lines []boundary.Line, c color.RGBA, width float32) {
	if len(lines) == 0 || width <= 0 {
		return
	}
	bw, bh := dst.Bounds().Dx(), dst.Bounds().Dy()
	z := vector.NewRasterizer(bw, bh)
	z.DrawOp = draw.Over
	half := width / 2
	for _, ln := range lines {
		for i := 0; i+1 < len(ln.Points); i++ {
			ax, ay := fr.xy(ln.Points[i].Lon(), ln.Points[i].Lat())
			bx, by := fr.xy(ln.Points[i+1].Lon(), ln.Points[i+1].Lat())
			segment(z, f32.Vec2{float32(ax), float32(ay)}, f32.Vec2{float32(bx), float32(by)}, half)
		}
	}
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func segment(z *vector.Rasterizer, a, b f32.Vec2, half float32) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	// 法向量，端点沿方向各延长半个线宽
	nx, ny := -dy/l*half, dx/l*half
	ex, ey := dx/l*half, dy/l*half
	z.MoveTo(a[0]-ex+nx, a[1]-ey+ny)
	z.LineTo(b[0]+ex+nx, b[1]+ey+ny)
	z.LineTo(b[0]+ex-nx, b[1]+ey-ny)
	z.LineTo(a[0]-ex-nx, a[1]-ey-ny)
	z.ClosePath()
}

func drawPoints(dst *image.RGBA, fr frame, pts []result.Row, c color.RGBA, size int) {
	if size < 1 {
		size = 1
	}
	src := image.NewUniform(c)
	for _, p := range pts {
		x, y := fr.xy(p.Lon, p.Lat)
		x0 := int(math.Floor(x)) - (size-1)/2
		y0 := int(math.Floor(y)) - (size-1)/2
		r := image.Rect(x0, y0, x0+size, y0+size).Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, src, image.Point{}, draw.Over)
	}
}

// SavePNG：先写临时文件再改名
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := png.Encode(bw, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
