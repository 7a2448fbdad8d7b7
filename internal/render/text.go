package render

import (
	"image"
	"image/color"
	"strconv"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	fontOnce sync.Once
	goFont   *opentype.Font
	fontErr  error
)

func regular() (*opentype.Font, error) {
	fontOnce.Do(func() { goFont, fontErr = opentype.Parse(goregular.TTF) })
	return goFont, fontErr
}

// drawText：标题居中置顶，图例位于右下角
// 约束：字号随画布宽度缩放，最小 10pt
func drawText(dst *image.RGBA, title string, legend bool, lo, hi int) error {
	if title == "" && !legend {
		return nil
	}
	f, err := regular()
	if err != nil {
		return err
	}
	w := dst.Bounds().Dx()
	size := float64(w) / 100
	if size < 10 {
		size = 10
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return err
	}
	defer face.Close()
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: face}
	m := face.Metrics()
	lineH := (m.Ascent + m.Descent).Ceil()
	pad := lineH / 2

	if title != "" {
		tw := d.MeasureString(title).Ceil()
		d.Dot = fixed.P((w-tw)/2, pad+m.Ascent.Ceil())
		d.DrawString(title)
	}
	if !legend {
		return nil
	}
	n := hi - lo + 1
	labelW := d.MeasureString("cluster " + strconv.Itoa(hi)).Ceil()
	boxW := pad + lineH + pad + labelW + pad
	boxH := pad + n*(lineH+pad/2) + pad/2
	b := dst.Bounds()
	box := image.Rect(b.Max.X-boxW-pad, b.Max.Y-boxH-pad, b.Max.X-pad, b.Max.Y-pad)
	draw.Draw(dst, box, image.NewUniform(color.NRGBA{255, 255, 255, 200}), image.Point{}, draw.Over)
	for i := 0; i < n; i++ {
		top := box.Min.Y + pad + i*(lineH+pad/2)
		sw := image.Rect(box.Min.X+pad, top, box.Min.X+pad+lineH, top+lineH)
		draw.Draw(dst, sw, image.NewUniform(LabelColor(lo+i, lo, hi)), image.Point{}, draw.Src)
		d.Dot = fixed.P(sw.Max.X+pad, top+m.Ascent.Ceil())
		d.DrawString("cluster " + strconv.Itoa(lo+i))
	}
	return nil
}
