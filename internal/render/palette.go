package render

import (
	"image/color"
	"math"
)

// viridis 色带的九个等距锚点
var viridis = [...]color.RGBA{
	{68, 1, 84, 255},
	{72, 40, 120, 255},
	{62, 73, 137, 255},
	{49, 104, 142, 255},
	{38, 130, 142, 255},
	{31, 158, 137, 255},
	{53, 183, 121, 255},
	{110, 206, 88, 255},
	{253, 231, 37, 255},
}

// Viridis：t ∈ [0,1] 上的线性插值颜色，越界截断
func Viridis(t float64) color.RGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(viridis)-1)
	i := int(pos)
	if i >= len(viridis)-1 {
		return viridis[len(viridis)-1]
	}
	f := pos - float64(i)
	a, b := viridis[i], viridis[i+1]
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + f*(float64(y)-float64(x)))) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

// LabelColor：标签 lb 在 [lo, hi] 范围内归一化后取色
func LabelColor(lb, lo, hi int) color.RGBA {
	if hi <= lo {
		return Viridis(0)
	}
	return Viridis(float64(lb-lo) / float64(hi-lo))
}
