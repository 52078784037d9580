package graphics

import (
	"image/color"
	"math"
)

// VideoProcessor applies picture controls to a palette. The chip only ever
// produces 16 colors, so adjusting the palette once is enough to adjust
// every frame.
type VideoProcessor struct {
	brightness float64
	contrast   float64
	saturation float64
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(brightness, contrast, saturation float64) *VideoProcessor {
	return &VideoProcessor{
		brightness: brightness,
		contrast:   contrast,
		saturation: saturation,
	}
}

// Identity reports whether the processor leaves colors unchanged
func (vp *VideoProcessor) Identity() bool {
	return vp.brightness == 1 && vp.contrast == 1 && vp.saturation == 1
}

// ProcessPalette returns p with brightness, contrast and saturation applied
func (vp *VideoProcessor) ProcessPalette(p Palette) Palette {
	if vp.Identity() {
		return p
	}
	var out Palette
	for i, c := range p {
		out[i] = vp.processColor(c)
	}
	return out
}

func (vp *VideoProcessor) processColor(c color.RGBA) color.RGBA {
	r := float64(c.R) / 255 * vp.brightness
	g := float64(c.G) / 255 * vp.brightness
	b := float64(c.B) / 255 * vp.brightness

	r = (r-0.5)*vp.contrast + 0.5
	g = (g-0.5)*vp.contrast + 0.5
	b = (b-0.5)*vp.contrast + 0.5

	if vp.saturation != 1 {
		h, s, l := rgbToHSL(clamp01(r), clamp01(g), clamp01(b))
		r, g, b = hslToRGB(h, math.Min(s*vp.saturation, 1), l)
	}

	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: c.A}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

// rgbToHSL converts RGB in [0,1] to HSL
func rgbToHSL(r, g, b float64) (h, s, l float64) {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	l = (hi + lo) / 2

	if hi == lo {
		return 0, 0, l
	}

	d := hi - lo
	if l > 0.5 {
		s = d / (2 - hi - lo)
	} else {
		s = d / (hi + lo)
	}

	switch hi {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

// hslToRGB converts HSL back to RGB in [0,1]
func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
