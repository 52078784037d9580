package graphics

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const overlayLineHeight = 13

// DrawStatus draws lines of shadowed text in the top-left corner of dst
func DrawStatus(dst draw.Image, lines ...string) {
	face := basicfont.Face7x13
	for i, s := range lines {
		if s == "" {
			continue
		}
		dot := fixed.P(2, 2+face.Ascent+i*overlayLineHeight)
		drawShadowedString(dst, face, image.NewUniform(color.White), dot, s)
	}
}

func drawShadowedString(dst draw.Image, face font.Face, clr image.Image, dot fixed.Point26_6, s string) {
	for _, off := range [][2]int{{1, 1}, {1, 0}, {0, 1}} {
		(&font.Drawer{
			Dst:  dst,
			Src:  image.Black,
			Face: face,
			Dot:  fixed.Point26_6{X: dot.X + fixed.I(off[0]), Y: dot.Y + fixed.I(off[1])},
		}).DrawString(s)
	}
	(&font.Drawer{
		Dst:  dst,
		Src:  clr,
		Face: face,
		Dot:  dot,
	}).DrawString(s)
}

// MeasureStatus returns the pixel width of s in the overlay font
func MeasureStatus(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}
