package graphics

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"gointv/internal/stic"
)

// Palette maps the chip's 16 color indices to RGB
type Palette [16]color.RGBA

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// NTSCPalette is the default palette for NTSC machines, matched against
// capture-card output.
var NTSCPalette = Palette{
	rgb(0x00, 0x00, 0x00), // black
	rgb(0x14, 0x38, 0xF7), // blue
	rgb(0xE3, 0x5B, 0x0E), // red
	rgb(0xCB, 0xF1, 0x68), // tan
	rgb(0x00, 0x94, 0x28), // dark green
	rgb(0x07, 0xC2, 0x00), // green
	rgb(0xFF, 0xFF, 0x01), // yellow
	rgb(0xFF, 0xFF, 0xFF), // white
	rgb(0xC8, 0xC8, 0xC8), // grey
	rgb(0x23, 0xCE, 0xC3), // cyan
	rgb(0xFD, 0x99, 0x18), // orange
	rgb(0x3A, 0x8A, 0x00), // brown
	rgb(0xF0, 0x46, 0x3C), // pink
	rgb(0xD3, 0x83, 0xFF), // light blue
	rgb(0x48, 0xF6, 0x01), // yellow-green
	rgb(0xB8, 0x11, 0x78), // purple
}

// PALPalette is the default palette for PAL machines
var PALPalette = Palette{
	rgb(0x00, 0x00, 0x00),
	rgb(0x00, 0x75, 0xFF),
	rgb(0xFF, 0x4C, 0x39),
	rgb(0xD1, 0xB9, 0x51),
	rgb(0x09, 0xB9, 0x00),
	rgb(0x30, 0xDF, 0x10),
	rgb(0xFF, 0xE5, 0x01),
	rgb(0xFF, 0xFF, 0xFF),
	rgb(0x8C, 0x8C, 0x8C),
	rgb(0x28, 0xE5, 0xC0),
	rgb(0xFF, 0xA0, 0x2E),
	rgb(0x64, 0x67, 0x00),
	rgb(0xFF, 0x29, 0xFF),
	rgb(0x8C, 0x8F, 0xFF),
	rgb(0x7C, 0xED, 0x00),
	rgb(0xC4, 0x2B, 0xFC),
}

// ClassicPalette is an older eyeballed NTSC palette, kept for people used
// to it
var ClassicPalette = Palette{
	rgb(0x00, 0x00, 0x00),
	rgb(0x00, 0x2D, 0xFF),
	rgb(0xFF, 0x3D, 0x10),
	rgb(0xC9, 0xCF, 0xAB),
	rgb(0x38, 0x6B, 0x3F),
	rgb(0x00, 0xA7, 0x56),
	rgb(0xFA, 0xEA, 0x50),
	rgb(0xFF, 0xFC, 0xFF),
	rgb(0xBD, 0xAC, 0xC8),
	rgb(0x24, 0xB8, 0xFF),
	rgb(0xFF, 0xB4, 0x1F),
	rgb(0x54, 0x6E, 0x00),
	rgb(0xFF, 0x4E, 0x57),
	rgb(0xA4, 0x96, 0xFF),
	rgb(0x75, 0xCC, 0x80),
	rgb(0xB5, 0x1A, 0x58),
}

// PaletteByName looks up a palette by its configuration name. An empty
// name picks the default for the region.
func PaletteByName(name string, region stic.Region) (Palette, error) {
	switch strings.ToLower(name) {
	case "":
		if region == stic.PAL {
			return PALPalette, nil
		}
		return NTSCPalette, nil
	case "ntsc":
		return NTSCPalette, nil
	case "pal":
		return PALPalette, nil
	case "classic":
		return ClassicPalette, nil
	default:
		return Palette{}, fmt.Errorf("unknown palette %q", name)
	}
}

// ColorPalette returns p as a color.Palette for paletted images
func (p Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = c
	}
	return out
}

// FrameImage wraps a copy of f in a paletted image using p
func FrameImage(f *stic.Frame, p Palette) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, stic.FrameWidth, stic.FrameHeight), p.ColorPalette())
	for i, c := range f {
		img.Pix[i] = c & 0xF
	}
	return img
}

// FrameToRGBA converts f into dst, which must be at least 160x200
func FrameToRGBA(f *stic.Frame, p Palette, dst *image.RGBA) {
	src := FrameImage(f, p)
	draw.Draw(dst, src.Bounds(), src, image.Point{}, draw.Src)
}

// Fill paints dst with color index c
func (p Palette) Fill(dst *image.RGBA, c uint8) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p[c&0xF]), image.Point{}, draw.Src)
}
