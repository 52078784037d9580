package stic

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
)

// GRAM sheet colors
const (
	gramOff = iota
	gramOnEven
	gramOnOdd
	gramGridPixel
	gramGridCard
)

// GRAMPalette is the palette of images returned by GRAMImage
var GRAMPalette = color.Palette{
	color.RGBA{0, 0, 0, 0xFF},
	color.RGBA{255, 128, 128, 0xFF},
	color.RGBA{128, 128, 255, 0xFF},
	color.RGBA{128, 64, 128, 0xFF},
	color.RGBA{128, 255, 255, 0xFF},
}

// GRAMImage renders every GRAM card as an 8x8 block of 8x8 pixel squares
// with grid lines between pixels and thicker lines between cards. Cards are
// laid out 8 or 16 to a row depending on the GRAM size.
func (s *STIC) GRAMImage() *image.Paletted {
	size := s.cfg.GRAMSize
	dimX, dimY := 578, 578
	if size >= 2 {
		dimX = 1154
	}
	if size >= 1 {
		dimY = 1154
	}

	img := image.NewPaletted(image.Rect(0, 0, dimX, dimY), GRAMPalette)
	pix := img.Pix

	for g := 0; g < 64<<size; g++ {
		cc, rr := g&7, g>>3
		if size >= 2 {
			cc, rr = g&15, g>>4
		}
		c, r := 72*cc, 72*rr
		on := uint8(gramOnEven)
		if (cc^rr)&1 != 0 {
			on = gramOnOdd
		}

		for y := 0; y < 8; y++ {
			bits := s.gmem[0x800+g*8+y]
			for x := 0; x < 8; x++ {
				if (bits<<x)&0x80 == 0 {
					continue
				}
				for yy := 0; yy < 8; yy++ {
					row := (1 + r + y*9 + yy) * dimX
					for xx := 0; xx < 8; xx++ {
						pix[row+x*9+xx+c+1] = on
					}
				}
			}
		}
	}

	for r := 0; r < dimY; r += 9 {
		fill(pix[r*dimX:(r+1)*dimX], gramGridPixel)
	}
	for c := 0; c < dimX; c += 9 {
		for r := 0; r < dimY; r++ {
			pix[r*dimX+c] = gramGridPixel
		}
	}
	for r := 0; r < dimY; r += 72 {
		end := min((r+2)*dimX, len(pix))
		fill(pix[r*dimX:end], gramGridCard)
	}
	for c := 0; c < dimX; c += 72 {
		for r := 0; r < dimY; r++ {
			pix[r*dimX+c] = gramGridCard
			if c+1 < dimX {
				pix[r*dimX+c+1] = gramGridCard
			}
		}
	}
	return img
}

func fill(b []uint8, v uint8) {
	for i := range b {
		b[i] = v
	}
}

// WriteGRAMText writes count GRAM cards starting at start as '#' and '.'
// pictures, as many side by side as fit in width columns (at most 8).
func (s *STIC) WriteGRAMText(w io.Writer, start, count, width int) error {
	if start < 0 || count < 1 {
		return nil
	}
	batchMax := min(max((width-4)/9, 1), 8)

	bw := bufio.NewWriter(w)
	for i := 0; i < count; i += batchMax {
		card := i + start
		batch := min(count-i, batchMax)

		fmt.Fprint(bw, "   ")
		for col := 0; col < batch; col++ {
			fmt.Fprintf(bw, " %-3d   %2X", card+col, card+col)
		}
		fmt.Fprintln(bw)

		for row := 0; row < 8; row++ {
			line := make([]byte, 0, batch*9)
			for col := 0; col < batch; col++ {
				addr := uint32((card+col)*8+row) + 0x800
				bits := s.gmem[addr&(s.gramMask|7)]
				for b := 7; b >= 0; b-- {
					if bits&(1<<b) != 0 {
						line = append(line, '#')
					} else {
						line = append(line, '.')
					}
				}
				line = append(line, ' ')
			}
			line[len(line)-1] = '\n'
			fmt.Fprintf(bw, "%d:  %s", row, line)
		}

		if i+batch < count {
			fmt.Fprintln(bw)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write GRAM text: %v", err)
	}
	return nil
}
