package stic

// Output frame dimensions in pixels
const (
	FrameWidth  = 160
	FrameHeight = 200
)

// Frame is one composed picture as 4-bit palette indices, one byte per pixel
type Frame [FrameWidth * FrameHeight]uint8

// Packed 4-bpp display lists are 24 words (192 pixels) wide. The first word
// holds the left border area, so background column c lives in word c+1.
const (
	rowWords  = 24
	bmpWords  = 6
	mplRows   = 224
	xbtRows   = 112
	GMemSize  = 4096
	gromSize  = 2048
	numMOBs   = 8
	mobRows   = 16
	activeTop = 16  // first active display row in the plane image
	activeBot = 208 // first bottom border row in the plane image
)

// FrameBuffers holds the per-frame display lists. They are overwritten in
// place every frame.
type FrameBuffers struct {
	t *Tables

	btBmp  [BacktabSize * 8]uint8     // 1-bpp background, 8 rows per card
	lastBg [backtabRows]uint32        // last background color per card row
	mobImg [2 * mobRows]uint32        // scratch MOB image, 2 words per row
	mobBmp [numMOBs][mobRows]uint16   // per-MOB 1-bpp bitmaps
	mplImg [mplRows * rowWords]uint32 // MOB color plane
	mplVsb [mplRows * bmpWords]uint32 // MOB visibility plane
	mplPri [mplRows * bmpWords]uint32 // MOB priority plane
	xbtImg [xbtRows * rowWords]uint32 // background color plane
	xbtBmp [xbtRows * bmpWords]uint32 // background 1-bpp plane, retiled
	image  [mplRows * rowWords]uint32 // composed 4-bpp image
}

// frameInputs is what the pipeline reads to produce one frame
type frameInputs struct {
	regs     *RegisterFile
	gmem     *[GMemSize]uint8
	btab     *[BacktabSize]uint16
	gramMask uint32
	stic1a   bool
	fgbg     bool
	dropping bool
}

func newFrameBuffers(t *Tables) *FrameBuffers {
	return &FrameBuffers{t: t}
}

// compose renders the background and MOB layers and merges them into image
func (fb *FrameBuffers) compose(in *frameInputs) {
	if in.fgbg {
		fb.drawForegroundBackground(in)
	} else {
		fb.drawColorStack(in)
	}
	fb.drawMOBs(in)
	fb.fixBorder(in)
	fb.mergePlanes(in)
}

// pushVideo unpacks the visible part of the image into out. Row 12 of the
// plane image is the top of the output; word 0 and words 21-23 are never
// shown.
func (fb *FrameBuffers) pushVideo(out *Frame) {
	o := 0
	for y := 12; y < 12+FrameHeight; y++ {
		src := fb.image[y*rowWords+1 : y*rowWords+21]
		for _, pix := range src {
			for k := 0; k < 8; k++ {
				out[o] = uint8(pix>>(28-4*k)) & 0xF
				o++
			}
		}
	}
}
