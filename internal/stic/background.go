package stic

// firstCardWord is where card 0, row 0 lands in xbtImg: 8 rows of top border
// area plus the left border word.
const firstCardWord = 8*rowWords + 1

// advanceCard steps the card row/column counters and records the row's last
// background color at the end of each row.
func (fb *FrameBuffers) advanceCard(c, r, bti *int, bg uint32) {
	if *c == backtabCols-1 {
		*c = 0
		fb.lastBg[*r] = bg
		*r++
		*bti += 8*rowWords - backtabCols
		return
	}
	*c++
}

// blitCard draws one 8x8 card from graphics memory at grIdx
func (fb *FrameBuffers) blitCard(in *frameInputs, grIdx uint32, bti, btl int, fg, bg uint32) {
	for yy := 0; yy < 8; yy++ {
		px := in.gmem[grIdx+uint32(yy)]
		msk := fb.t.b2n[px]
		fb.btBmp[btl+yy] = px
		fb.xbtImg[bti+yy*rowWords] = (fg & msk) | (bg &^ msk)
	}
}

// drawColorStack renders the background table in Color-Stack mode
func (fb *FrameBuffers) drawColorStack(in *frameInputs) {
	var cstk [4]uint32
	for i := range cstk {
		cstk[i] = colorMask[in.regs.Raw(RegColorStack+i)&0xF]
	}
	csIdx := 0
	bg := cstk[0]

	r, c := 0, 0
	bti, btl := firstCardWord, 0
	for bt := 0; bt < BacktabSize; bt, btl = bt+1, btl+8 {
		card := uint32(in.btab[bt])

		if card&0x1800 == 0x1000 {
			fb.coloredSquares(card, bg, bti, btl)
		} else {
			if card&0x2000 != 0 {
				csIdx = (csIdx + 1) & 3
				bg = cstk[csIdx]
			}

			grIdx := card & 0xFF8
			if card&0x800 != 0 {
				grIdx &= in.gramMask
			}
			fg := colorMask[((card>>9)&0x8)|(card&7)]
			fb.blitCard(in, grIdx, bti, btl, fg, bg)
		}

		fb.advanceCard(&c, &r, &bti, bg)
		bti++
	}
}

// coloredSquares renders a card as a 2x2 grid of flat colors. Color 7 shows
// the current stack color and does not count as foreground.
func (fb *FrameBuffers) coloredSquares(card, bg uint32, bti, btl int) {
	sq := [4]uint32{
		card & 7,
		(card >> 3) & 7,
		(card >> 6) & 7,
		((card >> 9) & 3) | ((card >> 11) & 4),
	}
	bmpTop, bmpBot := uint8(0xFF), uint8(0xFF)
	if sq[0] == 7 {
		sq[0] = bg & 0xF
		bmpTop &= 0x0F
	}
	if sq[1] == 7 {
		sq[1] = bg & 0xF
		bmpTop &= 0xF0
	}
	if sq[2] == 7 {
		sq[2] = bg & 0xF
		bmpBot &= 0x0F
	}
	if sq[3] == 7 {
		sq[3] = bg & 0xF
		bmpBot &= 0xF0
	}

	top := (0xFFFF0000 & colorMask[sq[0]]) | (0x0000FFFF & colorMask[sq[1]])
	bot := (0xFFFF0000 & colorMask[sq[2]]) | (0x0000FFFF & colorMask[sq[3]])
	for yy := 0; yy < 4; yy++ {
		fb.xbtImg[bti+yy*rowWords] = top
		fb.xbtImg[bti+(yy+4)*rowWords] = bot
		fb.btBmp[btl+yy] = bmpTop
		fb.btBmp[btl+yy+4] = bmpBot
	}
}

// drawForegroundBackground renders the background table in FG/BG mode, where
// each card carries its own background color and only 64 cards per memory
// are addressable.
func (fb *FrameBuffers) drawForegroundBackground(in *frameInputs) {
	r, c := 0, 0
	bti, btl := firstCardWord, 0
	for bt := 0; bt < BacktabSize; bt, btl = bt+1, btl+8 {
		card := uint32(in.btab[bt])

		grIdx := card & 0x9F8
		fg := colorMask[card&7]
		bg := colorMask[((card>>9)&0xB)|((card>>11)&0x4)]
		fb.blitCard(in, grIdx, bti, btl, fg, bg)

		fb.advanceCard(&c, &r, &bti, bg)
		bti++
	}
}
