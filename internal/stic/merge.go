package stic

// retileBackground packs btBmp (8 bytes per card) into xbtBmp rows of 6
// words each, matching the MOB planes' layout: card 0 starts at bit 23 of
// word 0, one byte of left border before it.
func (fb *FrameBuffers) retileBackground() {
	bt := 0
	ri := 8 * bmpWords
	for r := 0; r < backtabRows; r, ri, bt = r+1, ri+8*bmpWords, bt+backtabCols {
		for y := 0; y < 8; y++ {
			card := func(n int) uint32 { return uint32(fb.btBmp[(bt+n)*8+y]) }
			w := fb.xbtBmp[ri+y*bmpWords : ri+y*bmpWords+bmpWords]
			w[0] = card(0)<<16 | card(1)<<8 | card(2)
			w[1] = card(3)<<24 | card(4)<<16 | card(5)<<8 | card(6)
			w[2] = card(7)<<24 | card(8)<<16 | card(9)<<8 | card(10)
			w[3] = card(11)<<24 | card(12)<<16 | card(13)<<8 | card(14)
			w[4] = card(15)<<24 | card(16)<<16 | card(17)<<8 | card(18)
			w[5] = card(19) << 24
		}
	}
}

// mergePlanes combines the MOB and background planes into image, applies
// the horizontal and vertical delay, and paints the border.
func (fb *FrameBuffers) mergePlanes(in *frameInputs) {
	fb.retileBackground()

	if in.dropping {
		return
	}

	bord := colorMask[in.regs.Raw(RegBorderColor)&0xF]
	hDly := int(in.regs.Raw(RegHDelay) & 7)
	vDly := int(in.regs.Raw(RegVDelay) & 7)
	imgOfs := vDly * 2 * rowWords

	// Top and left edges take the last background color of each card row.
	for i := 0; i < firstCardWord; i++ {
		fb.xbtImg[i] = fb.lastBg[backtabRows-1]
	}
	hMsk := uint32(0xFFFFFFF0) << (hDly * 4)
	hFix := (fb.lastBg[backtabRows-1] & hMsk) | (bord &^ hMsk)
	for y, ri := 0, backtabCols; y < 8; y, ri = y+1, ri+rowWords {
		fb.xbtImg[ri] = hFix
	}
	ri := 9 * rowWords
	for r := 0; r < backtabRows; r++ {
		for y := 0; y < 8; y, ri = y+1, ri+rowWords {
			fb.xbtImg[ri] = fb.lastBg[r]
		}
	}

	rShf := uint(hDly * 4)
	lShf := 32 - rShf
	rows := activeBot - vDly*2
	btiIdx, btbIdx := 0, 0
	for r, imgIdx, bmpIdx := 0, 0, 0; r < rows; r, imgIdx, bmpIdx = r+1, imgIdx+rowWords, bmpIdx+bmpWords {
		var prev uint32
		for c, cc := 0, 0; c < rowWords; c, cc = c+4, cc+1 {
			mb := fb.mplVsb[bmpIdx+cc] &^ (fb.mplPri[bmpIdx+cc] & fb.xbtBmp[btbIdx+cc])

			var merged [4]uint32
			for k := 0; k < 4; k++ {
				mask := fb.t.b2n[(mb>>(24-8*k))&0xFF]
				merged[k] = (fb.mplImg[imgIdx+c+k] & mask) | (fb.xbtImg[btiIdx+c+k] &^ mask)
			}

			out := fb.image[imgIdx+c+imgOfs : imgIdx+c+imgOfs+4]
			if hDly == 0 {
				copy(out, merged[:])
				continue
			}
			out[0] = (prev << lShf) | (merged[0] >> rShf)
			out[1] = (merged[0] << lShf) | (merged[1] >> rShf)
			out[2] = (merged[1] << lShf) | (merged[2] >> rShf)
			out[3] = (merged[2] << lShf) | (merged[3] >> rShf)
			prev = merged[3]
		}

		// Each background row covers two image rows. The left edge word of
		// the next background row is pulled up on the even row.
		if r&1 != 0 {
			btiIdx += rowWords
			btbIdx += bmpWords
		} else {
			fb.xbtImg[btiIdx] = fb.xbtImg[btiIdx+rowWords]
		}
	}

	top := activeTop
	if in.regs.Raw(RegEdgeMask)&2 != 0 {
		top = 32
	}
	for i := 0; i < top*rowWords; i++ {
		fb.image[i] = bord
	}
	for i := activeBot * rowWords; i < len(fb.image); i++ {
		fb.image[i] = bord
	}

	left := in.regs.Raw(RegEdgeMask)&1 != 0
	for r, ri := activeTop, activeTop*rowWords; r < activeBot; r, ri = r+1, ri+rowWords {
		fb.image[ri] = bord
		fb.image[ri+21] = bord
		if left {
			fb.image[ri+1] = bord
		}
	}

	// Column 159 shows the border color, except on STIC1A.
	if !in.stic1a {
		for r := activeTop + vDly; r < activeBot; r++ {
			ri := r*rowWords + 20
			fb.image[ri] = (0xFFFFFFF0 & fb.image[ri]) | (0xF & bord)
		}
	}
}
