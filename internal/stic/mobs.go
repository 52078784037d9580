package stic

// mobBitmap decodes MOB i into mobImg and mobBmp[i]. Each MOB becomes a
// 16x16 bitmap regardless of its size; y-size is applied when drawing.
func (fb *FrameBuffers) mobBitmap(in *frameInputs, i int) {
	xReg := in.regs.Raw(RegMOBX + i)
	yReg := in.regs.Raw(RegMOBY + i)
	aReg := in.regs.Raw(RegMOBAttr + i)

	fg := colorMask[((aReg>>9)&0x08)|(aReg&0x07)]
	remap := fb.t.remap(xReg&0x400 != 0, yReg&0x400 != 0)

	yRes := 8
	if yReg&0x80 != 0 {
		yRes = 16
	}
	yFlip := 0
	if yReg&0x800 != 0 {
		yFlip = yRes - 1
	}

	// FG/BG mode only reaches 64 cards, except on STIC1A. GRAM cards are
	// limited by the configured GRAM size. Double-height MOBs start on an
	// even card.
	grIdx := aReg & 0xFF8
	if in.fgbg && !in.stic1a {
		grIdx &= 0x9F8
	}
	if aReg&0x800 != 0 {
		grIdx &= in.gramMask
	}
	if yRes == 16 {
		grIdx &= 0xFF0
	}

	bmp := &fb.mobBmp[i]
	for y := 0; y < yRes; y++ {
		bit := remap[in.gmem[grIdx+uint32(y)]]
		yy := y ^ yFlip
		fb.mobImg[2*yy] = fb.t.b2n[bit>>8] & fg
		fb.mobImg[2*yy+1] = fb.t.b2n[bit&0xFF] & fg
		bmp[yy] = bit
	}
	for y := yRes; y < mobRows; y++ {
		fb.mobImg[2*y] = 0
		fb.mobImg[2*y+1] = 0
		bmp[y] = 0
	}
}

// drawMOBs builds the MOB color, visibility and priority planes. Lower
// numbered MOBs are drawn last and win.
func (fb *FrameBuffers) drawMOBs(in *frameInputs) {
	fb.mplPri = [mplRows * bmpWords]uint32{}
	fb.mplVsb = [mplRows * bmpWords]uint32{}

	for i := numMOBs - 1; i >= 0; i-- {
		xReg := in.regs.Raw(RegMOBX + i)
		yReg := in.regs.Raw(RegMOBY + i)
		xPos := xReg & 0xFF
		yPos := int(yReg&0x7F) * 2
		var prio uint32
		if in.regs.Raw(RegMOBAttr+i)&0x2000 != 0 {
			prio = ^uint32(0)
		}
		yShf := (yReg >> 8) & 3
		yStp := 1 << yShf
		xRad := (xPos & 7) * 4
		xLad := 32 - xRad
		xOfs := int(xPos >> 3)
		xOfb := xPos & 31

		// Off screen, or neither visible nor interacting.
		if xPos == 0 || xPos >= 167 || xReg&0x300 == 0 || yPos >= activeBot {
			continue
		}

		fb.mobBitmap(in, i)

		if xReg&0x200 == 0 || in.dropping {
			continue
		}

		yRes := 8
		if yReg&0x80 != 0 {
			yRes = 16
		}
		if yPos+(yRes<<yShf) > activeBot {
			yRes = (activeBot - 1 - yPos + (1 << yShf)) >> yShf
		}

		bmp := &fb.mobBmp[i]
		for y := 0; y < yRes; y++ {
			lPix := fb.mobImg[2*y]
			mPix := fb.mobImg[2*y+1]
			lMsk := fb.t.b2n[bmp[y]>>8]
			mMsk := fb.t.b2n[bmp[y]&0xFF]
			var rPix, rMsk uint32

			if xRad != 0 {
				rPix = mPix << xLad
				mPix = (lPix << xLad) | (mPix >> xRad)
				lPix = lPix >> xRad
				rMsk = mMsk << xLad
				mMsk = (lMsk << xLad) | (mMsk >> xRad)
				lMsk = lMsk >> xRad
			}

			row := uint32(bmp[y])
			var lBmp, rBmp uint32
			if xOfb <= 16 {
				lBmp = row << (16 - xOfb)
			} else {
				lBmp = row >> (xOfb - 16)
				rBmp = row << (48 - xOfb)
			}

			bIdx := (yPos+(y<<yShf))*rowWords + xOfs
			vIdx := bIdx >> 2
			for j := 0; j < yStp; j, bIdx, vIdx = j+1, bIdx+rowWords, vIdx+bmpWords {
				fb.mplImg[bIdx] = (fb.mplImg[bIdx] &^ lMsk) | (lPix & lMsk)
				fb.mplImg[bIdx+1] = (fb.mplImg[bIdx+1] &^ mMsk) | (mPix & mMsk)
				fb.mplImg[bIdx+2] = (fb.mplImg[bIdx+2] &^ rMsk) | (rPix & rMsk)

				fb.mplVsb[vIdx] |= lBmp
				fb.mplVsb[vIdx+1] |= rBmp

				fb.mplPri[vIdx] = (fb.mplPri[vIdx] &^ lBmp) | (prio & lBmp)
				fb.mplPri[vIdx+1] = (fb.mplPri[vIdx+1] &^ rBmp) | (prio & rBmp)
			}
		}
	}
}

// fixBorder trims MOB bits that fall outside the 159 visible columns so they
// can neither show in the border nor collide with it.
func (fb *FrameBuffers) fixBorder(in *frameInputs) {
	if in.stic1a {
		return
	}

	hDly := in.regs.Raw(RegHDelay) & 7

	bMsk := uint32(0xFE000000) << hDly
	for i := 0; i < mplRows; i++ {
		fb.mplVsb[i*bmpWords+5] &= bMsk
	}

	for i := 0; i < numMOBs; i++ {
		x := (in.regs.Raw(RegMOBX+i) & 0xFF) + hDly
		var le, re uint32
		if x < 8 {
			le = uint32(0xFFFFFE00) << x
		}
		if x > 150 && x <= 167 {
			re = uint32(0x00007FFF) >> (167 - x)
		}
		msk := uint16(^(le | re))
		for j := range fb.mobBmp[i] {
			fb.mobBmp[i][j] &= msk
		}
	}
}
