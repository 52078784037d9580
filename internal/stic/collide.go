package stic

// Collision register bits beyond the per-MOB pair bits
const (
	collideBackground = 0x100
	collideBorder     = 0x200
)

// mobGeom is the collision view of one MOB's registers
type mobGeom struct {
	ixl, ixh int // x extent, including the interaction bit at 0x100
	yl, yh   int // y extent in half-scanlines
	hgt      int
	shf      uint
}

func decodeMOB(rf *RegisterFile, i int) mobGeom {
	xReg := rf.Raw(RegMOBX + i)
	yReg := rf.Raw(RegMOBY + i)

	g := mobGeom{
		hgt: mobHeight[(yReg>>7)&7],
		shf: uint((yReg >> 8) & 3),
		ixl: int(xReg & 0x1FF),
		yl:  int(yReg&0x7F) << 1,
	}
	g.ixh = g.ixl + 7
	if xReg&0x400 != 0 {
		g.ixh = g.ixl + 15
	}
	g.yh = g.yl + g.hgt - 1
	return g
}

// collide runs MOB-to-MOB, MOB-to-background and MOB-to-border collision
// detection and accumulates the results in the collision registers. Bits
// already set are not tested again.
func (fb *FrameBuffers) collide(in *frameInputs) {
	rf := in.regs
	hDly := int(rf.Raw(RegHDelay) & 7)
	vDly := int(rf.Raw(RegVDelay)&7) * 2

	for mob0 := 0; mob0 < numMOBs; mob0++ {
		c0 := rf.Raw(RegMOBCollide + mob0)
		g0 := decodeMOB(rf, mob0)

		if g0.ixl <= 0x100 || g0.ixl >= 0x1A8-hDly || g0.yl > 0xD8-vDly {
			continue
		}

		for mob1 := mob0 + 1; mob1 < numMOBs; mob1++ {
			c1 := rf.Raw(RegMOBCollide + mob1)
			if (c0>>mob1)&1 != 0 && (c1>>mob0)&1 != 0 {
				continue
			}

			g1 := decodeMOB(rf, mob1)
			if g1.ixl <= 0x100 || g1.ixl >= 0x1A7-hDly || g1.yl > 0xD8-vDly {
				continue
			}

			if (g0.ixl < g1.ixl || g0.ixl > g1.ixh) && (g1.ixl < g0.ixl || g1.ixl > g0.ixh) {
				continue
			}
			if (g0.yl < g1.yl || g0.yl > g1.yh) && (g1.yl < g0.yl || g1.yl > g0.yh) {
				continue
			}

			var ls0, ls1 int
			if g0.ixl < g1.ixl {
				ls0 = g1.ixl - g0.ixl
			} else {
				ls1 = g0.ixl - g1.ixl
			}
			ylo := max(g0.yl, g1.yl, 15-vDly)
			yhi := min(g0.yh, g1.yh, activeBot-vDly)

			for yy := ylo; yy <= yhi; yy++ {
				mb0 := uint32(fb.mobBmp[mob0][(yy-g0.yl)>>g0.shf]) << ls0
				mb1 := uint32(fb.mobBmp[mob1][(yy-g1.yl)>>g1.shf]) << ls1
				if mb0&mb1 != 0 {
					rf.setBits(RegMOBCollide+mob0, 1<<mob1)
					rf.setBits(RegMOBCollide+mob1, 1<<mob0)
					break
				}
			}
		}

		xl0 := g0.ixl & 0xFF

		if c0&collideBackground == 0 && fb.hitsBackground(mob0, g0, xl0, vDly) {
			rf.setBits(RegMOBCollide+mob0, collideBackground)
		}

		if c0&collideBorder == 0 && fb.hitsBorder(rf, mob0, g0, xl0, hDly, vDly) {
			rf.setBits(RegMOBCollide+mob0, collideBorder)
		}
	}
}

func (fb *FrameBuffers) hitsBackground(mob int, g mobGeom, xl0, vDly int) bool {
	ymax := min(g.yh, 206-vDly)
	btIdx := g.yl*3 + (xl0 >> 5)
	ls := uint(xl0 & 31)

	for yy := g.yl; yy <= ymax; yy++ {
		bt := fb.xbtBmp[btIdx]
		if ls != 0 {
			bt = (bt << ls) | (fb.xbtBmp[btIdx+1] >> (32 - ls))
		}
		if bt&(uint32(fb.mobBmp[mob][(yy-g.yl)>>g.shf])<<16) != 0 {
			return true
		}
		if yy&1 != 0 {
			btIdx += bmpWords
		}
	}
	return false
}

func (fb *FrameBuffers) hitsBorder(rf *RegisterFile, mob int, g mobGeom, xl0, hDly, vDly int) bool {
	bmp := &fb.mobBmp[mob]
	mx := xl0 + hDly
	my := g.yl + vDly

	ted := activeTop
	leGen := uint32(0x100)
	if rf.Raw(RegEdgeMask)&2 != 0 {
		ted = 32
	}
	if rf.Raw(RegEdgeMask)&1 != 0 {
		leGen = 0x1FF
	}

	// Left and right edges, widened by edge extension.
	var le, re uint32
	if mx < 9 {
		le = leGen << mx
	}
	if mx > 150 {
		re = uint32(0x8000) >> (167 - mx)
	}
	msk := 0xFFFF & (le | re)

	ymax := (min(g.yh+vDly, activeBot) - my) >> g.shf
	ymin := 0
	if my < activeTop {
		ymin = (15 - my) >> g.shf
	}
	for yy := ymin; yy <= ymax; yy++ {
		if yy < g.hgt && yy < mobRows && uint32(bmp[yy])&msk != 0 {
			return true
		}
	}

	// Top and bottom edges ignore pixels that are already off the sides.
	var leE, reE uint32
	if mx < 8 {
		leE = uint32(0xFFFFFE00) << mx
	}
	if re != 0 {
		reE = (re << 1) - 1
	}
	mskE := ^(leE | reE)

	hit := false
	if my <= ted {
		for yy := 15; yy < ted; yy += 1 << g.shf {
			if my > yy {
				continue
			}
			row := (yy - my) >> g.shf
			if row < g.hgt && row < mobRows && uint32(bmp[row])&mskE != 0 {
				hit = true
			}
		}
	}

	if g.yh+vDly > activeBot-1 && my <= activeBot {
		ybot := (activeBot - my) >> g.shf
		if ybot < mobRows && uint32(bmp[ybot])&mskE != 0 {
			hit = true
		}
	}
	return hit
}
