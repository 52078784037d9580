package stic

// The chip appears on the bus as four windows. Each window receives the
// address relative to the base it was registered with. Every gated operation
// first brings the timing state machine up to the access cycle.
//
// Windows that do not drive the data bus on reads return 0xFFFF, which is
// neutral when the bus ANDs all readers together.

// writeDelay is the offset from the start of a write bus cycle to the point
// where the chip samples it.
const writeDelay = 4

// ControlWindow covers 0x0000-0x007F and the 0x4000/0x8000/0xC000 aliases.
// It must be registered with base 0 so it sees the full address.
type ControlWindow struct{ s *STIC }

// BacktabSnoop captures CPU writes to the background table in system RAM
type BacktabSnoop struct{ s *STIC }

// GraphicsMemory covers GROM and GRAM at 0x3000-0x3FFF
type GraphicsMemory struct{ s *STIC }

// GRAMAlias is the write-only GRAM image at 0x7800, 0xB800 and 0xF800. It
// must be registered with the same base and mask as GraphicsMemory.
type GRAMAlias struct{ s *STIC }

// Control returns the control register window
func (s *STIC) Control() *ControlWindow { return &ControlWindow{s} }

// Backtab returns the background table snoop window
func (s *STIC) Backtab() *BacktabSnoop { return &BacktabSnoop{s} }

// Graphics returns the graphics memory window
func (s *STIC) Graphics() *GraphicsMemory { return &GraphicsMemory{s} }

// GRAMAlias returns the write-only GRAM alias window
func (s *STIC) GRAMAlias() *GRAMAlias { return &GRAMAlias{s} }

// Read performs a gated register read
func (w *ControlWindow) Read(now uint64, addr uint32) uint16 {
	s := w.s
	s.simulateUntil(now)

	if !s.timing.regOpen(now) {
		s.logDrop(ShowReadDrop, DbgRegWindow, "CTRL RD", addr, now, nil)
		if addr < 0x80 {
			return uint16(0x000E & addr)
		}
		return 0xFFFF
	}

	if addr&0x7F == RegMode {
		s.selectColorStack()
	}

	switch {
	case addr > 0x7F:
		return 0xFFFF
	case addr >= 0x40:
		return uint16(s.gmem[addr+0x800])
	case addr&0x7F == 0x22 && s.cfg.Type == STIC1A:
		return 0x3FF7
	}
	return s.regs.Value(int(addr))
}

// Write performs a gated register write
func (w *ControlWindow) Write(now uint64, addr uint32, data uint16) {
	s := w.s
	access := now + writeDelay
	s.simulateUntil(access)

	m := addr & 0x7F
	if m >= 0x40 {
		return
	}
	if !s.timing.regOpen(access) {
		s.logDrop(ShowWriteDrop, DbgRegWindow, "CTRL WR", m, access, &data)
		return
	}
	s.writeRegister(int(m), data)
}

// Peek reads a register without gating or side effects
func (w *ControlWindow) Peek(addr uint32) uint16 {
	s := w.s
	switch {
	case addr > 0x7F:
		return 0xFFFF
	case addr >= 0x40:
		return uint16(s.gmem[addr+0x800])
	}
	return s.regs.Value(int(addr))
}

// Poke writes a register without gating
func (w *ControlWindow) Poke(addr uint32, data uint16) {
	m := addr & 0x7F
	if m >= 0x40 {
		return
	}
	w.s.writeRegister(int(m), data)
}

// Read does not drive the bus
func (w *BacktabSnoop) Read(now uint64, addr uint32) uint16 { return 0xFFFF }

// Peek does not drive the bus
func (w *BacktabSnoop) Peek(addr uint32) uint16 { return 0xFFFF }

// Write copies a background table write into the shadow buffer
func (w *BacktabSnoop) Write(now uint64, addr uint32, data uint16) {
	w.s.simulateUntil(now + writeDelay)
	w.Poke(addr, data)
}

// Poke copies a background table write into the shadow buffer
func (w *BacktabSnoop) Poke(addr uint32, data uint16) {
	if addr < BacktabSize {
		w.s.rows.shadow[addr] = data & 0x3FFF
	}
}

// gramIndex maps a graphics memory address onto gmem. GRAM addresses fold
// according to the configured GRAM size.
func (s *STIC) gramIndex(addr uint32) uint32 {
	if addr&0x800 != 0 {
		return addr & (s.gramMask | 7)
	}
	return addr & 0xFFF
}

// Read performs a gated graphics memory read. Outside the window the CPU
// sees the address echoed back.
func (w *GraphicsMemory) Read(now uint64, addr uint32) uint16 {
	s := w.s
	access := now + writeDelay
	s.simulateUntil(access)

	if !s.timing.memOpen(access) {
		s.logDrop(ShowReadDrop, DbgMemWindow, "GMEM RD", addr, access, nil)
		return uint16(0x3FFF & addr)
	}
	return uint16(s.gmem[s.gramIndex(addr)])
}

// Peek reads graphics memory without gating
func (w *GraphicsMemory) Peek(addr uint32) uint16 {
	return uint16(w.s.gmem[w.s.gramIndex(addr)])
}

// Write performs a gated graphics memory write. GROM writes are dropped.
func (w *GraphicsMemory) Write(now uint64, addr uint32, data uint16) {
	s := w.s
	access := now + writeDelay
	s.simulateUntil(access)

	if !s.timing.memOpen(access) {
		s.logDrop(ShowWriteDrop, DbgMemWindow, "GMEM WR", addr, access, &data)
		return
	}
	s.pokeGRAM(addr, data)
}

// Poke writes graphics memory without gating. GROM pokes are dropped.
func (w *GraphicsMemory) Poke(addr uint32, data uint16) {
	w.s.pokeGRAM(addr, data)
}

func (s *STIC) pokeGRAM(addr uint32, data uint16) {
	if addr&0x0FFF < 0x0800 {
		return
	}
	m := addr & (s.gramMask | 7)
	v := uint8(data)
	if s.gmem[m] != v {
		s.grDirty |= 1
	}
	s.gmem[m] = v
}

// Read does not drive the bus
func (w *GRAMAlias) Read(now uint64, addr uint32) uint16 { return 0xFFFF }

// Peek does not drive the bus
func (w *GRAMAlias) Peek(addr uint32) uint16 { return 0xFFFF }

// Write forwards to the gated graphics memory write
func (w *GRAMAlias) Write(now uint64, addr uint32, data uint16) {
	(&GraphicsMemory{w.s}).Write(now, addr, data)
}

// Poke forwards to the ungated graphics memory write
func (w *GRAMAlias) Poke(addr uint32, data uint16) {
	w.s.pokeGRAM(addr, data)
}
