package stic

// Test helper methods for STIC testing

// SimulateUntilForTesting advances the timing state machine to cycle
func (s *STIC) SimulateUntilForTesting(cycle uint64) {
	s.simulateUntil(cycle)
}

// SetWorkingBacktabForTesting replaces the row-fetched background table
func (s *STIC) SetWorkingBacktabForTesting(btab [BacktabSize]uint16) {
	s.rows.working = btab
}

// WorkingBacktabForTesting returns the row-fetched background table
func (s *STIC) WorkingBacktabForTesting() [BacktabSize]uint16 {
	return s.rows.working
}

// SetGMemForTesting writes graphics memory directly, including GROM
func (s *STIC) SetGMemForTesting(addr int, data []byte) {
	copy(s.gmem[addr:], data)
}

// RegisterForTesting returns the stored value of a control register
func (s *STIC) RegisterForTesting(addr int) uint16 {
	return s.regs.raw[addr]
}
