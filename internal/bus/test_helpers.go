package bus

// Test helper methods for bus testing

// SetNowForTesting moves the CPU clock and every ticker to now
func (b *Bus) SetNowForTesting(now uint64) {
	b.now = now
	for _, e := range b.tickers {
		e.now = now
	}
}

// RunCPUForTesting runs only the request consumer up to future, without
// ticking peripherals
func (b *Bus) RunCPUForTesting(future uint64) {
	b.runCPU(future)
}

// TickerNowForTesting returns the clock of the named ticker, or false if
// no such ticker is registered
func (b *Bus) TickerNowForTesting(name string) (uint64, bool) {
	for _, e := range b.tickers {
		if e.name == name {
			return e.now, true
		}
	}
	return 0, false
}
