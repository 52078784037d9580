package bus

// IdleExecutor stands in for a CPU parked in a branch-to-self loop. It can
// always yield the bus, takes interrupts when Interruptible is set and runs
// ISR on each one, which is enough to keep the display chip fed without an
// instruction interpreter.
type IdleExecutor struct {
	InstrCycles   uint64
	Interruptible bool
	ISR           func(now uint64)

	instrs     uint64
	interrupts uint64
}

// branchCycles is the cost of a taken branch
const branchCycles = 9

// NewIdleExecutor returns an interruptible idle loop
func NewIdleExecutor(isr func(now uint64)) *IdleExecutor {
	return &IdleExecutor{
		InstrCycles:   branchCycles,
		Interruptible: true,
		ISR:           isr,
	}
}

// Execute implements Executor
func (e *IdleExecutor) Execute(now, until uint64) uint64 {
	step := e.InstrCycles
	if step == 0 {
		step = branchCycles
	}
	for now < until {
		now += step
		e.instrs++
	}
	return now
}

// CanBusAck implements Executor
func (e *IdleExecutor) CanBusAck() bool { return true }

// CanIntAck implements Executor
func (e *IdleExecutor) CanIntAck() bool { return e.Interruptible }

// Interrupt implements Executor
func (e *IdleExecutor) Interrupt(now uint64) {
	e.interrupts++
	if e.ISR != nil {
		e.ISR(now)
	}
}

// Reset implements Resetter
func (e *IdleExecutor) Reset() {
	e.instrs = 0
	e.interrupts = 0
}

// Instructions returns the number of instructions executed
func (e *IdleExecutor) Instructions() uint64 { return e.instrs }

// Interrupts returns the number of interrupts taken
func (e *IdleExecutor) Interrupts() uint64 { return e.interrupts }
