// Package app provides emulator integration for the main application.
package app

import (
	"fmt"
	"log"
	"time"

	"gointv/internal/bus"
	"gointv/internal/memory"
	"gointv/internal/reqq"
	"gointv/internal/stic"
)

// CPU clock rates in Hz
const (
	ntscCPUClock = 894886
	palCPUClock  = 1000000
)

// Emulator owns the system: the request queue, the display chip, memory and
// the bus that drives them
type Emulator struct {
	config *Config

	queue   *reqq.Queue
	chip    *stic.STIC
	bus     *bus.Bus
	cpu     *bus.IdleExecutor
	scratch *memory.RAM
	system  *memory.RAM
	exec    *memory.ROM

	// Timing control
	cyclesPerFrame  uint64
	targetFrameTime time.Duration
	lag             time.Duration
	frameTimes      *CircularTimingBuffer

	// Performance monitoring
	actualFrameTime  time.Duration
	averageFrameTime time.Duration
	frameCount       uint64
	droppedFrames    uint64
	skipCounter      int

	// State tracking
	isRunning     bool
	lastResetTime time.Time
}

// NewEmulator builds the system described by config
func NewEmulator(config *Config) (*Emulator, error) {
	cfg, err := config.STICConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to configure display chip: %v", err)
	}

	grom := memory.TestPatternGROM()
	if config.Emulation.GROMPath != "" {
		grom, err = memory.LoadGROMFromFile(config.Emulation.GROMPath)
		if err != nil {
			return nil, err
		}
	}

	e := &Emulator{
		config:        config,
		queue:         reqq.New(),
		frameTimes:    NewCircularTimingBuffer(60),
		lastResetTime: time.Now(),
	}

	e.chip, err = stic.New(cfg, grom, e.queue)
	if err != nil {
		return nil, fmt.Errorf("failed to create display chip: %v", err)
	}

	// The interrupt handler keeps the display enabled
	e.cpu = bus.NewIdleExecutor(func(now uint64) {
		e.bus.Write(now, stic.RegDisplayOn, 0)
	})
	e.bus = bus.New(e.queue, e.cpu)

	if e.scratch, err = memory.NewRAM(memory.ScratchSize, 8); err != nil {
		return nil, err
	}
	if e.system, err = memory.NewRAM(memory.SystemSize, 16); err != nil {
		return nil, err
	}
	if config.Emulation.ExecPath != "" {
		image, err := memory.LoadWordImageFromFile(config.Emulation.ExecPath, memory.ExecSize)
		if err != nil {
			return nil, err
		}
		if e.exec, err = memory.NewROM(image); err != nil {
			return nil, err
		}
	}

	if err := e.mapMemory(); err != nil {
		return nil, err
	}
	e.bus.AddTicker("stic", e.chip)

	if config.Debug.RequestLogging {
		e.bus.EnableRequestLogging()
	}

	e.cyclesPerFrame = e.chip.Timings().FrameCycles
	clock := float64(ntscCPUClock)
	if cfg.Region == stic.PAL {
		clock = palCPUClock
	}
	frame := time.Duration(float64(e.cyclesPerFrame) / clock * float64(time.Second))
	e.targetFrameTime = time.Duration(float64(frame) / config.Emulation.Speed)

	e.loadDemoBacktab()
	return e, nil
}

// mapMemory registers every peripheral window on the bus
func (e *Emulator) mapMemory() error {
	type region struct {
		name       string
		lo, hi     uint32
		base, mask uint32
		dev        bus.Device
	}
	regions := []region{
		{"stic", 0x0000, 0x007F, 0x0000, 0xFFFF, e.chip.Control()},
		{"stic-4000", 0x4000, 0x403F, 0x0000, 0xFFFF, e.chip.Control()},
		{"stic-8000", 0x8000, 0x803F, 0x0000, 0xFFFF, e.chip.Control()},
		{"stic-c000", 0xC000, 0xC03F, 0x0000, 0xFFFF, e.chip.Control()},
		{"scratch", memory.ScratchBase, memory.ScratchBase + memory.ScratchSize - 1, memory.ScratchBase, 0xFFFF, e.scratch},
		{"sysram", memory.SystemBase, memory.SystemBase + memory.SystemSize - 1, memory.SystemBase, 0xFFFF, e.system},
		{"btab", 0x0200, 0x02EF, 0x0200, 0x00FF, e.chip.Backtab()},
		{"gmem", 0x3000, 0x3FFF, 0x3000, 0x3FFF, e.chip.Graphics()},
		{"gram-7800", 0x7800, 0x7FFF, 0x3000, 0x3FFF, e.chip.GRAMAlias()},
		{"gram-b800", 0xB800, 0xBFFF, 0x3000, 0x3FFF, e.chip.GRAMAlias()},
		{"gram-f800", 0xF800, 0xFFFF, 0x3000, 0x3FFF, e.chip.GRAMAlias()},
	}
	if e.exec != nil {
		regions = append(regions, region{"exec", memory.ExecBase, memory.ExecBase + memory.ExecSize - 1, memory.ExecBase, 0xFFFF, e.exec})
	}

	for _, r := range regions {
		if err := e.bus.Register(r.name, r.lo, r.hi, r.base, r.mask, r.dev); err != nil {
			return fmt.Errorf("failed to map %s: %v", r.name, err)
		}
	}
	return nil
}

// loadDemoBacktab fills the background table with a card sweep so there is
// something to look at without a cartridge
func (e *Emulator) loadDemoBacktab() {
	for i := uint32(0); i < stic.BacktabSize; i++ {
		card := (i % 64) + 1
		fg := (i % 7) + 1
		e.bus.Poke(0x0200+i, uint16(card<<3|fg))
	}
}

// Reset resets the system. Time keeps running.
func (e *Emulator) Reset() {
	e.bus.Reset()
	e.lag = 0
	e.skipCounter = 0
	e.frameTimes.Reset()
	e.lastResetTime = time.Now()
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// Update runs one frame and applies the frame-drop policy
func (e *Emulator) Update() error {
	if !e.isRunning {
		return nil
	}

	frameStartTime := time.Now()

	if e.config.Video.FrameSkip > 0 {
		if e.skipCounter > 0 {
			e.chip.DropFrames(1)
			e.skipCounter--
		} else {
			e.skipCounter = e.config.Video.FrameSkip
		}
	}

	if err := e.StepFrame(); err != nil {
		return fmt.Errorf("frame execution error: %v", err)
	}

	e.actualFrameTime = time.Since(frameStartTime)
	e.frameTimes.Add(e.actualFrameTime)
	e.averageFrameTime = e.frameTimes.GetAverage()
	e.trackLag(e.actualFrameTime)
	return nil
}

// trackLag accumulates how far emulation has fallen behind real time and
// asks the chip to skip composing a frame for each whole frame of lag
func (e *Emulator) trackLag(spent time.Duration) {
	e.lag += spent - e.targetFrameTime
	if e.lag < 0 {
		e.lag = 0
		return
	}
	if e.lag >= e.targetFrameTime {
		n := int(e.lag / e.targetFrameTime)
		e.chip.DropFrames(n)
		e.droppedFrames += uint64(n)
		e.lag -= time.Duration(n) * e.targetFrameTime
	}
}

// StepFrame runs exactly one frame of cycles. A halt raised by the chip
// stops the bus; the frame is not run while the bus is halted.
func (e *Emulator) StepFrame() error {
	if halted, _ := e.bus.Halted(); halted {
		return nil
	}

	e.bus.Run(e.cyclesPerFrame)
	e.frameCount++

	if e.chip.HaltRequested() {
		e.bus.Halt(e.chip.HaltReason())
		e.chip.ClearHalt()
	}
	return nil
}

// Resume clears a halt and lets the bus run again
func (e *Emulator) Resume() {
	if halted, reason := e.bus.Halted(); halted {
		log.Printf("[Emulator] resuming after halt: %s", reason)
		e.bus.Resume()
	}
}

// Halted reports whether the bus is halted and why
func (e *Emulator) Halted() (bool, string) {
	return e.bus.Halted()
}

// Bus returns the system bus
func (e *Emulator) Bus() *bus.Bus {
	return e.bus
}

// Chip returns the display chip
func (e *Emulator) Chip() *stic.STIC {
	return e.chip
}

// CPU returns the idle CPU driving the bus
func (e *Emulator) CPU() *bus.IdleExecutor {
	return e.cpu
}

// GetFrameCount returns the number of frames run
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetCycleCount returns the current CPU cycle count
func (e *Emulator) GetCycleCount() uint64 {
	return e.bus.Now()
}

// GetCyclesPerFrame returns the frame length in CPU cycles
func (e *Emulator) GetCyclesPerFrame() uint64 {
	return e.cyclesPerFrame
}

// GetTargetFrameTime returns the real-time length of one frame
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetEmulationSpeed returns the emulation speed as a percentage of real-time
func (e *Emulator) GetEmulationSpeed() float64 {
	if e.averageFrameTime == 0 {
		return 0.0
	}
	return float64(e.targetFrameTime) / float64(e.averageFrameTime) * 100.0
}

// IsRunning returns whether the emulator is running
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// GetUptime returns the emulator uptime since last reset
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.lastResetTime)
}

// EmulatorStats is a snapshot of the emulator's counters
type EmulatorStats struct {
	FrameCount       uint64
	ComposedFrames   uint64
	CycleCount       uint64
	DroppedFrames    uint64
	AverageFrameTime time.Duration
	TargetFrameTime  time.Duration
	EmulationSpeed   float64
	Requests         bus.RequestStats
	Instructions     uint64
	Uptime           time.Duration
	IsRunning        bool
}

// GetPerformanceStats returns the emulator's counters
func (e *Emulator) GetPerformanceStats() EmulatorStats {
	return EmulatorStats{
		FrameCount:       e.frameCount,
		ComposedFrames:   e.chip.FrameCount(),
		CycleCount:       e.bus.Now(),
		DroppedFrames:    e.droppedFrames,
		AverageFrameTime: e.averageFrameTime,
		TargetFrameTime:  e.targetFrameTime,
		EmulationSpeed:   e.GetEmulationSpeed(),
		Requests:         e.bus.Stats(),
		Instructions:     e.cpu.Instructions(),
		Uptime:           e.GetUptime(),
		IsRunning:        e.isRunning,
	}
}

// Cleanup stops the emulator
func (e *Emulator) Cleanup() error {
	e.Stop()
	if e.config.Debug.RequestLogging {
		log.Printf("[Emulator] %d request resolutions logged", len(e.bus.GetRequestLog()))
	}
	return nil
}

// CircularTimingBuffer keeps the most recent frame times
type CircularTimingBuffer struct {
	buffer   []time.Duration
	index    int
	count    int
	capacity int
}

// NewCircularTimingBuffer creates a buffer holding capacity samples
func NewCircularTimingBuffer(capacity int) *CircularTimingBuffer {
	return &CircularTimingBuffer{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add records a sample, overwriting the oldest when full
func (ctb *CircularTimingBuffer) Add(duration time.Duration) {
	ctb.buffer[ctb.index] = duration
	ctb.index = (ctb.index + 1) % ctb.capacity
	if ctb.count < ctb.capacity {
		ctb.count++
	}
}

// GetAverage returns the mean of the recorded samples
func (ctb *CircularTimingBuffer) GetAverage() time.Duration {
	if ctb.count == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < ctb.count; i++ {
		total += ctb.buffer[i]
	}
	return total / time.Duration(ctb.count)
}

// Reset discards all samples
func (ctb *CircularTimingBuffer) Reset() {
	ctb.index = 0
	ctb.count = 0
}
