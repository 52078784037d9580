// Package bus implements the peripheral bus that connects the CPU driver,
// the display chip and memory. Devices register address windows; reads AND
// together the values of every window that covers an address and writes go
// to all of them.
package bus

import (
	"fmt"
	"log"

	"gointv/internal/reqq"
)

// Device is a peripheral occupying one or more address windows. Addresses
// passed to a device are relative to the base it was registered with.
// Devices that do not drive the data bus on a read return 0xFFFF.
type Device interface {
	Read(now uint64, addr uint32) uint16
	Write(now uint64, addr uint32, data uint16)
	Peek(addr uint32) uint16
	Poke(addr uint32, data uint16)
}

// Ticker is a peripheral with its own notion of time. Tick is asked to
// advance elapsed cycles starting at now and returns how many it consumed.
type Ticker interface {
	Tick(now, elapsed uint64) uint64
}

// Resetter is implemented by tickers and executors that respond to a system
// reset
type Resetter interface {
	Reset()
}

// Executor is the CPU as the bus driver sees it
type Executor interface {
	// Execute runs instructions from now until the clock reaches until and
	// returns the new clock. The last instruction may overshoot until.
	Execute(now, until uint64) uint64
	// CanBusAck reports whether the CPU can give up the bus right now
	CanBusAck() bool
	// CanIntAck reports whether the CPU can take an interrupt right now
	CanIntAck() bool
	// Interrupt enters the interrupt service routine at cycle now
	Interrupt(now uint64)
}

// Interrupt acknowledge timing in CPU cycles
const (
	intAckDelay = 2  // dead cycles before the acknowledge
	intAckTail  = 10 // cycles from the acknowledge to the first ISR fetch
)

const (
	addrSpace   = 0x10000
	decodeShift = 8
	numBins     = addrSpace >> decodeShift
)

type window struct {
	name       string
	lo, hi     uint32
	base, mask uint32
	dev        Device
}

type tickEntry struct {
	name string
	t    Ticker
	now  uint64
}

// Bus connects the CPU driver, the request queue and the peripherals
type Bus struct {
	queue *reqq.Queue
	exec  Executor

	bins    [numBins][]*window
	windows []*window
	tickers []*tickEntry

	// System state
	now        uint64
	halted     bool
	haltReason string

	// Request resolution
	stats          RequestStats
	requestLog     []RequestEvent
	loggingEnabled bool
}

// RequestStats counts how the driver resolved requests
type RequestStats struct {
	InterruptsAcked   uint64
	InterruptsDropped uint64
	BusStallsAcked    uint64
	BusStallsDropped  uint64
}

// RequestEvent records one request resolution
type RequestEvent struct {
	Cycle uint64
	Start uint64
	End   uint64
	Kind  reqq.Kind
	State reqq.State
}

// New creates a bus driving exec from queue
func New(queue *reqq.Queue, exec Executor) *Bus {
	return &Bus{
		queue: queue,
		exec:  exec,
	}
}

// Register maps dev into [lo, hi]. The device sees (addr-base)&mask.
func (b *Bus) Register(name string, lo, hi, base, mask uint32, dev Device) error {
	if lo > hi || hi >= addrSpace {
		return fmt.Errorf("failed to register %s: invalid range $%04X-$%04X", name, lo, hi)
	}
	if dev == nil {
		return fmt.Errorf("failed to register %s: nil device", name)
	}

	w := &window{name: name, lo: lo, hi: hi, base: base, mask: mask, dev: dev}
	for bin := lo >> decodeShift; bin <= hi>>decodeShift; bin++ {
		b.bins[bin] = append(b.bins[bin], w)
	}
	b.windows = append(b.windows, w)
	return nil
}

// AddTicker adds t to the set of peripherals ticked after the CPU runs
func (b *Bus) AddTicker(name string, t Ticker) {
	b.tickers = append(b.tickers, &tickEntry{name: name, t: t, now: b.now})
}

func (b *Bus) lookup(addr uint32) []*window {
	return b.bins[(addr&(addrSpace-1))>>decodeShift]
}

// Read performs a bus read at cycle now
func (b *Bus) Read(now uint64, addr uint32) uint16 {
	data := uint16(0xFFFF)
	for _, w := range b.lookup(addr) {
		if addr >= w.lo && addr <= w.hi {
			data &= w.dev.Read(now, (addr-w.base)&w.mask)
		}
	}
	return data
}

// Write performs a bus write at cycle now
func (b *Bus) Write(now uint64, addr uint32, data uint16) {
	for _, w := range b.lookup(addr) {
		if addr >= w.lo && addr <= w.hi {
			w.dev.Write(now, (addr-w.base)&w.mask, data)
		}
	}
}

// Peek reads without side effects or access gating
func (b *Bus) Peek(addr uint32) uint16 {
	data := uint16(0xFFFF)
	for _, w := range b.lookup(addr) {
		if addr >= w.lo && addr <= w.hi {
			data &= w.dev.Peek((addr - w.base) & w.mask)
		}
	}
	return data
}

// Poke writes without access gating, including to ROM
func (b *Bus) Poke(addr uint32, data uint16) {
	for _, w := range b.lookup(addr) {
		if addr >= w.lo && addr <= w.hi {
			w.dev.Poke((addr-w.base)&w.mask, data)
		}
	}
}

// Reset resets the executor and every ticker that supports it. Time keeps
// running; peripherals re-seed from the current cycle.
func (b *Bus) Reset() {
	if r, ok := b.exec.(Resetter); ok {
		r.Reset()
	}
	for _, e := range b.tickers {
		if r, ok := e.t.(Resetter); ok {
			r.Reset()
		}
	}
	b.halted = false
	b.haltReason = ""
}

// Run advances the system by cycles. The CPU never runs past the queue
// horizon; the tickers catch up to the CPU after each slice. It returns the
// number of cycles actually run, which may overshoot by one instruction.
func (b *Bus) Run(cycles uint64) uint64 {
	start := b.now
	target := b.now + cycles

	for b.now < target && !b.halted {
		future := min(target, b.queue.Horizon())
		if future <= b.now {
			// The chip has not produced requests past this point yet.
			future = b.now + 1
		}
		b.runCPU(future)
		b.tick()
	}
	return b.now - start
}

// runCPU is the consumer side of the request queue. Requests are resolved
// strictly in order: each one is acknowledged while the CPU is inside its
// span and able to respond, or dropped once its span has passed.
func (b *Bus) runCPU(future uint64) {
	q := b.queue
	for b.now < future {
		near := future

		if q.Size() > 0 && q.Front().State == reqq.Pending {
			req := q.Front()
			switch {
			case b.now >= req.End:
				b.resolve(req, reqq.Dropped)
				q.Drop(b.now)
				q.Pop()
				continue

			case b.now >= req.Start:
				if req.Kind == reqq.BusStall && b.exec.CanBusAck() {
					b.resolve(req, reqq.Acked)
					q.Ack(b.now)
					q.Pop()
					b.now = req.End
					continue
				}
				// The acknowledge follows the dead cycles and must still
				// fall inside the span.
				if req.Kind == reqq.Interrupt && b.exec.CanIntAck() && b.now+intAckDelay < req.End {
					b.now += intAckDelay
					b.resolve(req, reqq.Acked)
					q.Ack(b.now)
					q.Pop()
					b.exec.Interrupt(b.now)
					b.now += intAckTail
					continue
				}
				// Can't respond yet; try again after one instruction.
				near = b.now + 1

			default:
				near = min(near, req.Start)
			}
		}

		next := b.exec.Execute(b.now, near)
		if next <= b.now {
			next = b.now + 1
		}
		b.now = next
	}
}

func (b *Bus) resolve(req reqq.Request, state reqq.State) {
	switch {
	case req.Kind == reqq.Interrupt && state == reqq.Acked:
		b.stats.InterruptsAcked++
	case req.Kind == reqq.Interrupt:
		b.stats.InterruptsDropped++
	case state == reqq.Acked:
		b.stats.BusStallsAcked++
	default:
		b.stats.BusStallsDropped++
	}

	if b.loggingEnabled {
		b.requestLog = append(b.requestLog, RequestEvent{
			Cycle: b.now,
			Start: req.Start,
			End:   req.End,
			Kind:  req.Kind,
			State: state,
		})
	}
}

// tick brings every ticker up to the CPU's clock
func (b *Bus) tick() {
	for _, e := range b.tickers {
		if e.now >= b.now {
			continue
		}
		e.now += e.t.Tick(e.now, b.now-e.now)
	}
}

// Halt stops Run at the end of the current slice
func (b *Bus) Halt(reason string) {
	if !b.halted {
		log.Printf("[BUS] halted at %d: %s", b.now, reason)
	}
	b.halted = true
	b.haltReason = reason
}

// Resume clears a halt
func (b *Bus) Resume() {
	b.halted = false
	b.haltReason = ""
}

// Halted reports whether the bus is halted and why
func (b *Bus) Halted() (bool, string) {
	return b.halted, b.haltReason
}

// Now returns the CPU clock
func (b *Bus) Now() uint64 {
	return b.now
}

// Queue returns the request queue
func (b *Bus) Queue() *reqq.Queue {
	return b.queue
}

// Stats returns the request resolution counters
func (b *Bus) Stats() RequestStats {
	return b.stats
}

// Windows lists the registered windows as "name $lo-$hi" strings
func (b *Bus) Windows() []string {
	out := make([]string, 0, len(b.windows))
	for _, w := range b.windows {
		out = append(out, fmt.Sprintf("%s $%04X-$%04X", w.name, w.lo, w.hi))
	}
	return out
}

// GetRequestLog returns the request log
func (b *Bus) GetRequestLog() []RequestEvent {
	return b.requestLog
}

// EnableRequestLogging starts recording request resolutions
func (b *Bus) EnableRequestLogging() {
	b.loggingEnabled = true
}

// DisableRequestLogging stops recording request resolutions
func (b *Bus) DisableRequestLogging() {
	b.loggingEnabled = false
}

// ClearRequestLog clears the request log
func (b *Bus) ClearRequestLog() {
	b.requestLog = make([]RequestEvent, 0)
}
