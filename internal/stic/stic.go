// Package stic implements the Standard Television Interface Chip: its
// access-window timing, request generation, register file, graphics memory
// and frame composition.
package stic

import (
	"fmt"
	"image"
	"log"
	"math/rand"
	"time"

	"gointv/internal/reqq"
)

// Display receives composed frames and per-frame video state
type Display interface {
	PushFrame(f *Frame)
	SetVideoEnabled(v VideoState)
	SetBorder(color uint8)
	Hidden() bool
}

// DirtyMarker is implemented by displays that can skip converting a frame
// that did not change. MarkDirty is called right before each PushFrame with
// the backtab and GRAM dirty bits gathered since the previous pushed frame.
type DirtyMarker interface {
	MarkDirty(flags uint8)
}

// Capture reports whether a movie or frame capture is in progress. Frames
// are never dropped while it is active.
type Capture interface {
	Active() bool
}

// GRAMSink receives GRAM snapshots requested through the GRAMShot flag
type GRAMSink interface {
	WriteGRAM(img *image.Paletted) error
}

// Config selects the chip variant and options
type Config struct {
	Region    Region
	Type      ChipType
	GRAMSize  int // 0, 1 or 2 for 64, 128 or 256 cards
	RandomMem bool
	Seed      int64 // seed for RandomMem, 0 picks one
	Debug     DebugFlags
}

type displayMode uint8

const (
	modeColorStack displayMode = 0
	modeFGBG       displayMode = 1
)

// STIC is the display chip
type STIC struct {
	cfg     Config
	timings Timings

	// Chip state
	regs     RegisterFile
	gmem     [GMemSize]uint8
	gramMask uint32
	rows     rowFetcher
	timing   TimingState
	fb       *FrameBuffers
	frame    Frame

	// Request queue shared with the CPU driver
	q *reqq.Queue

	// Mode currently rendered, and mode selected by the last 0x21 access
	mode  displayMode
	pMode displayMode

	// Dirty tracking: bit 0 backtab, bit 1 whole frame
	btDirty uint8
	grDirty uint8

	// Frame dropping
	dropFrame   int
	isHidden    bool
	movieActive bool
	frames      uint64

	// Collaborators
	display  Display
	capture  Capture
	gramSink GRAMSink

	// Debug
	debug      DebugFlags
	halted     bool
	haltReason string
	rng        *rand.Rand
}

// New creates a chip with grom as the first 2 KiB of graphics memory and
// installs its resolvers on q. The chip is reset before it is returned.
func New(cfg Config, grom []byte, q *reqq.Queue) (*STIC, error) {
	if len(grom) < gromSize {
		return nil, fmt.Errorf("failed to initialize STIC: GROM image is %d bytes, need %d", len(grom), gromSize)
	}
	if q == nil {
		return nil, fmt.Errorf("failed to initialize STIC: no request queue")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &STIC{
		cfg:     cfg,
		timings: TimingsFor(cfg.Region, cfg.Type),
		fb:      newFrameBuffers(defaultTables),
		q:       q,
		debug:   cfg.Debug,
		rng:     rand.New(rand.NewSource(seed)),
	}

	switch {
	case cfg.GRAMSize >= 2:
		s.cfg.GRAMSize = 2
		s.gramMask = 0x0FF8
	case cfg.GRAMSize == 1:
		s.gramMask = 0x0BF8
	default:
		s.cfg.GRAMSize = 0
		s.gramMask = 0x09F8
	}

	copy(s.gmem[:gromSize], grom[:gromSize])
	if cfg.RandomMem {
		for i := gromSize; i < GMemSize; i++ {
			s.gmem[i] = uint8(s.rng.Uint32() >> 24)
		}
	}

	s.initRegisters()
	s.mode = modeColorStack
	s.pMode = modeColorStack

	q.SetResolvers(s.onAck, s.onDrop)
	s.Reset()

	log.Printf("[STIC] %s %s, %d GRAM cards", cfg.Type, cfg.Region, 64<<s.cfg.GRAMSize)
	return s, nil
}

// SetDisplay connects the frame sink
func (s *STIC) SetDisplay(d Display) {
	s.display = d
}

// SetCapture connects the capture-in-progress query
func (s *STIC) SetCapture(c Capture) {
	s.capture = c
}

// SetGRAMSink connects the GRAM snapshot sink
func (s *STIC) SetGRAMSink(g GRAMSink) {
	s.gramSink = g
}

// Reset re-seeds the timing state from the current effective cycle, clears
// the request queue and queues the first interrupt.
func (s *STIC) Reset() {
	s.btDirty = 3
	s.timing.reset(&s.timings)
	s.rows.restart(0)

	s.q.Clear()
	s.q.PushBack(reqq.Request{
		Start: s.timing.LastIntrq,
		End:   s.timing.LastIntrq + s.timings.IntrqHold,
		Kind:  reqq.Interrupt,
		State: reqq.Pending,
	})
	s.q.SetHorizon(s.timing.Cutoff + 1)

	if s.display != nil {
		s.display.SetVideoEnabled(VideoDisabled)
	}
	s.initRegisters()
}

// initRegisters fills every register except display-enable with all ones,
// or random values, through the masked write path.
func (s *STIC) initRegisters() {
	s.regs.Clear()
	for a := 0; a < NumRegisters; a++ {
		if a == RegDisplayOn {
			continue
		}
		data := uint16(0xFFFF)
		if s.cfg.RandomMem {
			data = uint16(s.rng.Uint32())
		}
		s.writeRegister(a, data)
	}
}

// writeRegister stores a control register write that passed gating
func (s *STIC) writeRegister(addr int, data uint16) {
	if addr == RegDisplayOn {
		s.timing.Video = VideoEnabled
	}
	if addr == RegMode {
		if s.mode != modeFGBG {
			s.btDirty |= 3
		}
		s.pMode = modeFGBG
	}

	v, changed := s.regs.Store(addr, data)
	if !changed {
		return
	}
	switch {
	case addr >= RegColorStack && addr <= RegColorStack+3:
		s.btDirty |= 3
	case addr >= RegHDelay && addr <= RegEdgeMask:
		s.btDirty |= 3
	case addr < RegMOBCollide:
		s.btDirty |= 1
	}
	if addr == RegBorderColor && s.display != nil {
		s.display.SetBorder(uint8(v & 0xF))
	}
}

// selectColorStack is the side effect of reading the mode register
func (s *STIC) selectColorStack() {
	if s.mode != modeColorStack {
		s.btDirty |= 3
	}
	s.pMode = modeColorStack
}

func (s *STIC) dropping() bool {
	return (s.dropFrame > 0 || s.isHidden) && !s.movieActive
}

func (s *STIC) inputs() *frameInputs {
	return &frameInputs{
		regs:     &s.regs,
		gmem:     &s.gmem,
		btab:     &s.rows.working,
		gramMask: s.gramMask,
		stic1a:   s.cfg.Type == STIC1A,
		fgbg:     s.mode == modeFGBG,
		dropping: s.dropping(),
	}
}

// update composes one frame. Collision detection runs even when the frame
// is dropped.
func (s *STIC) update() {
	if s.mode != s.pMode {
		s.btDirty = 3
		s.mode = s.pMode
	}

	in := s.inputs()
	s.fb.compose(in)

	if !in.dropping {
		s.fb.pushVideo(&s.frame)
		if s.display != nil {
			if dm, ok := s.display.(DirtyMarker); ok {
				dm.MarkDirty(s.btDirty | s.grDirty)
			}
			s.btDirty, s.grDirty = 0, 0
			s.display.PushFrame(&s.frame)
		}
	}
	if s.dropFrame > 0 {
		s.dropFrame--
	}

	s.fb.collide(in)
	s.frames++
}

// Tick brings the chip up to now+elapsed. It always consumes the full
// interval.
func (s *STIC) Tick(now, elapsed uint64) uint64 {
	soon := now + elapsed
	if s.debug&DbgRequests != 0 {
		log.Printf("[STIC] tick %d", soon)
	}
	if soon > s.timing.EffCycle {
		s.simulateUntil(soon)
	}

	if s.debug&GRAMShot != 0 {
		s.debug &^= GRAMShot
		s.exportGRAM()
	}
	return elapsed
}

func (s *STIC) exportGRAM() {
	if s.gramSink == nil {
		log.Printf("[STIC] GRAM shot requested but no sink is connected")
		return
	}
	if err := s.gramSink.WriteGRAM(s.GRAMImage()); err != nil {
		log.Printf("[STIC] failed to write GRAM shot: %v", err)
	}
}

// DropFrames adds n frames to the drop deficit
func (s *STIC) DropFrames(n int) {
	if n > 0 {
		s.dropFrame += n
	}
}

// Config returns the effective configuration
func (s *STIC) Config() Config {
	return s.cfg
}

// Timings returns the active timing table
func (s *STIC) Timings() Timings {
	return s.timings
}

// Timing returns a copy of the timing state
func (s *STIC) Timing() TimingState {
	return s.timing
}

// FrameCount returns the number of frames composed since creation
func (s *STIC) FrameCount() uint64 {
	return s.frames
}

// LastFrame returns the most recently pushed frame
func (s *STIC) LastFrame() *Frame {
	return &s.frame
}

// Collisions returns the eight MOB collision registers
func (s *STIC) Collisions() [numMOBs]uint16 {
	var c [numMOBs]uint16
	for i := range c {
		c[i] = s.regs.Value(RegMOBCollide + i)
	}
	return c
}

// ColorStackMode reports whether the next frame renders in Color-Stack mode
func (s *STIC) ColorStackMode() bool {
	return s.pMode == modeColorStack
}

// SetColorStackMode selects the display mode for the next frame without
// touching the mode register
func (s *STIC) SetColorStackMode(on bool) {
	if on {
		s.selectColorStack()
		return
	}
	if s.pMode != modeFGBG {
		s.btDirty |= 3
	}
	s.pMode = modeFGBG
}

// Dirty returns the backtab and GRAM dirty flags not yet handed to the
// display
func (s *STIC) Dirty() (backtab, gram uint8) {
	return s.btDirty, s.grDirty
}
