package stic

import (
	"fmt"
	"log"

	"gointv/internal/reqq"
)

// Region selects the video standard
type Region int

const (
	NTSC Region = iota
	PAL
)

// String implements fmt.Stringer
func (r Region) String() string {
	if r == PAL {
		return "PAL"
	}
	return "NTSC"
}

// ChipType selects the chip revision
type ChipType int

const (
	// AY38900 covers the AY-3-8900 and AY-3-8900-1
	AY38900 ChipType = iota
	// STIC1A is the later single-chip revision
	STIC1A
)

// String implements fmt.Stringer
func (c ChipType) String() string {
	if c == STIC1A {
		return "STIC1A"
	}
	return "AY-3-8900"
}

// VideoState is the per-frame video-enable decision
type VideoState int

const (
	VideoDisabled VideoState = 0
	VideoEnabled  VideoState = 1
	VideoUnknown  VideoState = 2
)

// String implements fmt.Stringer
func (v VideoState) String() string {
	switch v {
	case VideoDisabled:
		return "disabled"
	case VideoEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// Timings holds the cycle constants for one region and chip revision. All
// values are in CPU cycles.
type Timings struct {
	FrameCycles   uint64 // cycles per frame
	IntrqHold     uint64 // interrupt request duration
	BusrqFirst    uint64 // initial short bus request
	BusrqNormal   uint64 // per-row bus request
	BusrqExtra    uint64 // trailing half-length bus request
	MustBusAck    uint64 // bus request acked later than this is late
	RegWindow     uint64 // register window length after interrupt
	MemWindow     uint64 // graphics memory window length after interrupt
	InitialOffset uint64 // first interrupt relative to reset
	Scanline      uint64 // cycles per scanline
	FirstFetch    uint64 // first row fetch relative to end of memory window

	// Row fetch schedule
	Rows        int    // row fetches per frame
	RowSpacing  uint64 // scanlines between row fetches
	ShortStall  bool   // issue the initial short bus request
	ExtraStall  bool   // issue the trailing bus request when vertical delay is 0
	MemAckBonus uint64 // added to the memory window on interrupt acknowledge
	StretchMem  bool   // memory window grows by the vertical delay at the cutoff
}

var ntscTimings = Timings{
	FrameCycles:   14934,
	IntrqHold:     2907,
	BusrqFirst:    57,
	BusrqNormal:   110,
	BusrqExtra:    44,
	MustBusAck:    68,
	RegWindow:     2900,
	MemWindow:     3796,
	InitialOffset: 2782,
	Scanline:      57,
	FirstFetch:    143,
}

var palTimings = Timings{
	FrameCycles:   19968,
	IntrqHold:     6400,
	BusrqFirst:    64,
	BusrqNormal:   118,
	BusrqExtra:    60,
	MustBusAck:    82,
	RegWindow:     6400 - 7,
	MemWindow:     7456,
	InitialOffset: 6400 - 75,
	Scanline:      64,
	FirstFetch:    160,
}

// TimingsFor returns the timing table for a region and chip revision
func TimingsFor(region Region, chip ChipType) Timings {
	t := ntscTimings
	if region == PAL {
		t = palTimings
	}

	t.Rows = 12
	t.RowSpacing = 16

	if chip == STIC1A {
		t.FirstFetch = 149
		t.BusrqNormal -= 6
		t.MemAckBonus = 20
		t.StretchMem = true
	} else {
		t.ShortStall = true
		t.ExtraStall = true
	}
	return t
}

// TimingState tracks the absolute cycle thresholds of the current frame
type TimingState struct {
	EffCycle      uint64 // how far the state machine has been evaluated
	LastIntrq     uint64 // most recent frame interrupt
	NextIntrq     uint64 // next frame interrupt
	RegAccessible uint64 // last cycle the registers are accessible
	MemAccessible uint64 // last cycle graphics memory is accessible
	Cutoff        uint64 // video-enable decision point
	NextRender    uint64 // cycle that triggers frame composition

	Video     VideoState
	PrevVideo VideoState
}

// reset seeds the thresholds relative to the current effective cycle
func (ts *TimingState) reset(t *Timings) {
	ts.PrevVideo = VideoDisabled
	ts.Video = VideoUnknown
	ts.LastIntrq = ts.EffCycle + t.InitialOffset
	ts.NextIntrq = ts.LastIntrq
	ts.RegAccessible = ts.LastIntrq + t.RegWindow
	ts.MemAccessible = ts.LastIntrq + t.MemWindow
	ts.NextRender = ts.MemAccessible + 194*t.Scanline

	// Requests for the next frame are generated at the later of the register
	// window end and the interrupt hold end, so an interrupt acknowledged
	// after the window never leaves two interrupts queued.
	ts.Cutoff = ts.RegAccessible
	if t.RegWindow < t.IntrqHold {
		ts.Cutoff += t.IntrqHold - t.RegWindow
	}
}

// regOpen reports whether the registers are accessible at now
func (ts *TimingState) regOpen(now uint64) bool {
	return now <= ts.RegAccessible
}

// memOpen reports whether graphics memory is accessible at now
func (ts *TimingState) memOpen(now uint64) bool {
	return now <= ts.MemAccessible
}

// simulateUntil advances the timing state machine to cycle. Every gated
// access calls it before touching chip state.
func (s *STIC) simulateUntil(cycle uint64) {
	ts := &s.timing
	t := &s.timings

	if s.debug&DbgRequests != 0 {
		log.Printf("[STIC] simulate_until c=%d ec=%d ve=%d h=%d vec=%d nfr=%d",
			cycle, ts.EffCycle, ts.Video, s.q.Horizon(), ts.Cutoff, ts.NextRender)
	}

	if cycle < ts.EffCycle {
		if s.debug&DbgRequests != 0 {
			log.Printf("[STIC] time went backward: %d < %d", cycle, ts.EffCycle)
		}
		ts.EffCycle = cycle
		return
	}

	if cycle >= ts.NextRender && ts.EffCycle < ts.NextRender {
		if s.display != nil {
			s.isHidden = s.display.Hidden()
		}
		if ts.Video == VideoEnabled {
			s.movieActive = s.capture != nil && s.capture.Active()
			s.update()
		}
		if s.dropFrame > 0 {
			s.dropFrame--
		}
		if s.display != nil {
			s.display.SetVideoEnabled(ts.Video)
		}
		ts.Video = VideoUnknown
		ts.NextRender += t.FrameCycles
	}

	if cycle >= ts.Cutoff && ts.EffCycle < ts.Cutoff {
		if ts.Video == VideoUnknown {
			ts.Video = VideoDisabled
			ts.RegAccessible += t.FrameCycles
			ts.MemAccessible += t.FrameCycles
		} else if t.StretchMem {
			vDly := uint64(s.regs.Raw(RegVDelay) & 7)
			ts.MemAccessible += vDly * t.Scanline * 2
		}

		if ts.PrevVideo != ts.Video {
			s.btDirty |= 3
		}
		if ts.PrevVideo == VideoEnabled && ts.Video == VideoDisabled {
			s.haltOn(HaltOnBlank, "Display blanked.")
		}
		ts.PrevVideo = ts.Video
		ts.Cutoff += t.FrameCycles

		if s.debug&DbgRequests != 0 {
			log.Printf("[STIC] generate_reqs %d ve=%d", cycle, ts.Video)
		}
		s.generateRequests()
		if s.debug&DbgRequests != 0 {
			log.Print(s.q.Format("STIC"))
		}
	}

	ts.EffCycle = cycle
}

// generateRequests queues the next frame's row fetches and interrupt
func (s *STIC) generateRequests() {
	ts := &s.timing
	t := &s.timings
	frameRef := ts.NextIntrq

	ts.LastIntrq = ts.NextIntrq
	ts.NextIntrq += t.FrameCycles

	if s.debug&DbgRequests != 0 {
		log.Printf("[STIC] last_frame_intrq=%d next_frame_intrq=%d next_frame_render=%d",
			ts.LastIntrq, ts.NextIntrq, ts.NextRender)
	}

	if ts.Video == VideoEnabled {
		hDly := uint64(s.regs.Raw(RegHDelay) & 7)
		vDly := uint64(s.regs.Raw(RegVDelay) & 7)
		dly := 2*t.Scanline*vDly + (hDly >> 2)
		active := frameRef + t.MemWindow
		first := active + dly + t.FirstFetch

		if t.ShortStall {
			s.q.PushBack(reqq.Request{
				Start: active,
				End:   active + t.BusrqFirst,
				Kind:  reqq.BusStall,
				State: reqq.Pending,
			})
			s.rows.restart(0)
		} else {
			s.rows.restart(1)
		}

		for i := 0; i < t.Rows; i++ {
			fetch := first + uint64(i)*t.RowSpacing*t.Scanline
			s.q.PushBack(reqq.Request{
				Start: fetch,
				End:   fetch + t.BusrqNormal,
				Kind:  reqq.BusStall,
				State: reqq.Pending,
			})
		}

		if t.ExtraStall && vDly == 0 {
			fetch := first + uint64(t.Rows)*t.RowSpacing*t.Scanline
			s.q.PushBack(reqq.Request{
				Start: fetch,
				End:   fetch + t.BusrqExtra,
				Kind:  reqq.BusStall,
				State: reqq.Pending,
			})
		}
	}

	s.q.PushBack(reqq.Request{
		Start: ts.NextIntrq,
		End:   ts.NextIntrq + t.IntrqHold,
		Kind:  reqq.Interrupt,
		State: reqq.Pending,
	})

	s.q.SetHorizon(ts.Cutoff + 1)
}

// onAck is installed as the queue's acknowledge resolver
func (s *STIC) onAck(cycle uint64) {
	req := s.q.Front()
	s.q.MarkAcked(cycle)

	switch req.Kind {
	case reqq.Interrupt:
		if req.Start != s.timing.NextIntrq {
			panic(fmt.Sprintf("stic: interrupt acknowledged for frame at %d, expected %d",
				req.Start, s.timing.NextIntrq))
		}
		s.timing.RegAccessible = req.Start + s.timings.RegWindow
		s.timing.MemAccessible = req.Start + s.timings.MemWindow + s.timings.MemAckBonus
		if s.debug&DbgRequests != 0 {
			log.Printf("[STIC] INTAK %d / %d", req.Start, cycle)
		}
		s.simulateUntil(cycle)

	case reqq.BusStall:
		if cycle-req.Start <= s.timings.MustBusAck {
			s.rowOnTime()
		} else {
			s.rowLate()
		}
		s.simulateUntil(cycle)
	}
}

// onDrop is installed as the queue's drop resolver
func (s *STIC) onDrop(cycle uint64) {
	req := s.q.Front()
	s.q.MarkDropped(cycle)

	switch req.Kind {
	case reqq.Interrupt:
		s.haltOn(HaltOnIntrqDrop, "INTRM dropped.")
		// The previous windows stand; nothing becomes accessible this frame.
		s.simulateUntil(cycle)

	case reqq.BusStall:
		s.haltOn(HaltOnBusrqDrop, "BUSRQ dropped.")
		s.rowLate()
		s.simulateUntil(cycle)
	}
}
