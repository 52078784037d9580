package stic

import (
	"image"
	"reflect"
	"testing"

	"gointv/internal/reqq"
)

// MockDisplay records what the chip sends to the display sink
type MockDisplay struct {
	frames  int
	last    Frame
	video   []VideoState
	borders []uint8
	hidden  bool
}

func (m *MockDisplay) PushFrame(f *Frame) {
	m.frames++
	m.last = *f
}

func (m *MockDisplay) SetVideoEnabled(v VideoState) { m.video = append(m.video, v) }
func (m *MockDisplay) SetBorder(c uint8)            { m.borders = append(m.borders, c) }
func (m *MockDisplay) Hidden() bool                 { return m.hidden }

// MockDirtyDisplay also records dirty hints
type MockDirtyDisplay struct {
	MockDisplay
	marks []uint8
}

func (m *MockDirtyDisplay) MarkDirty(flags uint8) { m.marks = append(m.marks, flags) }

// MockCapture reports a fixed capture state
type MockCapture struct{ active bool }

func (m *MockCapture) Active() bool { return m.active }

// MockGRAMSink counts GRAM snapshots
type MockGRAMSink struct{ shots []*image.Paletted }

func (m *MockGRAMSink) WriteGRAM(img *image.Paletted) error {
	m.shots = append(m.shots, img)
	return nil
}

func newTestSTIC(t *testing.T, cfg Config) (*STIC, *reqq.Queue) {
	t.Helper()
	q := reqq.New()
	cfg.Seed = 1
	s, err := New(cfg, make([]byte, gromSize), q)
	if err != nil {
		t.Fatalf("Failed to create STIC: %v", err)
	}
	return s, q
}

// queued returns the outstanding requests front to back, popping them
func queued(q *reqq.Queue) []reqq.Request {
	var out []reqq.Request
	for q.Size() > 0 {
		out = append(out, q.Front())
		q.Pop()
	}
	return out
}

func countKinds(reqs []reqq.Request) (ints, buses int) {
	for _, r := range reqs {
		switch r.Kind {
		case reqq.Interrupt:
			ints++
		case reqq.BusStall:
			buses++
		}
	}
	return
}

func TestNewRejectsShortGROM(t *testing.T) {
	if _, err := New(Config{}, make([]byte, 100), reqq.New()); err == nil {
		t.Error("Expected error for short GROM image")
	}
	if _, err := New(Config{}, make([]byte, gromSize), nil); err == nil {
		t.Error("Expected error for missing queue")
	}
}

func TestResetSchedulesFirstInterrupt(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		start  uint64
		hold   uint64
		cutoff uint64
	}{
		{"NTSC", NTSC, 2782, 2907, 2782 + 2907},
		{"PAL", PAL, 6325, 6400, 6325 + 6400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, q := newTestSTIC(t, Config{Region: tt.region})

			if q.Size() != 1 {
				t.Fatalf("Expected 1 queued request, got %d", q.Size())
			}
			f := q.Front()
			if f.Kind != reqq.Interrupt || f.State != reqq.Pending {
				t.Errorf("Expected pending interrupt, got %v %v", f.Kind, f.State)
			}
			if f.Start != tt.start || f.End != tt.start+tt.hold {
				t.Errorf("Expected interrupt %d-%d, got %d-%d", tt.start, tt.start+tt.hold, f.Start, f.End)
			}
			if ts := s.Timing(); ts.Cutoff != tt.cutoff {
				t.Errorf("Expected cutoff %d, got %d", tt.cutoff, ts.Cutoff)
			}
			if q.Horizon() != tt.cutoff+1 {
				t.Errorf("Expected horizon %d, got %d", tt.cutoff+1, q.Horizon())
			}
			if s.Timing().Video != VideoUnknown {
				t.Errorf("Expected video unknown after reset, got %v", s.Timing().Video)
			}
		})
	}
}

func TestVideoNeverEnabledGeneratesOnlyInterrupt(t *testing.T) {
	s, q := newTestSTIC(t, Config{})
	before := s.Timing()

	s.SimulateUntilForTesting(before.Cutoff)

	ts := s.Timing()
	if ts.PrevVideo != VideoDisabled {
		t.Errorf("Expected video finalized to disabled, got %v", ts.PrevVideo)
	}
	if ts.RegAccessible != before.RegAccessible+s.timings.FrameCycles {
		t.Errorf("Expected register window pushed a frame out, got %d", ts.RegAccessible)
	}

	reqs := queued(q)
	ints, buses := countKinds(reqs)
	if buses != 0 {
		t.Errorf("Expected no bus requests, got %d", buses)
	}
	if ints != 2 {
		t.Errorf("Expected the reset interrupt plus one new interrupt, got %d", ints)
	}
	if last := reqs[len(reqs)-1]; last.Start != before.NextIntrq+s.timings.FrameCycles {
		t.Errorf("Expected next interrupt at %d, got %d", before.NextIntrq+s.timings.FrameCycles, last.Start)
	}
}

func TestVideoEnabledGeneratesRowFetches(t *testing.T) {
	tests := []struct {
		name      string
		chip      ChipType
		vDelay    uint16
		wantBuses int
	}{
		{"8900 no delay", AY38900, 0, 14},
		{"8900 with delay", AY38900, 3, 13},
		{"STIC1A no delay", STIC1A, 0, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, q := newTestSTIC(t, Config{Type: tt.chip})
			ctrl := s.Control()
			ctrl.Write(100, RegDisplayOn, 0)
			ctrl.Write(110, RegHDelay, 0)
			ctrl.Write(120, RegVDelay, tt.vDelay)

			cutoff := s.Timing().Cutoff
			s.SimulateUntilForTesting(cutoff)

			reqs := queued(q)
			ints, buses := countKinds(reqs)
			if buses != tt.wantBuses {
				t.Errorf("Expected %d bus requests, got %d", tt.wantBuses, buses)
			}
			if ints != 2 {
				t.Errorf("Expected 2 interrupts, got %d", ints)
			}
			if q.Horizon() != cutoff+s.timings.FrameCycles+1 {
				t.Errorf("Expected horizon %d, got %d", cutoff+s.timings.FrameCycles+1, q.Horizon())
			}

			for i := 1; i < len(reqs); i++ {
				if reqs[i].Start < reqs[i-1].Start {
					t.Errorf("Request %d starts before request %d", i, i-1)
				}
			}
			if reqs[len(reqs)-1].Kind != reqq.Interrupt {
				t.Errorf("Expected the interrupt to be queued last")
			}
		})
	}
}

func TestRowFetchSchedule(t *testing.T) {
	s, q := newTestSTIC(t, Config{})
	ctrl := s.Control()
	ctrl.Write(0, RegDisplayOn, 0)
	ctrl.Write(10, RegHDelay, 0)
	ctrl.Write(20, RegVDelay, 0)
	s.SimulateUntilForTesting(s.Timing().Cutoff)

	reqs := queued(q)[1:] // skip the reset interrupt
	active := uint64(2782 + 3796)

	if reqs[0].Start != active || reqs[0].End != active+57 {
		t.Errorf("Expected short stall %d-%d, got %d-%d", active, active+57, reqs[0].Start, reqs[0].End)
	}
	first := active + 143
	for i := 0; i < 12; i++ {
		r := reqs[1+i]
		want := first + uint64(i)*16*57
		if r.Start != want || r.End != want+110 {
			t.Errorf("Row %d: expected %d-%d, got %d-%d", i, want, want+110, r.Start, r.End)
		}
	}
	extra := reqs[13]
	if want := first + 12*16*57; extra.Start != want || extra.End != want+44 {
		t.Errorf("Expected extra stall at %d-%d, got %d-%d", want, want+44, extra.Start, extra.End)
	}
}

func TestSimulateUntilIdempotent(t *testing.T) {
	s, q := newTestSTIC(t, Config{})
	s.Control().Write(0, RegDisplayOn, 0)

	c := s.Timing().NextRender + 10
	s.SimulateUntilForTesting(c)
	state, qdump, frames := s.Timing(), q.String(), s.FrameCount()

	s.SimulateUntilForTesting(c)

	if s.Timing() != state {
		t.Errorf("Expected identical timing state, got %+v vs %+v", s.Timing(), state)
	}
	if q.String() != qdump {
		t.Error("Expected identical request queue")
	}
	if s.FrameCount() != frames {
		t.Errorf("Expected %d frames, got %d", frames, s.FrameCount())
	}
}

func TestSimulateUntilMonotonic(t *testing.T) {
	a, qa := newTestSTIC(t, Config{})
	b, qb := newTestSTIC(t, Config{})
	a.Control().Write(0, RegDisplayOn, 0)
	b.Control().Write(0, RegDisplayOn, 0)

	c2 := a.Timing().NextRender + 100
	c1 := a.Timing().Cutoff - 50

	a.SimulateUntilForTesting(c1)
	a.SimulateUntilForTesting(c2)
	b.SimulateUntilForTesting(c2)

	if a.Timing() != b.Timing() {
		t.Errorf("Expected same timing state:\n%+v\n%+v", a.Timing(), b.Timing())
	}
	if qa.String() != qb.String() {
		t.Error("Expected same request queue")
	}
	if *a.LastFrame() != *b.LastFrame() {
		t.Error("Expected same rendered frame")
	}
}

func TestSimulateUntilRewindsOnBackwardClock(t *testing.T) {
	s, q := newTestSTIC(t, Config{})
	before := s.Timing()

	s.SimulateUntilForTesting(1000)
	s.SimulateUntilForTesting(500)

	after := s.Timing()
	if after.EffCycle != 500 {
		t.Errorf("Expected effective cycle rewound to 500, got %d", after.EffCycle)
	}
	after.EffCycle = before.EffCycle
	if after != before {
		t.Errorf("Expected no thresholds crossed, got %+v", after)
	}
	if q.Size() != 1 {
		t.Errorf("Expected only the reset interrupt queued, got %d", q.Size())
	}
}

func TestRegisterWriteGating(t *testing.T) {
	s, _ := newTestSTIC(t, Config{})
	ctrl := s.Control()
	window := s.Timing().RegAccessible

	before := s.RegisterForTesting(RegBorderColor)
	ctrl.Write(window, RegBorderColor, 0x0005) // lands at window+4
	if got := s.RegisterForTesting(RegBorderColor); got != before {
		t.Errorf("Expected write outside window to be dropped, got %04X", got)
	}

	tests := []struct {
		addr uint32
		data uint16
	}{
		{RegMOBX, 0xFFFF},
		{RegMOBY + 3, 0x1234},
		{RegMOBAttr + 7, 0xC001},
		{RegMOBCollide + 2, 0xFFFF},
		{RegColorStack, 0x00A9},
		{RegBorderColor, 0x0005},
		{RegHDelay, 0x000D},
		{RegEdgeMask, 0x0006},
		{0x3F, 0x1234},
	}
	for _, tt := range tests {
		s, _ := newTestSTIC(t, Config{})
		s.Control().Write(100, tt.addr, tt.data)
		m := regMasks[tt.addr]
		want := (tt.data & m.and) | m.or
		if got := s.RegisterForTesting(int(tt.addr)); got != want {
			t.Errorf("Register %02X: expected %04X, got %04X", tt.addr, want, got)
		}
	}
}

func TestRegisterReadGating(t *testing.T) {
	s, _ := newTestSTIC(t, Config{})
	ctrl := s.Control()
	ctrl.Write(0, RegBorderColor, 3)

	if got := ctrl.Read(10, RegBorderColor); got != 0x3FF3 {
		t.Errorf("Expected 3FF3 inside window, got %04X", got)
	}

	closed := s.Timing().RegAccessible + 1
	tests := []struct {
		addr uint32
		want uint16
	}{
		{RegBorderColor, 0x000C},
		{0x0013, 0x0002},
		{0x0050, 0x0000},
		{0x4000, 0xFFFF},
	}
	for _, tt := range tests {
		if got := ctrl.Read(closed, tt.addr); got != tt.want {
			t.Errorf("Closed read of %04X: expected %04X, got %04X", tt.addr, tt.want, got)
		}
	}
}

func TestControlReadSpecialCases(t *testing.T) {
	s, _ := newTestSTIC(t, Config{Type: STIC1A})
	ctrl := s.Control()
	s.Graphics().Poke(0x845, 0xAB)

	if got := ctrl.Read(0, 0x4005); got != 0xFFFF {
		t.Errorf("Expected alias read FFFF, got %04X", got)
	}
	if got := ctrl.Read(0, 0x45); got != 0x00AB {
		t.Errorf("Expected GRAM byte AB at 0x45, got %04X", got)
	}
	if got := ctrl.Read(0, 0x22); got != 0x3FF7 {
		t.Errorf("Expected STIC1A register 0x22 to read 3FF7, got %04X", got)
	}
	if got := ctrl.Peek(0x4005); got != 0xFFFF {
		t.Errorf("Expected alias peek FFFF, got %04X", got)
	}
	if got := ctrl.Peek(0x45); got != 0x00AB {
		t.Errorf("Expected GRAM peek AB, got %04X", got)
	}
}

func TestModeSelectAsymmetry(t *testing.T) {
	s, _ := newTestSTIC(t, Config{})
	ctrl := s.Control()

	ctrl.Read(0, RegMode)
	if !s.ColorStackMode() {
		t.Error("Expected read of mode register to select Color-Stack")
	}

	ctrl.Write(10, RegMode, 0)
	if s.ColorStackMode() {
		t.Error("Expected write of mode register to select Foreground/Background")
	}

	ctrl.Read(20, 0x4021)
	if !s.ColorStackMode() {
		t.Error("Expected aliased read of mode register to select Color-Stack")
	}

	// Outside the window neither access has an effect.
	closed := s.Timing().RegAccessible + 100
	ctrl.Write(closed, RegMode, 0)
	if !s.ColorStackMode() {
		t.Error("Expected dropped write to leave Color-Stack selected")
	}
}

func TestModeSelectChangesRenderer(t *testing.T) {
	// Card 0x220A: in Color-Stack mode bit 13 advances the stack and the
	// foreground is color 2; in FG/BG mode the background comes from bits
	// 9, 10, 12 and 13.
	const card = 0x2000 | 0x0200 | 0x0008 | 0x0002

	render := func(fgbg bool) *Frame {
		s, _ := newTestSTIC(t, Config{})
		ctrl := s.Control()
		ctrl.Write(0, RegDisplayOn, 0)
		ctrl.Write(4, RegHDelay, 0)
		ctrl.Write(8, RegVDelay, 0)
		ctrl.Write(12, RegEdgeMask, 0)
		ctrl.Write(16, RegColorStack, 0)
		ctrl.Write(20, RegColorStack+1, 6)
		if fgbg {
			ctrl.Write(24, RegMode, 0)
		} else {
			ctrl.Read(24, RegMode)
		}

		var bt [BacktabSize]uint16
		bt[0] = card
		s.SetWorkingBacktabForTesting(bt)

		s.SimulateUntilForTesting(s.Timing().NextRender)
		return s.LastFrame()
	}

	// Output row 4 is the first row of card row 0; card 1 in GROM is blank.
	cs := render(false)
	if got := cs[4*FrameWidth]; got != 6 {
		t.Errorf("Color-Stack: expected stack color 6, got %d", got)
	}

	fb := render(true)
	want := uint8(((card >> 9) & 0xB) | ((card >> 11) & 4))
	if got := fb[4*FrameWidth]; got != want {
		t.Errorf("FG/BG: expected background %d, got %d", want, got)
	}
}

func TestInterruptAckOpensWindows(t *testing.T) {
	s, q := newTestSTIC(t, Config{Type: STIC1A})
	start := q.Front().Start

	q.Ack(start + 5)
	q.Pop()

	ts := s.Timing()
	if ts.RegAccessible != start+2900 {
		t.Errorf("Expected register window end %d, got %d", start+2900, ts.RegAccessible)
	}
	if ts.MemAccessible != start+3796+20 {
		t.Errorf("Expected STIC1A memory window end %d, got %d", start+3796+20, ts.MemAccessible)
	}
	if ts.EffCycle != start+5 {
		t.Errorf("Expected effective cycle %d, got %d", start+5, ts.EffCycle)
	}
}

func TestStaleInterruptAckPanics(t *testing.T) {
	s, q := newTestSTIC(t, Config{})
	s.SimulateUntilForTesting(s.Timing().Cutoff)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic acknowledging an interrupt for a past frame")
		}
	}()
	q.Ack(s.Timing().Cutoff)
}

func TestHaltOnDrop(t *testing.T) {
	s, q := newTestSTIC(t, Config{Debug: HaltOnIntrqDrop})
	f := q.Front()

	q.Drop(f.End)
	q.Pop()

	if !s.HaltRequested() {
		t.Fatal("Expected halt after interrupt drop")
	}
	if s.HaltReason() != "INTRM dropped." {
		t.Errorf("Unexpected halt reason %q", s.HaltReason())
	}
	s.ClearHalt()
	if s.HaltRequested() {
		t.Error("Expected halt cleared")
	}
}

func TestHaltOnBlank(t *testing.T) {
	s, _ := newTestSTIC(t, Config{Debug: HaltOnBlank})
	s.Control().Write(0, RegDisplayOn, 0)

	// Frame 1 enabled, frame 2 never enabled.
	first := s.Timing().Cutoff
	s.SimulateUntilForTesting(first)
	s.SimulateUntilForTesting(first + s.timings.FrameCycles)

	if !s.HaltRequested() || s.HaltReason() != "Display blanked." {
		t.Errorf("Expected blank halt, got %v %q", s.HaltRequested(), s.HaltReason())
	}
}

func TestDisplayNotifications(t *testing.T) {
	s, _ := newTestSTIC(t, Config{})
	d := &MockDisplay{}
	s.SetDisplay(d)

	s.Control().Write(0, RegDisplayOn, 0)
	s.Control().Write(10, RegBorderColor, 0x9)
	s.SimulateUntilForTesting(s.Timing().NextRender)

	if d.frames != 1 {
		t.Errorf("Expected 1 frame pushed, got %d", d.frames)
	}
	if len(d.video) != 1 || d.video[0] != VideoEnabled {
		t.Errorf("Expected one enabled notification, got %v", d.video)
	}
	if len(d.borders) != 1 || d.borders[0] != 9 {
		t.Errorf("Expected border color 9, got %v", d.borders)
	}
	if s.FrameCount() != 1 {
		t.Errorf("Expected frame count 1, got %d", s.FrameCount())
	}
}

func TestDirtyFlagsHandedToDisplay(t *testing.T) {
	t.Run("pushed frame", func(t *testing.T) {
		s, _ := newTestSTIC(t, Config{})
		d := &MockDirtyDisplay{}
		s.SetDisplay(d)

		s.Control().Write(0, RegDisplayOn, 0)
		s.Graphics().Write(10, 0x800, 0x18)
		s.SimulateUntilForTesting(s.Timing().NextRender)

		if d.frames != 1 || len(d.marks) != 1 {
			t.Fatalf("Expected one frame with one dirty hint, got %d frames and %v", d.frames, d.marks)
		}
		if d.marks[0]&3 != 3 {
			t.Errorf("Expected backtab dirty bits after reset, got %02X", d.marks[0])
		}
		if bt, gr := s.Dirty(); bt != 0 || gr != 0 {
			t.Errorf("Expected flags cleared once handed over, got %d/%d", bt, gr)
		}
	})

	t.Run("dropped frame", func(t *testing.T) {
		s, _ := newTestSTIC(t, Config{})
		d := &MockDirtyDisplay{}
		s.SetDisplay(d)
		s.DropFrames(1)

		s.Control().Write(0, RegDisplayOn, 0)
		s.Graphics().Write(10, 0x800, 0x18)
		s.SimulateUntilForTesting(s.Timing().NextRender)

		if d.frames != 0 || len(d.marks) != 0 {
			t.Errorf("Expected nothing pushed for a dropped frame, got %d frames and %v", d.frames, d.marks)
		}
		if _, gr := s.Dirty(); gr&1 == 0 {
			t.Error("Expected GRAM dirty kept across the dropped frame")
		}
	})
}

func TestFrameDropPolicy(t *testing.T) {
	tests := []struct {
		name       string
		hidden     bool
		drop       int
		capture    bool
		wantFrames int
	}{
		{"visible", false, 0, false, 1},
		{"hidden", true, 0, false, 0},
		{"deficit", false, 1, false, 0},
		{"hidden while capturing", true, 0, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSTIC(t, Config{})
			d := &MockDisplay{hidden: tt.hidden}
			s.SetDisplay(d)
			s.SetCapture(&MockCapture{active: tt.capture})
			s.DropFrames(tt.drop)

			ctrl := s.Control()
			ctrl.Write(0, RegDisplayOn, 0)
			for i := 0; i < numMOBs; i++ {
				ctrl.Write(uint64(10+i*10), uint32(RegMOBCollide+i), 0)
			}
			// Two overlapping interacting MOBs
			ctrl.Write(200, RegMOBX, 0x100|40)
			ctrl.Write(210, RegMOBX+1, 0x100|40)
			ctrl.Write(220, RegMOBY, 20)
			ctrl.Write(230, RegMOBY+1, 20)
			ctrl.Write(240, RegMOBAttr, 0x0808)
			ctrl.Write(250, RegMOBAttr+1, 0x0808)
			s.Graphics().Poke(0x808, 0xFF)

			s.SimulateUntilForTesting(s.Timing().NextRender)

			if d.frames != tt.wantFrames {
				t.Errorf("Expected %d frames pushed, got %d", tt.wantFrames, d.frames)
			}
			if c := s.Collisions(); c[0]&0x2 == 0 || c[1]&0x1 == 0 {
				t.Errorf("Expected collision detection to run, got %04X %04X", c[0], c[1])
			}
		})
	}
}

func TestGRAMShotOnTick(t *testing.T) {
	s, _ := newTestSTIC(t, Config{})
	sink := &MockGRAMSink{}
	s.SetGRAMSink(sink)

	s.Tick(0, 100)
	if len(sink.shots) != 0 {
		t.Fatalf("Expected no GRAM shot before request")
	}

	s.RequestGRAMShot()
	if got := s.Tick(100, 50); got != 50 {
		t.Errorf("Expected tick to consume 50 cycles, got %d", got)
	}
	if len(sink.shots) != 1 {
		t.Errorf("Expected one GRAM shot, got %d", len(sink.shots))
	}
	if s.DebugFlags()&GRAMShot != 0 {
		t.Error("Expected GRAM shot flag cleared")
	}
}

func TestRandomMemIsDeterministicPerSeed(t *testing.T) {
	a, _ := newTestSTIC(t, Config{RandomMem: true})
	b, _ := newTestSTIC(t, Config{RandomMem: true})

	if !reflect.DeepEqual(a.gmem, b.gmem) {
		t.Error("Expected identical GRAM for identical seeds")
	}
	if a.RegisterForTesting(RegMOBX) != b.RegisterForTesting(RegMOBX) {
		t.Error("Expected identical registers for identical seeds")
	}
}
