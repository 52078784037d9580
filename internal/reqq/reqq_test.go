package reqq

import (
	"strings"
	"testing"
)

func TestNewQueueIsEmpty(t *testing.T) {
	q := New()

	if q.Size() != 0 {
		t.Errorf("Expected size 0, got %d", q.Size())
	}
	if q.Horizon() != NoHorizon {
		t.Errorf("Expected no horizon, got %d", q.Horizon())
	}
	if f := q.Front(); f.State != Inactive {
		t.Errorf("Expected stale front to be inactive, got %v", f.State)
	}
}

func TestPushPopOrdering(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.PushBack(Request{Start: uint64(i * 100), End: uint64(i*100 + 50), Kind: BusStall, State: Pending})
	}
	if q.Size() != 10 {
		t.Fatalf("Expected size 10, got %d", q.Size())
	}

	for i := 0; i < 4; i++ {
		if f := q.Front(); f.Start != uint64(i*100) {
			t.Errorf("Pop %d: expected front start %d, got %d", i, i*100, f.Start)
		}
		q.Pop()
	}
	if q.Size() != 6 {
		t.Errorf("Expected size 6 after 4 pops, got %d", q.Size())
	}
	if f := q.Front(); f.Start != 400 {
		t.Errorf("Expected front start 400, got %d", f.Start)
	}
}

func TestSizeAcrossWraparound(t *testing.T) {
	q := New()
	var start uint64
	pushed, popped := 0, 0

	// Run the cursors around the ring several times.
	for round := 0; round < 40; round++ {
		for i := 0; i < 7; i++ {
			q.PushBack(Request{Start: start, End: start + 10, Kind: BusStall, State: Pending})
			start += 10
			pushed++
		}
		for i := 0; i < 7; i++ {
			if f := q.Front(); f.Start != uint64(popped*10) {
				t.Fatalf("Round %d: expected front start %d, got %d", round, popped*10, f.Start)
			}
			q.Pop()
			popped++
		}
		if q.Size() != pushed-popped {
			t.Fatalf("Round %d: expected size %d, got %d", round, pushed-popped, q.Size())
		}
	}
}

func TestClearResetsHorizon(t *testing.T) {
	q := New()
	q.PushBack(Request{Start: 1, End: 2, Kind: Interrupt, State: Pending})
	q.SetHorizon(1234)

	q.Clear()

	if q.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", q.Size())
	}
	if q.Horizon() != NoHorizon {
		t.Errorf("Expected horizon reset to max, got %d", q.Horizon())
	}
}

func TestDefaultResolvers(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(q *Queue, cycle uint64)
		want    State
	}{
		{"ack", (*Queue).Ack, Acked},
		{"drop", (*Queue).Drop, Dropped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.PushBack(Request{Start: 10, End: 20, Kind: Interrupt, State: Pending})

			tt.resolve(q, 15)

			f := q.Front()
			if f.State != tt.want {
				t.Errorf("Expected state %v, got %v", tt.want, f.State)
			}
			if f.AckCycle != 15 {
				t.Errorf("Expected ack cycle 15, got %d", f.AckCycle)
			}
		})
	}
}

func TestCustomResolvers(t *testing.T) {
	q := New()
	var acked, dropped []uint64
	q.SetResolvers(
		func(cycle uint64) { acked = append(acked, cycle); q.MarkAcked(cycle) },
		func(cycle uint64) { dropped = append(dropped, cycle); q.MarkDropped(cycle) },
	)

	q.PushBack(Request{Start: 0, End: 10, Kind: BusStall, State: Pending})
	q.PushBack(Request{Start: 20, End: 30, Kind: BusStall, State: Pending})

	q.Ack(5)
	q.Pop()
	q.Drop(31)
	q.Pop()

	if len(acked) != 1 || acked[0] != 5 {
		t.Errorf("Expected one ack at 5, got %v", acked)
	}
	if len(dropped) != 1 || dropped[0] != 31 {
		t.Errorf("Expected one drop at 31, got %v", dropped)
	}

	q.SetResolvers(nil, nil)
	q.PushBack(Request{Start: 40, End: 50, Kind: Interrupt, State: Pending})
	q.Ack(41)
	if len(acked) != 1 {
		t.Errorf("Expected default resolver after reset, custom ack ran again")
	}
	if q.Front().State != Acked {
		t.Errorf("Expected default ack to mark front acked")
	}
}

func TestContractViolationsPanic(t *testing.T) {
	expectPanic := func(t *testing.T, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("Expected panic")
			}
		}()
		fn()
	}

	t.Run("overflow", func(t *testing.T) {
		q := New()
		for i := 0; i < Depth-1; i++ {
			q.PushBack(Request{Start: uint64(i), End: uint64(i + 1), Kind: BusStall})
		}
		expectPanic(t, func() { q.PushBack(Request{Start: 100, Kind: BusStall}) })
	})

	t.Run("out of order", func(t *testing.T) {
		q := New()
		q.PushBack(Request{Start: 100, End: 110, Kind: BusStall})
		expectPanic(t, func() { q.PushBack(Request{Start: 50, Kind: Interrupt}) })
	})

	t.Run("pop empty", func(t *testing.T) {
		expectPanic(t, func() { New().Pop() })
	})

	t.Run("ack empty", func(t *testing.T) {
		expectPanic(t, func() { New().Ack(1) })
	})
}

func TestFormat(t *testing.T) {
	q := New()
	q.PushBack(Request{Start: 3796, End: 3853, Kind: BusStall, State: Pending})
	q.PushBack(Request{Start: 14934, End: 17841, Kind: Interrupt, State: Pending})

	out := q.Format("gen")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != Depth+2 {
		t.Fatalf("Expected %d lines, got %d", Depth+2, len(lines))
	}
	if !strings.HasPrefix(lines[0], "REQ_Q(gen): rd=00 wr=02") {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[2], "BUSRQ") || !strings.Contains(lines[2], "PENDING") {
		t.Errorf("Expected slot 0 to show a pending BUSRQ, got %q", lines[2])
	}
	if !strings.HasPrefix(lines[2], "000: r") {
		t.Errorf("Expected read marker on slot 0, got %q", lines[2])
	}
	if !strings.HasPrefix(lines[4], "002:   w") {
		t.Errorf("Expected write marker on slot 2, got %q", lines[4])
	}
}
