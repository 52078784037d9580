// Package reqq implements the interrupt/bus-stall request queue shared by the
// display chip (producer) and the CPU driver loop (consumer).
package reqq

import (
	"fmt"
	"math"
	"strings"
)

// Depth is the queue capacity. It must be a power of two large enough to hold
// one frame's worth of requests.
const Depth = 32

const depthMask = Depth - 1

// NoHorizon means the consumer may run without consulting the queue.
const NoHorizon = math.MaxUint64

// Kind identifies the request type
type Kind uint8

const (
	// Interrupt is a frame-boundary interrupt request (INTRQ)
	Interrupt Kind = 1
	// BusStall is a bus request used to fetch a row of display data (BUSRQ)
	BusStall Kind = 2
)

// String returns the short signal name for the request kind
func (k Kind) String() string {
	switch k {
	case Interrupt:
		return "INTRQ"
	case BusStall:
		return "BUSRQ"
	default:
		return "<?-?>"
	}
}

// State tracks a request through its lifetime
type State uint8

const (
	Inactive State = iota
	Pending
	Acked
	Dropped
)

// String returns a fixed-width state label
func (s State) String() string {
	switch s {
	case Inactive:
		return "INACTIVE"
	case Pending:
		return "PENDING "
	case Acked:
		return "ACKED   "
	case Dropped:
		return "DROPPED "
	default:
		return "<?----?>"
	}
}

// Request is one interrupt or bus-stall request toward the CPU. Start is the
// first cycle of the request, End the first cycle after it.
type Request struct {
	Start    uint64
	End      uint64
	AckCycle uint64
	Kind     Kind
	State    State
}

// ResolveFunc is invoked by the consumer when the front request is
// acknowledged or dropped at the given cycle.
type ResolveFunc func(cycle uint64)

// Queue is a fixed-capacity circular buffer of requests. Requests are kept in
// non-decreasing Start order, so Front on an empty queue yields an already
// expired request.
type Queue struct {
	horizon uint64
	req     [Depth]Request
	wr, rd  uint8

	ack  ResolveFunc
	drop ResolveFunc
}

// New creates an empty queue with the default resolvers installed
func New() *Queue {
	q := &Queue{}
	q.Clear()
	q.ack = q.MarkAcked
	q.drop = q.MarkDropped
	return q
}

// Clear empties the queue and removes the horizon
func (q *Queue) Clear() {
	q.req = [Depth]Request{}
	q.wr = 0
	q.rd = 0
	q.horizon = NoHorizon
}

// Size returns the number of requests not yet popped
func (q *Queue) Size() int {
	return int((q.wr - q.rd) & depthMask)
}

// Front returns the current or next-due request
func (q *Queue) Front() Request {
	return q.req[q.rd&depthMask]
}

// Pop removes the front request
func (q *Queue) Pop() {
	if q.Size() == 0 {
		panic("reqq: pop from empty queue")
	}
	q.rd++
}

// PushBack appends a request. The caller guarantees capacity and ordering;
// violating either is a programming error.
func (q *Queue) PushBack(r Request) {
	n := q.Size()
	if n == depthMask {
		panic(fmt.Sprintf("reqq: queue overflow pushing %s at %d", r.Kind, r.Start))
	}
	if n > 0 {
		if tail := q.req[(q.wr-1)&depthMask]; r.Start < tail.Start {
			panic(fmt.Sprintf("reqq: %s at %d pushed behind %s at %d", r.Kind, r.Start, tail.Kind, tail.Start))
		}
	}
	q.req[q.wr&depthMask] = r
	q.wr++
}

// Horizon returns the cycle beyond which the consumer must not run
func (q *Queue) Horizon() uint64 {
	return q.horizon
}

// SetHorizon moves the consumer's run limit
func (q *Queue) SetHorizon(cycle uint64) {
	q.horizon = cycle
}

// SetResolvers installs the acknowledge and drop callbacks. A nil callback
// restores the default for that path.
func (q *Queue) SetResolvers(ack, drop ResolveFunc) {
	if ack == nil {
		ack = q.MarkAcked
	}
	if drop == nil {
		drop = q.MarkDropped
	}
	q.ack = ack
	q.drop = drop
}

// Ack resolves the front request as acknowledged at cycle
func (q *Queue) Ack(cycle uint64) {
	q.mustHaveFront("ack")
	q.ack(cycle)
}

// Drop resolves the front request as dropped at cycle
func (q *Queue) Drop(cycle uint64) {
	q.mustHaveFront("drop")
	q.drop(cycle)
}

// MarkAcked is the default acknowledge behaviour: stamp and flag the front
func (q *Queue) MarkAcked(cycle uint64) {
	f := &q.req[q.rd&depthMask]
	f.AckCycle = cycle
	f.State = Acked
}

// MarkDropped is the default drop behaviour: stamp and flag the front
func (q *Queue) MarkDropped(cycle uint64) {
	f := &q.req[q.rd&depthMask]
	f.AckCycle = cycle
	f.State = Dropped
}

func (q *Queue) mustHaveFront(op string) {
	if q.Size() == 0 {
		panic("reqq: " + op + " with no outstanding request")
	}
}

// Format renders the whole ring as a debug table, one row per slot
func (q *Queue) Format(context string) string {
	var sb strings.Builder
	mrd := int(q.rd & depthMask)
	mwr := int(q.wr & depthMask)

	fmt.Fprintf(&sb, "REQ_Q(%s): rd=%02X wr=%02X horizon=%9d\n", context, q.rd, q.wr, q.horizon)
	fmt.Fprintf(&sb, "REQ# R W %9s %9s %9s %5s %s\n", "START", "END", "ACK CYC", "TYPE", "STATUS")
	for i := 0; i < Depth; i++ {
		r := q.req[i]
		rmark, wmark := ' ', ' '
		if i == mrd {
			rmark = 'r'
		}
		if i == mwr {
			wmark = 'w'
		}
		fmt.Fprintf(&sb, "%03d: %c %c %9d %9d %9d %s %s\n",
			i, rmark, wmark, r.Start, r.End, r.AckCycle, r.Kind, r.State)
	}
	return sb.String()
}

// String implements fmt.Stringer
func (q *Queue) String() string {
	return q.Format("")
}
