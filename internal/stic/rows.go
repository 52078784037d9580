package stic

import "log"

// BacktabSize is the number of cards in the background table (20x12)
const BacktabSize = 240

const (
	backtabCols = 20
	backtabRows = 12
)

// rowFetcher models the chip's row FIFO. CPU writes to the background table
// land in shadow; each row fetch copies 20 cards from shadow into working,
// which is what the renderer draws.
type rowFetcher struct {
	shadow  [BacktabSize]uint16
	working [BacktabSize]uint16
	rd, wr  int
	count   int
}

// restart resets the fetch pointers at the start of a frame. count is the
// number of fetches already considered consumed.
func (rf *rowFetcher) restart(count int) {
	rf.rd = 0
	rf.wr = 0
	rf.count = count
}

// next bumps the fetch counter. It reports false for the leading and trailing
// fetches, which never move data.
func (rf *rowFetcher) next() bool {
	n := rf.count
	rf.count++
	if n == 0 {
		rf.rd = 0
		rf.wr = 0
		return false
	}
	return n <= backtabRows
}

// onTime copies the next row from shadow into working
func (rf *rowFetcher) onTime() bool {
	if !rf.next() {
		return false
	}
	copy(rf.working[rf.wr:rf.wr+backtabCols], rf.shadow[rf.rd:rf.rd+backtabCols])
	rf.wr += backtabCols
	rf.rd += backtabCols
	return true
}

// late replays the previously fetched row into the next slot. The read
// pointer does not move.
func (rf *rowFetcher) late() bool {
	if !rf.next() {
		return false
	}
	if rf.wr == 0 {
		copy(rf.working[0:backtabCols], rf.working[BacktabSize-backtabCols:])
	} else {
		copy(rf.working[rf.wr:rf.wr+backtabCols], rf.working[rf.wr-backtabCols:rf.wr])
	}
	rf.wr += backtabCols
	return true
}

func (s *STIC) rowOnTime() {
	if s.rows.onTime() && s.debug&ShowFIFOLoad != 0 {
		log.Printf("[STIC] row fetch on time: rd=%d wr=%d", s.rows.rd, s.rows.wr)
	}
}

func (s *STIC) rowLate() {
	if s.rows.late() && s.debug&ShowFIFOLoad != 0 {
		log.Printf("[STIC] row fetch late, replaying row: wr=%d", s.rows.wr)
	}
}
