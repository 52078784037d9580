package stic

import (
	"log"
	"strings"
)

// DebugFlags enables diagnostic logging and halt-on-anomaly behaviour
type DebugFlags uint32

const (
	ShowWriteDrop   DebugFlags = 1 << 0 // log writes outside an access window
	ShowReadDrop    DebugFlags = 1 << 1 // log reads outside an access window
	ShowFIFOLoad    DebugFlags = 1 << 2 // log row fetches
	DbgRegWindow    DebugFlags = 1 << 3 // register window drop already reported
	DbgMemWindow    DebugFlags = 1 << 4 // memory window drop already reported
	HaltOnBlank     DebugFlags = 1 << 5 // halt when the display goes from enabled to disabled
	GRAMShot        DebugFlags = 1 << 6 // export GRAM on the next tick
	DbgRequests     DebugFlags = 1 << 7 // trace request generation and resolution
	HaltOnBusrqDrop DebugFlags = 1 << 8
	HaltOnIntrqDrop DebugFlags = 1 << 9
)

var debugFlagNames = []struct {
	flag DebugFlags
	name string
}{
	{ShowWriteDrop, "show_wr_drop"},
	{ShowReadDrop, "show_rd_drop"},
	{ShowFIFOLoad, "show_fifo_load"},
	{DbgRegWindow, "dbg_ctrl_access_window"},
	{DbgMemWindow, "dbg_gmem_access_window"},
	{HaltOnBlank, "halt_on_blank"},
	{GRAMShot, "gramshot"},
	{DbgRequests, "dbg_reqs"},
	{HaltOnBusrqDrop, "halt_on_busrq_drop"},
	{HaltOnIntrqDrop, "halt_on_intrm_drop"},
}

// String lists the set flags by name
func (f DebugFlags) String() string {
	var names []string
	for _, n := range debugFlagNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseDebugFlags converts a comma separated list of flag names. Unknown
// names are returned separately.
func ParseDebugFlags(s string) (DebugFlags, []string) {
	var f DebugFlags
	var unknown []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" || part == "none" {
			continue
		}
		found := false
		for _, n := range debugFlagNames {
			if n.name == part {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, part)
		}
	}
	return f, unknown
}

// haltOn latches a halt request when flag is enabled
func (s *STIC) haltOn(flag DebugFlags, reason string) {
	if s.debug&flag == 0 {
		return
	}
	s.halted = true
	s.haltReason = reason
	log.Printf("[STIC] halt requested: %s", reason)
}

// HaltRequested reports whether a halt-on-anomaly condition fired
func (s *STIC) HaltRequested() bool {
	return s.halted
}

// HaltReason returns the reason for the latched halt
func (s *STIC) HaltReason() string {
	return s.haltReason
}

// ClearHalt acknowledges a latched halt
func (s *STIC) ClearHalt() {
	s.halted = false
	s.haltReason = ""
}

// DebugFlags returns the active debug flags
func (s *STIC) DebugFlags() DebugFlags {
	return s.debug
}

// SetDebugFlags replaces the active debug flags
func (s *STIC) SetDebugFlags(f DebugFlags) {
	s.debug = f
}

// RequestGRAMShot schedules a GRAM export on the next tick
func (s *STIC) RequestGRAMShot() {
	s.debug |= GRAMShot
}

// logDrop reports an access that fell outside its window. The window flag is
// set after the first report so the caller can tell a window has lapsed.
func (s *STIC) logDrop(show, window DebugFlags, what string, addr uint32, now uint64, data *uint16) {
	if s.debug&show == 0 {
		return
	}
	if data != nil {
		log.Printf("[STIC] %s drop: addr = $%04X @%d (data $%04X)", what, addr, now, *data)
	} else {
		log.Printf("[STIC] %s drop: addr = $%04X @%d", what, addr, now)
	}
	s.debug |= window
}
