// Package app provides display state snapshots for the emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gointv/internal/bus"
	"gointv/internal/stic"
)

// Address ranges captured by a snapshot
const (
	snapRegBase  = 0x0000
	snapRegCount = 0x40
	snapBTBase   = 0x0200
	snapBTCount  = 0xF0
	snapGRAMBase = 0x3800
	snapGRAMSize = 0x0800
)

// StateManager saves and restores what is visible through the bus: the
// chip's registers, the background table and GRAM, plus the chip's display
// mode. Memory goes through Peek and Poke, so taking a snapshot never
// disturbs chip timing. The display-enable and mode-select registers are
// not poked back because writing them has side effects; the mode is restored
// directly instead.
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool
}

// SaveState is one saved display state
type SaveState struct {
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`

	Registers []uint16 `json:"registers"`
	Backtab   []uint16 `json:"backtab"`
	GRAM      []uint16 `json:"gram"`

	ColorStack bool `json:"color_stack"`

	CycleCount uint64 `json:"cycle_count"`
}

// StateSlotInfo describes a save slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// NewStateManager creates a state manager saving to saveDirectory
func NewStateManager(saveDirectory string) *StateManager {
	manager := &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      10,
	}

	if err := manager.initialize(); err != nil {
		fmt.Printf("Warning: State manager initialization failed: %v\n", err)
	}
	return manager
}

func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %v", err)
	}
	sm.initialized = true
	return nil
}

func (sm *StateManager) checkSlot(slot int) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	return nil
}

// SaveState snapshots the display state into slot
func (sm *StateManager) SaveState(e *Emulator, slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}
	if e == nil || e.Bus() == nil {
		return fmt.Errorf("emulator cannot be nil")
	}
	b := e.Bus()

	state := &SaveState{
		Version:     "1.0",
		Timestamp:   time.Now(),
		SlotNumber:  slot,
		Description: fmt.Sprintf("Snapshot %s", time.Now().Format("2006-01-02 15:04:05")),
		Registers:   peekRange(b, snapRegBase, snapRegCount),
		Backtab:     peekRange(b, snapBTBase, snapBTCount),
		GRAM:        peekRange(b, snapGRAMBase, snapGRAMSize),
		ColorStack:  e.Chip().ColorStackMode(),
		CycleCount:  b.Now(),
	}

	if err := sm.saveToFile(state, sm.getSlotFilePath(slot)); err != nil {
		return fmt.Errorf("failed to save state: %v", err)
	}
	return nil
}

// LoadState restores the display state saved in slot
func (sm *StateManager) LoadState(e *Emulator, slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}
	if e == nil || e.Bus() == nil {
		return fmt.Errorf("emulator cannot be nil")
	}
	b := e.Bus()

	filePath := sm.getSlotFilePath(slot)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("save state not found in slot %d", slot)
	}

	state, err := sm.loadFromFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to load state: %v", err)
	}
	if err := validateSaveState(state); err != nil {
		return fmt.Errorf("invalid save state: %v", err)
	}

	for i, v := range state.Registers {
		addr := snapRegBase + i
		if addr == stic.RegDisplayOn || addr == stic.RegMode {
			continue
		}
		b.Poke(uint32(addr), v)
	}
	pokeRange(b, snapBTBase, state.Backtab)
	pokeRange(b, snapGRAMBase, state.GRAM)
	e.Chip().SetColorStackMode(state.ColorStack)
	return nil
}

func peekRange(b *bus.Bus, base uint32, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = b.Peek(base + uint32(i))
	}
	return out
}

func pokeRange(b *bus.Bus, base uint32, data []uint16) {
	for i, v := range data {
		b.Poke(base+uint32(i), v)
	}
}

func validateSaveState(state *SaveState) error {
	if state.Version == "" {
		return fmt.Errorf("missing version information")
	}
	if len(state.Registers) != snapRegCount {
		return fmt.Errorf("expected %d registers, got %d", snapRegCount, len(state.Registers))
	}
	if len(state.Backtab) != snapBTCount {
		return fmt.Errorf("expected %d background table words, got %d", snapBTCount, len(state.Backtab))
	}
	if len(state.GRAM) != snapGRAMSize {
		return fmt.Errorf("expected %d GRAM bytes, got %d", snapGRAMSize, len(state.GRAM))
	}
	return nil
}

func (sm *StateManager) saveToFile(state *SaveState, filePath string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %v", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %v", err)
	}
	return nil
}

func (sm *StateManager) loadFromFile(filePath string) (*SaveState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %v", err)
	}
	return &state, nil
}

func (sm *StateManager) getSlotFilePath(slot int) string {
	return filepath.Join(sm.saveDirectory, fmt.Sprintf("display_slot_%d.json", slot))
}

// GetSlotInfo describes every save slot
func (sm *StateManager) GetSlotInfo() []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := range slots {
		info := StateSlotInfo{SlotNumber: i}

		filePath := sm.getSlotFilePath(i)
		if stat, err := os.Stat(filePath); err == nil {
			info.Used = true
			info.FilePath = filePath
			info.FileSize = stat.Size()
			info.Timestamp = stat.ModTime()

			if state, err := sm.loadFromFile(filePath); err == nil {
				info.Description = state.Description
				info.Timestamp = state.Timestamp
			}
		}
		slots[i] = info
	}
	return slots
}

// DeleteState removes the state saved in slot
func (sm *StateManager) DeleteState(slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	filePath := sm.getSlotFilePath(slot)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("no save state in slot %d", slot)
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete save state: %v", err)
	}
	return nil
}

// Cleanup releases state manager resources
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}
