package memory

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRAM_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		width uint
	}{
		{"zero size", 0, 16},
		{"zero width", 16, 0},
		{"too wide", 16, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRAM(tt.size, tt.width); err == nil {
				t.Errorf("Expected error for size %d width %d", tt.size, tt.width)
			}
		})
	}
}

func TestRAM_WidthMasksWrites(t *testing.T) {
	tests := []struct {
		name  string
		width uint
		data  uint16
		want  uint16
	}{
		{"8-bit scratchpad", 8, 0x1234, 0x0034},
		{"16-bit system RAM", 16, 0x1234, 0x1234},
		{"10-bit", 10, 0xFFFF, 0x03FF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRAM(16, tt.width)
			if err != nil {
				t.Fatalf("Failed to create RAM: %v", err)
			}
			r.Write(0, 3, tt.data)
			if got := r.Read(0, 3); got != tt.want {
				t.Errorf("Expected %04X, got %04X", tt.want, got)
			}
		})
	}
}

func TestRAM_OutOfRange(t *testing.T) {
	r, _ := NewRAM(4, 16)
	r.Poke(4, 0x1234)
	if got := r.Peek(4); got != 0xFFFF {
		t.Errorf("Expected out-of-range read to float high, got %04X", got)
	}
}

func TestRAM_Fill(t *testing.T) {
	r, _ := NewRAM(8, 8)
	r.Fill(0x1FF)
	for i := 0; i < r.Size(); i++ {
		if got := r.Peek(uint32(i)); got != 0xFF {
			t.Fatalf("Word %d: expected FF, got %04X", i, got)
		}
	}
}

func TestRAM_PowerUpPattern(t *testing.T) {
	r, _ := NewRAM(32, 16)
	if r.Peek(0) != 0 || r.Peek(8) != 0xFFFF || r.Peek(16) != 0 {
		t.Errorf("Unexpected power-up pattern: %04X %04X %04X", r.Peek(0), r.Peek(8), r.Peek(16))
	}
}

func TestROM_WritesIgnoredPokesApplied(t *testing.T) {
	r, err := NewROM([]uint16{0x0001, 0x0002, 0x0003})
	if err != nil {
		t.Fatalf("Failed to create ROM: %v", err)
	}

	r.Write(0, 1, 0xBEEF)
	if got := r.Read(0, 1); got != 0x0002 {
		t.Errorf("Expected write ignored, got %04X", got)
	}

	r.Poke(1, 0xBEEF)
	if got := r.Peek(1); got != 0xBEEF {
		t.Errorf("Expected poke applied, got %04X", got)
	}

	if _, err := NewROM(nil); err == nil {
		t.Error("Expected error for empty ROM image")
	}
}

func TestLoadGROMFromReader(t *testing.T) {
	data := make([]byte, GROMSize+100)
	data[0] = 0x3C
	data[GROMSize-1] = 0x7E

	grom, err := LoadGROMFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to load GROM: %v", err)
	}
	if len(grom) != GROMSize {
		t.Errorf("Expected %d bytes, got %d", GROMSize, len(grom))
	}
	if grom[0] != 0x3C || grom[GROMSize-1] != 0x7E {
		t.Errorf("GROM contents not preserved")
	}

	if _, err := LoadGROMFromReader(bytes.NewReader(data[:100])); err == nil {
		t.Error("Expected error for short GROM image")
	}
}

func TestLoadGROMFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grom.bin")
	if err := os.WriteFile(path, TestPatternGROM(), 0644); err != nil {
		t.Fatalf("Failed to write test GROM: %v", err)
	}

	grom, err := LoadGROMFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load GROM: %v", err)
	}
	if !bytes.Equal(grom, TestPatternGROM()) {
		t.Error("Loaded GROM does not match the written image")
	}

	if _, err := LoadGROMFromFile(filepath.Join(dir, "missing.bin")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadWordImageFromReader(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x34, 0xFF, 0xFF}

	image, err := LoadWordImageFromReader(bytes.NewReader(data), 3)
	if err != nil {
		t.Fatalf("Failed to load image: %v", err)
	}
	want := []uint16{0x0001, 0x0234, 0xFFFF}
	for i := range want {
		if image[i] != want[i] {
			t.Errorf("Word %d: expected %04X, got %04X", i, want[i], image[i])
		}
	}

	if _, err := LoadWordImageFromReader(bytes.NewReader(data), 4); err == nil {
		t.Error("Expected error for short image")
	}
	if _, err := LoadWordImageFromReader(bytes.NewReader(data), 0); err == nil {
		t.Error("Expected error for zero word count")
	}
}

func TestTestPatternGROM(t *testing.T) {
	grom := TestPatternGROM()

	for i := 0; i < 8; i++ {
		if grom[i] != 0 {
			t.Errorf("Expected card 0 blank, row %d is %02X", i, grom[i])
		}
		if grom[8+i] != 0xFF {
			t.Errorf("Expected card 1 solid, row %d is %02X", i, grom[8+i])
		}
	}

	seen := make(map[string]int)
	for card := 0; card < GROMSize/8; card++ {
		key := string(grom[card*8 : card*8+8])
		if prev, ok := seen[key]; ok {
			t.Errorf("Cards %d and %d are identical", prev, card)
		}
		seen[key] = card
	}
}
