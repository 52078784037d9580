package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// GROMSize is the size of the graphics ROM image in bytes
const GROMSize = 2048

// LoadGROMFromFile loads a graphics ROM image
func LoadGROMFromFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadGROMFromReader(file)
}

// LoadGROMFromReader reads the first 2 KiB of r as a graphics ROM image.
// Trailing data is ignored.
func LoadGROMFromReader(r io.Reader) ([]byte, error) {
	grom := make([]byte, GROMSize)
	if _, err := io.ReadFull(r, grom); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("invalid GROM: image must be at least 2048 bytes")
		}
		return nil, err
	}
	return grom, nil
}

// LoadWordImageFromFile loads a ROM image of big-endian 16-bit words
func LoadWordImageFromFile(filename string, words int) ([]uint16, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadWordImageFromReader(file, words)
}

// LoadWordImageFromReader reads words big-endian 16-bit words from r
func LoadWordImageFromReader(r io.Reader, words int) ([]uint16, error) {
	if words <= 0 {
		return nil, fmt.Errorf("invalid ROM: word count %d", words)
	}
	image := make([]uint16, words)
	if err := binary.Read(r, binary.BigEndian, image); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid ROM: image must be at least %d words", words)
		}
		return nil, err
	}
	return image, nil
}

// TestPatternGROM builds a stand-in graphics ROM for running without the
// real image. Card 0 is blank, card 1 is solid, and the rest cycle through
// stripes, checkerboards and outlined boxes so every card is distinct.
func TestPatternGROM() []byte {
	grom := make([]byte, GROMSize)
	for card := 1; card < GROMSize/8; card++ {
		for row := 0; row < 8; row++ {
			var bits byte
			switch card % 4 {
			case 1:
				bits = 0xFF
				if card > 1 && row > 0 && row < 7 {
					bits = 0x81
				}
			case 2:
				if row&1 == 0 {
					bits = 0xFF
				}
			case 3:
				bits = 0xAA
				if row&1 != 0 {
					bits = 0x55
				}
			case 0:
				bits = byte(0xF0 >> (row & 3))
			}
			grom[card*8+row] = bits ^ byte(card>>2)
		}
	}
	return grom
}
