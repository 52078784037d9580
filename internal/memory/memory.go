// Package memory implements the RAM and ROM peripherals of the Intellivision
// memory map and the loaders for the images that populate them.
package memory

import "fmt"

// Standard system memory regions
const (
	ScratchBase = 0x0100 // 8-bit scratchpad RAM
	ScratchSize = 0x00F0
	SystemBase  = 0x0200 // 16-bit system RAM; BACKTAB lives at its start
	SystemSize  = 0x0160
	ExecBase    = 0x1000 // Executive ROM
	ExecSize    = 0x1000
)

// RAM is a block of word-addressed memory with a fixed data width. Bits
// above the width read back as zero.
type RAM struct {
	data  []uint16
	width uint
	mask  uint16
}

// NewRAM creates a RAM of size words and width bits. Contents start out
// with the power-up pattern.
func NewRAM(size int, width uint) (*RAM, error) {
	if size <= 0 {
		return nil, fmt.Errorf("failed to create RAM: invalid size %d", size)
	}
	if width == 0 || width > 16 {
		return nil, fmt.Errorf("failed to create RAM: invalid width %d", width)
	}

	r := &RAM{
		data:  make([]uint16, size),
		width: width,
		mask:  uint16((1 << width) - 1),
	}
	r.initializePowerUp()
	return r, nil
}

// initializePowerUp fills RAM with the alternating pattern seen on
// uninitialized static RAM. Software must not rely on it.
func (r *RAM) initializePowerUp() {
	for i := range r.data {
		if (i/8)%2 == 0 {
			r.data[i] = 0
		} else {
			r.data[i] = r.mask
		}
	}
}

// Size returns the number of words
func (r *RAM) Size() int {
	return len(r.data)
}

// Width returns the data width in bits
func (r *RAM) Width() uint {
	return r.width
}

// Read returns the word at addr
func (r *RAM) Read(now uint64, addr uint32) uint16 {
	return r.Peek(addr)
}

// Write stores the low width bits of data at addr
func (r *RAM) Write(now uint64, addr uint32, data uint16) {
	r.Poke(addr, data)
}

// Peek returns the word at addr. Addresses past the end do not drive the bus.
func (r *RAM) Peek(addr uint32) uint16 {
	if int(addr) >= len(r.data) {
		return 0xFFFF
	}
	return r.data[addr]
}

// Poke stores the low width bits of data at addr
func (r *RAM) Poke(addr uint32, data uint16) {
	if int(addr) >= len(r.data) {
		return
	}
	r.data[addr] = data & r.mask
}

// Fill sets every word to v
func (r *RAM) Fill(v uint16) {
	for i := range r.data {
		r.data[i] = v & r.mask
	}
}

// ROM is read-only word memory. Pokes still modify it so debuggers can patch
// code.
type ROM struct {
	data []uint16
}

// NewROM creates a ROM holding a copy of image
func NewROM(image []uint16) (*ROM, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("failed to create ROM: empty image")
	}
	data := make([]uint16, len(image))
	copy(data, image)
	return &ROM{data: data}, nil
}

// Size returns the number of words
func (r *ROM) Size() int {
	return len(r.data)
}

// Read returns the word at addr
func (r *ROM) Read(now uint64, addr uint32) uint16 {
	return r.Peek(addr)
}

// Write is ignored
func (r *ROM) Write(now uint64, addr uint32, data uint16) {}

// Peek returns the word at addr
func (r *ROM) Peek(addr uint32) uint16 {
	if int(addr) >= len(r.data) {
		return 0xFFFF
	}
	return r.data[addr]
}

// Poke patches the word at addr
func (r *ROM) Poke(addr uint32, data uint16) {
	if int(addr) >= len(r.data) {
		return
	}
	r.data[addr] = data
}
