package stic

// Tables holds the bit-expansion lookup tables used by the renderer. They are
// built once and never modified afterwards.
type Tables struct {
	// b2n expands each bit of a byte into a 4-bit nibble mask. Bit 7 maps to
	// the most significant nibble, which is the leftmost pixel.
	b2n [256]uint32

	// MOB row remap tables. All results are left-justified in 16 bits.
	bit   [256]uint16 // single width
	bitR  [256]uint16 // single width, x-flipped
	bitD  [256]uint16 // double width
	bitRD [256]uint16 // double width, x-flipped
}

// colorMask replicates a 4-bit color index into all 8 nibbles of a word
var colorMask = [16]uint32{
	0x00000000, 0x11111111, 0x22222222, 0x33333333,
	0x44444444, 0x55555555, 0x66666666, 0x77777777,
	0x88888888, 0x99999999, 0xAAAAAAAA, 0xBBBBBBBB,
	0xCCCCCCCC, 0xDDDDDDDD, 0xEEEEEEEE, 0xFFFFFFFF,
}

// mobHeight is the MOB height in rows for each y-size/y-resolution code
var mobHeight = [8]int{8, 16, 16, 32, 32, 64, 64, 128}

// defaultTables is shared by every chip instance
var defaultTables = buildTables()

func reverse8(v uint32) uint32 {
	v = ((v & 0xAA) >> 1) | ((v & 0x55) << 1)
	v = ((v & 0xCC) >> 2) | ((v & 0x33) << 2)
	v = ((v & 0xF0) >> 4) | ((v & 0x0F) << 4)
	return v
}

// doubleBits spreads each bit of v into two adjacent bits
func doubleBits(v uint32) uint32 {
	for j := 7; j > 0; j-- {
		v += v & (^uint32(0) << j)
	}
	return 3 * v
}

func buildTables() *Tables {
	t := &Tables{}

	for i := 0; i < 256; i++ {
		var n uint32
		for j := 0; j < 8; j++ {
			if (i>>j)&1 != 0 {
				n |= 0xF << (j * 4)
			}
		}
		t.b2n[i] = n
	}

	for i := 0; i < 256; i++ {
		r := reverse8(uint32(i))
		t.bit[i] = uint16(i << 8)
		t.bitR[i] = uint16(r << 8)
		t.bitD[i] = uint16(doubleBits(uint32(i)))
		t.bitRD[i] = uint16(doubleBits(r))
	}

	return t
}

// remap selects the row remap table for a MOB's width and flip settings
func (t *Tables) remap(doubleWidth, xFlip bool) *[256]uint16 {
	switch {
	case doubleWidth && xFlip:
		return &t.bitRD
	case doubleWidth:
		return &t.bitD
	case xFlip:
		return &t.bitR
	default:
		return &t.bit
	}
}
