package stic

// NumRegisters is the size of the control register file
const NumRegisters = 0x40

// Register offsets within the control window
const (
	RegMOBX        = 0x00 // 0x00-0x07
	RegMOBY        = 0x08 // 0x08-0x0F
	RegMOBAttr     = 0x10 // 0x10-0x17
	RegMOBCollide  = 0x18 // 0x18-0x1F
	RegDisplayOn   = 0x20
	RegMode        = 0x21
	RegColorStack  = 0x28 // 0x28-0x2B
	RegBorderColor = 0x2C
	RegHDelay      = 0x30
	RegVDelay      = 0x31
	RegEdgeMask    = 0x32
)

// regMask describes which bits of a register are implemented (and) and what
// the unimplemented bits read back as (or).
type regMask struct {
	and, or uint16
}

var regMasks = [NumRegisters]regMask{
	// MOB X
	{0x07FF, 0x3800}, {0x07FF, 0x3800}, {0x07FF, 0x3800}, {0x07FF, 0x3800},
	{0x07FF, 0x3800}, {0x07FF, 0x3800}, {0x07FF, 0x3800}, {0x07FF, 0x3800},
	// MOB Y
	{0x0FFF, 0x3000}, {0x0FFF, 0x3000}, {0x0FFF, 0x3000}, {0x0FFF, 0x3000},
	{0x0FFF, 0x3000}, {0x0FFF, 0x3000}, {0x0FFF, 0x3000}, {0x0FFF, 0x3000},
	// MOB attributes
	{0x3FFF, 0x0000}, {0x3FFF, 0x0000}, {0x3FFF, 0x0000}, {0x3FFF, 0x0000},
	{0x3FFF, 0x0000}, {0x3FFF, 0x0000}, {0x3FFF, 0x0000}, {0x3FFF, 0x0000},
	// MOB collision: a MOB never collides with itself
	{0x03FE, 0x3C00}, {0x03FD, 0x3C00}, {0x03FB, 0x3C00}, {0x03F7, 0x3C00},
	{0x03EF, 0x3C00}, {0x03DF, 0x3C00}, {0x03BF, 0x3C00}, {0x037F, 0x3C00},
	// 0x20-0x27: display enable, mode, unimplemented
	{0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF},
	{0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF},
	// 0x28-0x2C: color stack and border, 0x2D-0x2F unimplemented
	{0x000F, 0x3FF0}, {0x000F, 0x3FF0}, {0x000F, 0x3FF0}, {0x000F, 0x3FF0},
	{0x000F, 0x3FF0}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF},
	// 0x30-0x32: delays and edge masking, rest unimplemented
	{0x0007, 0x3FF8}, {0x0007, 0x3FF8}, {0x0003, 0x3FFC}, {0x0000, 0x3FFF},
	{0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF},
	{0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF},
	{0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF}, {0x0000, 0x3FFF},
}

// RegisterFile stores the control registers in their masked form
type RegisterFile struct {
	raw [NumRegisters]uint16
}

// Clear zeroes every register without going through the masks
func (rf *RegisterFile) Clear() {
	rf.raw = [NumRegisters]uint16{}
}

// Store applies the register's masks to data and stores the result. It
// reports whether the stored value changed.
func (rf *RegisterFile) Store(addr int, data uint16) (uint16, bool) {
	m := regMasks[addr]
	v := (data & m.and) | m.or
	old := rf.raw[addr]
	rf.raw[addr] = v
	return v, old != v
}

// Value returns the register as the CPU reads it
func (rf *RegisterFile) Value(addr int) uint16 {
	m := regMasks[addr]
	return (rf.raw[addr] & m.and) | m.or
}

// Raw returns the stored register value
func (rf *RegisterFile) Raw(addr int) uint32 {
	return uint32(rf.raw[addr])
}

// setBits ORs bits into a register, bypassing the masks. Used by collision
// detection.
func (rf *RegisterFile) setBits(addr int, bits uint16) {
	rf.raw[addr] |= bits
}
