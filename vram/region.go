package vram

import "fmt"

// Region is a bounded window of a Memory. Offsets are relative to the start
// of the region and may not leave it.
type Region struct {
	mem  *Memory
	base uint64
	size uint64
}

// Base returns the absolute address of offset 0.
func (r Region) Base() uint64 {
	return r.base
}

// Size returns the size of the region in bytes.
func (r Region) Size() uint64 {
	return r.size
}

func (r Region) addr(offset, n uint64) uint64 {
	if offset+n > r.size {
		panic(fmt.Sprintf(
			"vram: region access [%#x, %#x) beyond region size %#x",
			offset, offset+n, r.size))
	}

	return r.base + offset
}

// Read8 reads a byte.
func (r Region) Read8(offset uint64) uint8 {
	return r.mem.Read8(r.addr(offset, 1))
}

// Read16 reads a 16-bit value.
func (r Region) Read16(offset uint64) uint16 {
	return r.mem.Read16(r.addr(offset, 2))
}

// Read32 reads a 32-bit value.
func (r Region) Read32(offset uint64) uint32 {
	return r.mem.Read32(r.addr(offset, 4))
}

// Write8 writes a byte.
func (r Region) Write8(offset uint64, v uint8) {
	r.mem.Write8(r.addr(offset, 1), v)
}

// Write16 writes a 16-bit value.
func (r Region) Write16(offset uint64, v uint16) {
	r.mem.Write16(r.addr(offset, 2), v)
}

// Write32 writes a 32-bit value.
func (r Region) Write32(offset uint64, v uint32) {
	r.mem.Write32(r.addr(offset, 4), v)
}

// SetBit sets a bit counted from the start of the region.
func (r Region) SetBit(bitOffset uint32) {
	r.addr(uint64(bitOffset/8), 1)
	r.mem.SetBit(r.base, bitOffset)
}

// ClearBit clears a bit counted from the start of the region.
func (r Region) ClearBit(bitOffset uint32) {
	r.addr(uint64(bitOffset/8), 1)
	r.mem.ClearBit(r.base, bitOffset)
}

// TestBit tests a bit counted from the start of the region.
func (r Region) TestBit(bitOffset uint32) bool {
	r.addr(uint64(bitOffset/8), 1)
	return r.mem.TestBit(r.base, bitOffset)
}

// Fill sets every byte of the region to val.
func (r Region) Fill(val uint8) {
	r.mem.Set(r.base, val, r.size)
}

// SearchMin searches the minimum among count unit-sized values at offset.
func (r Region) SearchMin(offset uint64, unit, count uint32) uint32 {
	r.addr(offset, uint64(unit)*uint64(count))
	return r.mem.SearchMin(r.base+offset, unit, count)
}

// SearchEqual searches for val among count unit-sized values at offset.
func (r Region) SearchEqual(offset uint64, unit, count, val uint32) uint32 {
	r.addr(offset, uint64(unit)*uint64(count))
	return r.mem.SearchEqual(r.base+offset, unit, count, val)
}
