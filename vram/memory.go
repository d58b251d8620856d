// Package vram emulates the controller DRAM as a flat, byte-addressable
// space. Firmware tables (the page map, valid-page counts, bitmaps) are stored
// here with the same addressing math the hardware uses.
package vram

import (
	"encoding/binary"
	"fmt"
)

// Memory is an emulated DRAM.
type Memory struct {
	data []byte
}

// New creates a zero-initialized memory of the given size in bytes.
func New(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Reset clears the whole memory.
func (m *Memory) Reset() {
	clear(m.data)
}

func (m *Memory) mustBeInRange(addr, n uint64) {
	if addr+n < addr || addr+n > uint64(len(m.data)) {
		panic(fmt.Sprintf(
			"vram: access [%#x, %#x) beyond capacity %#x",
			addr, addr+n, len(m.data)))
	}
}

func mustBeAligned(addr, unit uint64) {
	if addr%unit != 0 {
		panic(fmt.Sprintf("vram: %d-byte access to unaligned address %#x",
			unit, addr))
	}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint64) uint8 {
	m.mustBeInRange(addr, 1)
	return m.data[addr]
}

// Read16 reads a 2-byte aligned little-endian value.
func (m *Memory) Read16(addr uint64) uint16 {
	mustBeAligned(addr, 2)
	m.mustBeInRange(addr, 2)

	return binary.LittleEndian.Uint16(m.data[addr:])
}

// Read32 reads a 4-byte aligned little-endian value.
func (m *Memory) Read32(addr uint64) uint32 {
	mustBeAligned(addr, 4)
	m.mustBeInRange(addr, 4)

	return binary.LittleEndian.Uint32(m.data[addr:])
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint64, v uint8) {
	m.mustBeInRange(addr, 1)
	m.data[addr] = v
}

// Write16 writes a 2-byte aligned little-endian value.
func (m *Memory) Write16(addr uint64, v uint16) {
	mustBeAligned(addr, 2)
	m.mustBeInRange(addr, 2)

	binary.LittleEndian.PutUint16(m.data[addr:], v)
}

// Write32 writes a 4-byte aligned little-endian value.
func (m *Memory) Write32(addr uint64, v uint32) {
	mustBeAligned(addr, 4)
	m.mustBeInRange(addr, 4)

	binary.LittleEndian.PutUint32(m.data[addr:], v)
}

func bitAddr(base uint64, bitOffset uint32) (addr uint64, mask uint8) {
	return base + uint64(bitOffset/8), 1 << (bitOffset % 8)
}

// SetBit sets bit bitOffset counted from base.
func (m *Memory) SetBit(base uint64, bitOffset uint32) {
	addr, mask := bitAddr(base, bitOffset)
	m.Write8(addr, m.Read8(addr)|mask)
}

// ClearBit clears bit bitOffset counted from base.
func (m *Memory) ClearBit(base uint64, bitOffset uint32) {
	addr, mask := bitAddr(base, bitOffset)
	m.Write8(addr, m.Read8(addr)&^mask)
}

// TestBit reports whether bit bitOffset counted from base is set.
func (m *Memory) TestBit(base uint64, bitOffset uint32) bool {
	addr, mask := bitAddr(base, bitOffset)
	return m.Read8(addr)&mask != 0
}

// Set fills n bytes starting at addr with val.
func (m *Memory) Set(addr uint64, val uint8, n uint64) {
	m.mustBeInRange(addr, n)

	region := m.data[addr : addr+n]
	for i := range region {
		region[i] = val
	}
}

// Copy copies n bytes from src to dst. Overlapping ranges are allowed.
func (m *Memory) Copy(dst, src, n uint64) {
	m.mustBeInRange(dst, n)
	m.mustBeInRange(src, n)

	copy(m.data[dst:dst+n], m.data[src:src+n])
}

// Slice exposes n live bytes starting at addr. Writes to the returned slice
// are writes to the memory.
func (m *Memory) Slice(addr, n uint64) []byte {
	m.mustBeInRange(addr, n)
	return m.data[addr : addr+n : addr+n]
}

func (m *Memory) readUnit(addr uint64, unit uint32) uint32 {
	switch unit {
	case 1:
		return uint32(m.Read8(addr))
	case 2:
		return uint32(m.Read16(addr))
	case 4:
		return m.Read32(addr)
	default:
		panic(fmt.Sprintf("vram: invalid search unit %d", unit))
	}
}

func (m *Memory) searchMustBeValid(addr uint64, unit, count uint32) {
	if unit != 1 && unit != 2 && unit != 4 {
		panic(fmt.Sprintf("vram: invalid search unit %d", unit))
	}

	if count == 0 {
		panic("vram: search over an empty range")
	}

	mustBeAligned(addr, uint64(unit))
	m.mustBeInRange(addr, uint64(unit)*uint64(count))
}

// SearchMin returns the index of the first minimum among count values of unit
// bytes each. A zero value ends the search early since nothing can be smaller.
func (m *Memory) SearchMin(addr uint64, unit, count uint32) uint32 {
	m.searchMustBeValid(addr, unit, count)

	idx := uint32(0)
	min := m.readUnit(addr, unit)

	for i := uint32(1); i < count && min != 0; i++ {
		v := m.readUnit(addr+uint64(i*unit), unit)
		if v < min {
			min = v
			idx = i
		}
	}

	return idx
}

// SearchMax returns the index of the first maximum among count values of unit
// bytes each.
func (m *Memory) SearchMax(addr uint64, unit, count uint32) uint32 {
	m.searchMustBeValid(addr, unit, count)

	idx := uint32(0)
	max := m.readUnit(addr, unit)

	for i := uint32(1); i < count; i++ {
		v := m.readUnit(addr+uint64(i*unit), unit)
		if v > max {
			max = v
			idx = i
		}
	}

	return idx
}

// SearchEqual returns the index of the first of count values equal to val, or
// count if there is none.
func (m *Memory) SearchEqual(addr uint64, unit, count, val uint32) uint32 {
	m.searchMustBeValid(addr, unit, count)

	for i := uint32(0); i < count; i++ {
		if m.readUnit(addr+uint64(i*unit), unit) == val {
			return i
		}
	}

	return count
}

// Region returns a view of size bytes starting at base.
func (m *Memory) Region(base, size uint64) Region {
	m.mustBeInRange(base, size)
	return Region{mem: m, base: base, size: size}
}
