package ftl

import (
	"fmt"

	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/vram"
)

// BlockRole tells whether garbage collection may pick a block.
type BlockRole struct {
	reserved bool
	count    uint32
}

// Reserved is the role of meta, map, GC-destination and bad blocks.
func Reserved() BlockRole {
	return BlockRole{reserved: true}
}

// Collectable is the role of a data block holding n valid pages.
func Collectable(n uint32) BlockRole {
	return BlockRole{count: n}
}

// IsReserved reports whether the block is excluded from garbage collection.
func (r BlockRole) IsReserved() bool {
	return r.reserved
}

// ValidPages returns the valid-page count of a collectable block.
func (r BlockRole) ValidPages() uint32 {
	return r.count
}

func (r BlockRole) String() string {
	if r.reserved {
		return "Reserved"
	}

	return fmt.Sprintf("Collectable(%d)", r.count)
}

func decodeRole(raw uint16) BlockRole {
	if raw == geometry.VCountReserved {
		return Reserved()
	}

	return Collectable(uint32(raw))
}

func encodeRole(r BlockRole) uint16 {
	if r.reserved {
		return geometry.VCountReserved
	}

	return uint16(r.count)
}

// pageMap is the LPN to PPN table. Entries hold ppn+1 so that zeroed memory
// reads as unmapped.
type pageMap struct {
	region vram.Region
}

func (m pageMap) lookup(lpn geometry.LPN) (geometry.PPN, bool) {
	raw := m.region.Read32(uint64(lpn) * 4)
	if raw == 0 {
		return 0, false
	}

	return geometry.PPN(raw - 1), true
}

func (m pageMap) set(lpn geometry.LPN, ppn geometry.PPN) {
	m.region.Write32(uint64(lpn)*4, uint32(ppn)+1)
}

func (m pageMap) reset() {
	m.region.Fill(0)
}

// vcountTable holds the raw valid-page counts of all blocks, bank by bank.
type vcountTable struct {
	region        vram.Region
	blocksPerBank uint32
}

func (t vcountTable) offset(bank, blk uint32) uint64 {
	return (uint64(bank)*uint64(t.blocksPerBank) + uint64(blk)) * 2
}

func (t vcountTable) raw(bank, blk uint32) uint16 {
	return t.region.Read16(t.offset(bank, blk))
}

func (t vcountTable) role(bank, blk uint32) BlockRole {
	return decodeRole(t.raw(bank, blk))
}

func (t vcountTable) setRole(bank, blk uint32, r BlockRole) {
	t.region.Write16(t.offset(bank, blk), encodeRole(r))
}

func (t vcountTable) reset() {
	t.region.Fill(0)
}

// minBlock returns the block of a bank with the fewest valid pages. Reserved
// blocks carry the largest raw value and are only picked when nothing else
// is left.
func (t vcountTable) minBlock(bank uint32) uint32 {
	return t.region.SearchMin(t.offset(bank, 0), 2, t.blocksPerBank)
}
