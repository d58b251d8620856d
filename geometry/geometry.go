// Package geometry describes the shape of the emulated SSD: how many banks,
// blocks, pages and sectors it has, and how addresses are derived from them.
package geometry

import (
	"errors"
	"fmt"
)

// VCountReserved is the raw valid-page count stored for blocks that must
// never be garbage collected (bad, map, and GC-target blocks).
const VCountReserved = 0xCDCD

// LBA is a sector-granular logical block address.
type LBA uint32

// LPN is a logical page number.
type LPN uint32

// PPN is a physical page number inside a bank.
type PPN uint32

// Geometry is the flash organization shared by the emulator and the FTL.
type Geometry struct {
	Banks          uint32
	BlocksPerBank  uint32
	PagesPerBlock  uint32
	SectorsPerPage uint32
	BytesPerSector uint32

	// MetaBlocks is the number of blocks at the start of every bank that hold
	// the bad-block bitmap and miscellaneous firmware data.
	MetaBlocks uint32

	// LogicalPages is the size of the host-visible address space in pages.
	LogicalPages uint32
}

// BytesPerPage returns the page size in bytes.
func (g Geometry) BytesPerPage() uint32 {
	return g.SectorsPerPage * g.BytesPerSector
}

// NumBlocks returns the number of blocks in the device.
func (g Geometry) NumBlocks() uint32 {
	return g.Banks * g.BlocksPerBank
}

// NumPages returns the number of physical pages in the device.
func (g Geometry) NumPages() uint32 {
	return g.NumBlocks() * g.PagesPerBlock
}

// NumSectors returns the number of physical sectors in the device.
func (g Geometry) NumSectors() uint32 {
	return g.NumPages() * g.SectorsPerPage
}

// NumLogicalSectors returns the number of host-addressable sectors.
func (g Geometry) NumLogicalSectors() uint32 {
	return g.LogicalPages * g.SectorsPerPage
}

// MaxLBA returns the largest host-addressable sector.
func (g Geometry) MaxLBA() LBA {
	return LBA(g.NumLogicalSectors() - 1)
}

// SummaryPage is the page index that carries the page-to-LPN table of a block.
func (g Geometry) SummaryPage() uint32 {
	return g.PagesPerBlock - 1
}

// LastDataPage is the last page index that holds host data.
func (g Geometry) LastDataPage() uint32 {
	return g.PagesPerBlock - 2
}

// SummarySectors is the number of sectors needed to store a block summary.
func (g Geometry) SummarySectors() uint32 {
	bytes := 4 * g.PagesPerBlock
	return (bytes + g.BytesPerSector - 1) / g.BytesPerSector
}

// PPN composes a physical page number from a block and a page index.
func (g Geometry) PPN(block, page uint32) PPN {
	return PPN(block*g.PagesPerBlock + page)
}

// Split decomposes a physical page number into block and page indices.
func (g Geometry) Split(ppn PPN) (block, page uint32) {
	return uint32(ppn) / g.PagesPerBlock, uint32(ppn) % g.PagesPerBlock
}

// LPN returns the logical page that holds the given sector.
func (g Geometry) LPN(lba LBA) LPN {
	return LPN(uint32(lba) / g.SectorsPerPage)
}

// SectorInPage returns the sector offset of an LBA within its logical page.
func (g Geometry) SectorInPage(lba LBA) uint32 {
	return uint32(lba) % g.SectorsPerPage
}

// BankOf returns the bank that owns a logical page.
func (g Geometry) BankOf(lpn LPN) uint32 {
	return uint32(lpn) % g.Banks
}

// DefaultLogicalPages keeps one data block per bank as over-provisioning on top
// of the meta, map and GC blocks, so that the block with the fewest valid
// pages always has at least one invalid page.
func (g Geometry) DefaultLogicalPages() uint32 {
	reserved := g.MetaBlocks + 3
	if g.BlocksPerBank <= reserved || g.PagesPerBlock < 2 {
		return 0
	}

	return g.Banks * (g.BlocksPerBank - reserved) * (g.PagesPerBlock - 1)
}

// Validate reports the first inconsistency found in the geometry.
func (g Geometry) Validate() error {
	switch {
	case g.Banks == 0:
		return errors.New("geometry: banks must be > 0")
	case g.BlocksPerBank == 0:
		return errors.New("geometry: blocks per bank must be > 0")
	case g.SectorsPerPage == 0:
		return errors.New("geometry: sectors per page must be > 0")
	case g.BytesPerSector == 0:
		return errors.New("geometry: bytes per sector must be > 0")
	case g.PagesPerBlock < 2:
		return errors.New("geometry: a block needs a data page and a summary page")
	case g.PagesPerBlock >= VCountReserved:
		return fmt.Errorf("geometry: pages per block must be < %#x", VCountReserved)
	case 4*g.PagesPerBlock > g.BytesPerPage():
		return errors.New("geometry: block summary does not fit in one page")
	case g.BlocksPerBank < g.MetaBlocks+3:
		return fmt.Errorf(
			"geometry: %d blocks per bank cannot hold %d meta blocks, "+
				"a map block, a GC block and a data block",
			g.BlocksPerBank, g.MetaBlocks)
	case g.LogicalPages == 0:
		return errors.New("geometry: logical pages must be > 0")
	}

	return nil
}
