package ftl

import "github.com/sarchlab/vst/vram"

// Backend is what the FTL needs from the device: flash commands addressed by
// bank, block and page, and access to the DRAM that holds the buffers and the
// FTL tables.
type Backend interface {
	ReadPage(bank, blk, page, sect, n uint32, dramAddr uint64)
	WritePage(bank, blk, page, sect, n uint32, dramAddr uint64)
	CopybackPage(bank, srcBlk, srcPage, dstBlk, dstPage uint32)
	EraseBlock(bank, blk uint32)

	// WaitWriteBuffer returns once the host has filled write buffer id.
	WaitWriteBuffer(id uint32)
	// ReleaseReadBuffer hands a filled read buffer over to the host.
	ReleaseReadBuffer(id uint32)

	Memory() *vram.Memory
	CopyBuffer(dst, src, n uint64)
	FillBuffer(addr uint64, val uint8, n uint64)
	WriteWords(addr uint64, words []uint32)
	ReadWords(addr uint64, words []uint32)

	// LoadScanList places the factory bad-block list of a bank at addr.
	LoadScanList(bank uint32, addr uint64)
}
