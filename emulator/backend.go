package emulator

import (
	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/pagetag"
)

// ReadPage reads sectors of a flash page into the buffer frame at dramAddr.
// The sectors land at the same offset inside the frame.
func (e *Emulator) ReadPage(bank, blk, page, sect, n uint32, dramAddr uint64) {
	e.flash.ReadPage(bank, blk, page, sect, n, e.Frame(dramAddr))
}

// WritePage programs sectors of a flash page from the buffer frame at
// dramAddr.
func (e *Emulator) WritePage(bank, blk, page, sect, n uint32, dramAddr uint64) {
	e.flash.WritePage(bank, blk, page, sect, n, e.Frame(dramAddr))
}

// CopybackPage copies a flash page inside a bank.
func (e *Emulator) CopybackPage(bank, srcBlk, srcPage, dstBlk, dstPage uint32) {
	e.flash.CopybackPage(bank, srcBlk, srcPage, dstBlk, dstPage)
}

// EraseBlock erases a flash block.
func (e *Emulator) EraseBlock(bank, blk uint32) {
	e.flash.EraseBlock(bank, blk)
}

// CopyBuffer copies n bytes of DRAM. Between buffer frames the copy keeps the
// host data tags and must then cover whole sectors at the same offset of both
// frames.
func (e *Emulator) CopyBuffer(dst, src, n uint64) {
	dstFrame, dstOffset, dstIsFrame := e.layout.FrameOf(dst)
	srcFrame, srcOffset, srcIsFrame := e.layout.FrameOf(src)

	if !dstIsFrame || !srcIsFrame {
		e.mem.Copy(dst, src, n)
		e.untagFrames(dst, n)

		return
	}

	bps := uint64(e.geo.BytesPerSector)
	if dstOffset != srcOffset || dstOffset%bps != 0 || n%bps != 0 ||
		dstOffset+n > e.layout.PageSize() {
		e.checker.Fail(checker.OutOfBounds,
			"buffer copy of %d bytes from %#x to %#x is not sector aligned",
			n, src, dst)
	}

	pagetag.Copy(e.frames[dstFrame], e.frames[srcFrame],
		uint32(dstOffset/bps), uint32(n/bps))
}

// FillBuffer sets n bytes of DRAM to val. Filled frames hold raw bytes.
func (e *Emulator) FillBuffer(addr uint64, val uint8, n uint64) {
	e.mem.Set(addr, val, n)
	e.untagFrames(addr, n)
}

// WriteWords stores 32-bit words at addr.
func (e *Emulator) WriteWords(addr uint64, words []uint32) {
	for i, w := range words {
		e.mem.Write32(addr+uint64(i)*4, w)
	}

	e.untagFrames(addr, uint64(len(words))*4)
}

// ReadWords loads len(words) 32-bit words from addr.
func (e *Emulator) ReadWords(addr uint64, words []uint32) {
	for i := range words {
		words[i] = e.mem.Read32(addr + uint64(i)*4)
	}
}

// LoadScanList writes the factory bad-block list of a bank to addr as a
// 16-bit count followed by 16-bit block numbers.
func (e *Emulator) LoadScanList(bank uint32, addr uint64) {
	bad := e.flash.BadBlocks(bank)

	e.mem.Write16(addr, uint16(bad.GetCardinality()))

	it := bad.Iterator()
	for i := uint64(0); it.HasNext(); i++ {
		e.mem.Write16(addr+2+2*i, uint16(it.Next()))
	}
}

func (e *Emulator) untagFrames(addr, n uint64) {
	lo := max(addr, e.layout.ReadBufferBase)
	hi := min(addr+n, e.layout.TempBufferBase)

	if lo >= hi {
		return
	}

	page := e.layout.PageSize()
	first := (lo - e.layout.ReadBufferBase) / page
	last := (hi - 1 - e.layout.ReadBufferBase) / page

	for i := first; i <= last; i++ {
		e.frames[i].Untag()
	}
}
