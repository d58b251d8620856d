package geometry

// Layout fixes where every DRAM structure lives. All offsets are derived from
// the geometry, so the FTL and the emulator agree on them without sharing
// state.
type Layout struct {
	pageSize uint64

	NumReadBuffers  uint32
	NumWriteBuffers uint32
	NumFTLBuffers   uint32

	ReadBufferBase  uint64
	WriteBufferBase uint64
	FTLBufferBase   uint64
	TempBufferBase  uint64
	TempBufferBytes uint64

	PageMapBase         uint64
	PageMapBytes        uint64
	VCountBase          uint64
	VCountBytes         uint64
	BadBlockBitmapBase  uint64
	BadBlockBitmapBytes uint64
	BitmapBytesPerBank  uint64

	Size uint64
}

// DefaultNumBuffers is the default number of read and write buffer frames.
const DefaultNumBuffers = 8

// NewLayout computes the DRAM layout with the given numbers of host read and
// write buffer frames.
func NewLayout(g Geometry, numReadBuffers, numWriteBuffers uint32) Layout {
	if numReadBuffers == 0 || numWriteBuffers == 0 {
		panic("layout: at least one read and one write buffer is required")
	}

	page := uint64(g.BytesPerPage())
	l := Layout{
		pageSize:        page,
		NumReadBuffers:  numReadBuffers,
		NumWriteBuffers: numWriteBuffers,
		NumFTLBuffers:   g.Banks,
	}

	addr := uint64(0)

	l.ReadBufferBase = addr
	addr += page * uint64(numReadBuffers)

	l.WriteBufferBase = addr
	addr += page * uint64(numWriteBuffers)

	l.FTLBufferBase = addr
	addr += page * uint64(g.Banks)

	l.TempBufferBase = addr
	scanListBytes := 2 * (uint64(g.BlocksPerBank) + 1)
	l.TempBufferBytes = roundUp(scanListBytes, page)
	addr += l.TempBufferBytes

	l.PageMapBase = addr
	l.PageMapBytes = 4 * uint64(g.LogicalPages)
	addr += l.PageMapBytes

	l.VCountBase = addr
	l.VCountBytes = 2 * uint64(g.Banks) * uint64(g.BlocksPerBank)
	addr += roundUp(l.VCountBytes, 4)

	l.BadBlockBitmapBase = addr
	l.BitmapBytesPerBank = uint64(g.BlocksPerBank)/8 + 1
	l.BadBlockBitmapBytes = l.BitmapBytesPerBank * uint64(g.Banks)
	addr += l.BadBlockBitmapBytes

	l.Size = roundUp(addr, page)

	return l
}

func roundUp(x, a uint64) uint64 {
	return (x + a - 1) / a * a
}

// PageSize returns the size of one buffer frame.
func (l Layout) PageSize() uint64 {
	return l.pageSize
}

// ReadBuffer returns the address of the id-th read buffer frame.
func (l Layout) ReadBuffer(id uint32) uint64 {
	if id >= l.NumReadBuffers {
		panic("layout: read buffer id out of range")
	}

	return l.ReadBufferBase + uint64(id)*l.pageSize
}

// WriteBuffer returns the address of the id-th write buffer frame.
func (l Layout) WriteBuffer(id uint32) uint64 {
	if id >= l.NumWriteBuffers {
		panic("layout: write buffer id out of range")
	}

	return l.WriteBufferBase + uint64(id)*l.pageSize
}

// FTLBuffer returns the address of the scratch frame owned by a bank.
func (l Layout) FTLBuffer(bank uint32) uint64 {
	if bank >= l.NumFTLBuffers {
		panic("layout: bank out of range")
	}

	return l.FTLBufferBase + uint64(bank)*l.pageSize
}

// NumFrames returns the number of page frames that can hold tagged content.
func (l Layout) NumFrames() uint32 {
	return l.NumReadBuffers + l.NumWriteBuffers + l.NumFTLBuffers
}

// FrameOf maps a DRAM address to the frame that contains it and the byte
// offset inside that frame. ok is false for addresses outside the buffers.
func (l Layout) FrameOf(addr uint64) (frame uint32, offset uint64, ok bool) {
	if addr < l.ReadBufferBase || addr >= l.TempBufferBase {
		return 0, 0, false
	}

	rel := addr - l.ReadBufferBase

	return uint32(rel / l.pageSize), rel % l.pageSize, true
}

// FrameAddr returns the base address of a frame.
func (l Layout) FrameAddr(frame uint32) uint64 {
	return l.ReadBufferBase + uint64(frame)*l.pageSize
}

// BadBlockBitmapOf returns the base address of a bank's bad-block bitmap.
func (l Layout) BadBlockBitmapOf(bank uint32) uint64 {
	return l.BadBlockBitmapBase + uint64(bank)*l.BitmapBytesPerBank
}

// PageMapEntry returns the address of the mapping entry of an LPN.
func (l Layout) PageMapEntry(lpn LPN) uint64 {
	return l.PageMapBase + uint64(lpn)*4
}

// VCountEntry returns the address of a block's valid-page count.
func (l Layout) VCountEntry(g Geometry, bank, block uint32) uint64 {
	return l.VCountBase + (uint64(bank)*uint64(g.BlocksPerBank)+uint64(block))*2
}

// VCountOf returns the base address of a bank's valid-page count table.
func (l Layout) VCountOf(g Geometry, bank uint32) uint64 {
	return l.VCountEntry(g, bank, 0)
}
