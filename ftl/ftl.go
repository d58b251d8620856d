// Package ftl is a page-mapping flash translation layer. It keeps one LPN to
// PPN table for the whole device, writes every bank through a single active
// block and reclaims space with greedy garbage collection.
package ftl

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/sim"
	"github.com/sarchlab/vst/tracing"
)

// FlashTranslationLayer serves host reads and writes on top of a Backend.
type FlashTranslationLayer struct {
	sim.NamedBase
	sim.HookableBase

	geo     geometry.Geometry
	layout  geometry.Layout
	backend Backend

	pageMap pageMap
	vcounts vcountTable
	banks   []*bank

	smallWriteSize uint32
	readBufID      uint32
	writeBufID     uint32

	log   logrus.FieldLogger
	gcLog logrus.FieldLogger
}

func newFTL(
	geo geometry.Geometry,
	layout geometry.Layout,
	backend Backend,
	logger logrus.FieldLogger,
	smallWriteSize uint32,
) *FlashTranslationLayer {
	mem := backend.Memory()

	f := &FlashTranslationLayer{
		NamedBase:      sim.MakeNamedBase("FTL"),
		geo:            geo,
		layout:         layout,
		backend:        backend,
		smallWriteSize: smallWriteSize,
		pageMap: pageMap{
			region: mem.Region(layout.PageMapBase, layout.PageMapBytes),
		},
		vcounts: vcountTable{
			region:        mem.Region(layout.VCountBase, layout.VCountBytes),
			blocksPerBank: geo.BlocksPerBank,
		},
		log:   logger.WithField("category", "general"),
		gcLog: logger.WithField("category", "gc"),
	}

	f.banks = make([]*bank, geo.Banks)
	for i := range f.banks {
		f.banks[i] = newBank(geo.PagesPerBlock)
	}

	return f
}

// Open builds the bad-block list, formats the device and rewinds the host
// buffer rings.
func (f *FlashTranslationLayer) Open() error {
	f.buildBadBlockList()

	if err := f.format(); err != nil {
		return err
	}

	f.readBufID = 0
	f.writeBufID = 0

	f.log.WithFields(logrus.Fields{
		"banks":         f.geo.Banks,
		"logical_pages": f.geo.LogicalPages,
	}).Info("FTL opened")

	return nil
}

// Flush commits buffered state. Every write is committed before it returns,
// so there is nothing to do.
func (f *FlashTranslationLayer) Flush() {}

type chunk struct {
	lpn  geometry.LPN
	sect uint32
	n    uint32
}

func (f *FlashTranslationLayer) forEachChunk(lba, n uint32, fn func(c chunk)) {
	spp := f.geo.SectorsPerPage

	for n > 0 {
		c := chunk{
			lpn:  f.geo.LPN(geometry.LBA(lba)),
			sect: f.geo.SectorInPage(geometry.LBA(lba)),
		}
		c.n = min(spp-c.sect, n)

		fn(c)

		lba += c.n
		n -= c.n
	}
}

// Read loads n sectors starting at lba into the read buffer ring, one frame
// per logical page. Each frame is released to the host as soon as it is
// filled. Sectors that were never written read as all ones.
func (f *FlashTranslationLayer) Read(lba, n uint32) {
	f.mustBeInAddressSpace(lba, n)

	id := sim.GetIDGenerator().Generate()
	tracing.StartTask(id, "", f, "req_in", "read", nil)

	f.forEachChunk(lba, n, func(c chunk) {
		bank := f.geo.BankOf(c.lpn)
		rdBuf := f.layout.ReadBuffer(f.readBufID)

		if ppn, ok := f.pageMap.lookup(c.lpn); ok {
			blk, page := f.geo.Split(ppn)
			f.backend.ReadPage(bank, blk, page, c.sect, c.n, rdBuf)
		} else {
			bps := uint64(f.geo.BytesPerSector)
			f.backend.FillBuffer(rdBuf+uint64(c.sect)*bps, 0xFF,
				uint64(c.n)*bps)
		}

		f.backend.ReleaseReadBuffer(f.readBufID)
		f.readBufID = (f.readBufID + 1) % f.layout.NumReadBuffers
	})

	tracing.EndTask(id, f)
}

// Write programs n sectors starting at lba from the write buffer ring, one
// frame per logical page. Every frame is waited for before it is used.
func (f *FlashTranslationLayer) Write(lba, n uint32) {
	f.mustBeInAddressSpace(lba, n)

	id := sim.GetIDGenerator().Generate()
	tracing.StartTask(id, "", f, "req_in", "write", nil)

	f.forEachChunk(lba, n, func(c chunk) {
		f.writePage(id, c)
		f.writeBufID = (f.writeBufID + 1) % f.layout.NumWriteBuffers
	})

	tracing.EndTask(id, f)
}

func (f *FlashTranslationLayer) writePage(taskID string, c chunk) {
	spp := f.geo.SectorsPerPage
	bank := f.geo.BankOf(c.lpn)
	wrBuf := f.layout.WriteBuffer(f.writeBufID)

	f.backend.WaitWriteBuffer(f.writeBufID)

	newPPN := f.nextActivePPN(taskID, bank)
	newBlk, newPage := f.geo.Split(newPPN)

	oldPPN, mapped := f.pageMap.lookup(c.lpn)
	if mapped {
		oldBlk, oldPage := f.geo.Split(oldPPN)

		if c.n != spp {
			f.fillHoles(bank, oldBlk, oldPage, c, wrBuf)
		}

		f.addValidPages(bank, oldBlk, -1)
		f.backend.WritePage(bank, newBlk, newPage, 0, spp, wrBuf)
	} else {
		f.backend.WritePage(bank, newBlk, newPage, c.sect, c.n, wrBuf)
	}

	f.banks[bank].lpns[newPage] = uint32(c.lpn)
	f.pageMap.set(c.lpn, newPPN)
	f.addValidPages(bank, newBlk, 1)
}

// fillHoles completes a partial write with the sectors of the old page that
// the write does not cover.
func (f *FlashTranslationLayer) fillHoles(
	bank, oldBlk, oldPage uint32,
	c chunk,
	wrBuf uint64,
) {
	spp := f.geo.SectorsPerPage
	bps := uint64(f.geo.BytesPerSector)
	right := c.sect + c.n

	if c.n <= f.smallWriteSize && c.sect != 0 {
		ftlBuf := f.layout.FTLBuffer(bank)
		f.backend.ReadPage(bank, oldBlk, oldPage, 0, spp, ftlBuf)
		f.backend.CopyBuffer(wrBuf, ftlBuf, uint64(c.sect)*bps)

		if right < spp {
			off := uint64(right) * bps
			f.backend.CopyBuffer(wrBuf+off, ftlBuf+off,
				uint64(spp-right)*bps)
		}

		return
	}

	if c.sect > 0 {
		f.backend.ReadPage(bank, oldBlk, oldPage, 0, c.sect, wrBuf)
	}

	if right < spp {
		f.backend.ReadPage(bank, oldBlk, oldPage, right, spp-right, wrBuf)
	}
}

func (f *FlashTranslationLayer) addValidPages(bank, blk uint32, delta int) {
	role := f.vcounts.role(bank, blk)
	if role.IsReserved() {
		f.fail(checker.Assertion,
			"valid-page count of reserved block %d in bank %d changed",
			blk, bank)
	}

	n := int(role.ValidPages()) + delta
	if n < 0 || n > int(f.geo.LastDataPage()+1) {
		f.fail(checker.Assertion,
			"valid-page count of block %d in bank %d out of range: %d",
			blk, bank, n)
	}

	f.vcounts.setRole(bank, blk, Collectable(uint32(n)))
}

func (f *FlashTranslationLayer) mustBeInAddressSpace(lba, n uint32) {
	if uint64(lba)+uint64(n) > uint64(f.geo.MaxLBA())+1 {
		f.fail(checker.AddressRange,
			"request [%d, %d) beyond max LBA %d",
			lba, uint64(lba)+uint64(n), f.geo.MaxLBA())
	}
}

func (f *FlashTranslationLayer) fail(
	kind checker.Kind,
	format string,
	args ...any,
) {
	v := &checker.Violation{Kind: kind, Msg: fmt.Sprintf(format, args...)}

	f.log.WithField("kind", kind.String()).Errorf("Bug detected: %s", v.Msg)

	panic(v)
}

// Lookup returns where a logical page is stored.
func (f *FlashTranslationLayer) Lookup(lpn geometry.LPN) (geometry.PPN, bool) {
	return f.pageMap.lookup(lpn)
}

// BlockRole returns the garbage collection role of a block.
func (f *FlashTranslationLayer) BlockRole(bank, blk uint32) BlockRole {
	return f.vcounts.role(bank, blk)
}

// BankState returns the bookkeeping of a bank.
func (f *FlashTranslationLayer) BankState(bank uint32) BankState {
	return f.banks[bank].state()
}

// MappedPages counts the mapped logical pages owned by a bank.
func (f *FlashTranslationLayer) MappedPages(bank uint32) uint32 {
	n := uint32(0)

	for lpn := bank; lpn < f.geo.LogicalPages; lpn += f.geo.Banks {
		if _, ok := f.pageMap.lookup(geometry.LPN(lpn)); ok {
			n++
		}
	}

	return n
}

// IsBadBlock reports whether a block is in the bad-block bitmap.
func (f *FlashTranslationLayer) IsBadBlock(bank, blk uint32) bool {
	return f.backend.Memory().TestBit(f.layout.BadBlockBitmapOf(bank), blk)
}
