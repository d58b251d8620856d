// Package flash emulates a banked NAND flash array. It enforces the program
// and erase rules of NAND and reports every breach as a checker violation.
package flash

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/pagetag"
	"github.com/sarchlab/vst/sim"
	"github.com/sarchlab/vst/stats"
)

// Hook positions of the flash array. The hook item is a stats.FlashOp.
var (
	HookPosRead     = &sim.HookPos{Name: "FlashRead"}
	HookPosWrite    = &sim.HookPos{Name: "FlashWrite"}
	HookPosCopyback = &sim.HookPos{Name: "FlashCopyback"}
	HookPosErase    = &sim.HookPos{Name: "FlashErase"}
)

type page struct {
	programmed bool
	content    *pagetag.Page
}

// Array is the emulated flash.
type Array struct {
	sim.NamedBase
	sim.HookableBase

	geo      geometry.Geometry
	pages    []page
	bad      []*roaring.Bitmap
	blank    *pagetag.Page
	counters *stats.Counters
	checker  *checker.Checker
	log      logrus.FieldLogger
}

// NewArray creates an array with every page erased.
func NewArray(
	geo geometry.Geometry,
	counters *stats.Counters,
	chk *checker.Checker,
	logger logrus.FieldLogger,
) *Array {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	a := &Array{
		NamedBase: sim.MakeNamedBase("Flash"),
		geo:       geo,
		pages:     make([]page, geo.NumPages()),
		bad:       make([]*roaring.Bitmap, geo.Banks),
		blank:     pagetag.New(geo.SectorsPerPage, geo.BytesPerSector, nil),
		counters:  counters,
		checker:   chk,
		log:       logger.WithField("category", "flash"),
	}

	for i := range a.bad {
		a.bad[i] = roaring.New()
	}

	return a
}

// Geometry returns the geometry of the array.
func (a *Array) Geometry() geometry.Geometry {
	return a.geo
}

// Reset erases every page. Bad block marks are kept.
func (a *Array) Reset() {
	for i := range a.pages {
		a.pages[i] = page{}
	}
}

// MarkBad records a factory bad block.
func (a *Array) MarkBad(bank, blk uint32) {
	a.mustBeValidBlock(bank, blk)
	a.bad[bank].Add(blk)
}

// IsBad tells whether a block was marked bad.
func (a *Array) IsBad(bank, blk uint32) bool {
	a.mustBeValidBlock(bank, blk)
	return a.bad[bank].Contains(blk)
}

// BadBlocks returns a copy of the bad blocks of a bank.
func (a *Array) BadBlocks(bank uint32) *roaring.Bitmap {
	a.mustBeValidBlock(bank, 0)
	return a.bad[bank].Clone()
}

// IsErased tells whether a page can be programmed.
func (a *Array) IsErased(bank, blk, pg uint32) bool {
	return !a.pageAt(bank, blk, pg).programmed
}

// PageLBAs returns the LBAs held by a page, or nil if it holds no host data.
func (a *Array) PageLBAs(bank, blk, pg uint32) []uint32 {
	p := a.pageAt(bank, blk, pg)
	if p.content == nil {
		return nil
	}

	return p.content.LBAs()
}

// PageBytes returns the raw content of a page, or nil if it holds none.
func (a *Array) PageBytes(bank, blk, pg uint32) []byte {
	p := a.pageAt(bank, blk, pg)
	if p.content == nil || p.content.IsTagged() {
		return nil
	}

	return p.content.Bytes()
}

// ReadPage copies n sectors starting at sect into dst. Erased sectors read as
// all ones.
func (a *Array) ReadPage(bank, blk, pg, sect, n uint32, dst *pagetag.Page) {
	p := a.pageAt(bank, blk, pg)
	a.mustBeInPage(sect, n)

	src := p.content
	if src == nil {
		src = a.blank
	}

	pagetag.Copy(dst, src, sect, n)

	a.issue(HookPosRead, stats.FlashOp{
		Kind: stats.OpRead, Bank: bank, Block: blk, Page: pg,
		Sect: sect, NumSect: n,
	})
}

// WritePage programs n sectors starting at sect from src. The page must be
// erased.
func (a *Array) WritePage(bank, blk, pg, sect, n uint32, src *pagetag.Page) {
	p := a.pageAt(bank, blk, pg)
	a.mustBeInPage(sect, n)
	a.mustBeGoodBlock(bank, blk)

	a.checker.CheckNonSequentialWrite(a, bank, blk, pg)
	a.checker.CheckOverwrite(a, bank, blk, pg)

	if p.programmed {
		a.checker.Fail(checker.Overwrite,
			"in-place write to dirty page, bank = %d block = %d page = %d",
			bank, blk, pg)
	}

	content := pagetag.New(a.geo.SectorsPerPage, a.geo.BytesPerSector, nil)
	if !src.IsTagged() {
		content.Fill(0, a.geo.SectorsPerPage, 0xFF)
	}

	pagetag.Copy(content, src, sect, n)

	p.programmed = true
	p.content = content

	a.issue(HookPosWrite, stats.FlashOp{
		Kind: stats.OpWrite, Bank: bank, Block: blk, Page: pg,
		Sect: sect, NumSect: n,
	})
}

// CopybackPage copies a whole page to an erased page of the same bank.
func (a *Array) CopybackPage(bank, srcBlk, srcPg, dstBlk, dstPg uint32) {
	src := a.pageAt(bank, srcBlk, srcPg)
	dst := a.pageAt(bank, dstBlk, dstPg)
	a.mustBeGoodBlock(bank, dstBlk)

	a.checker.CheckNonSequentialWrite(a, bank, dstBlk, dstPg)
	a.checker.CheckOverwrite(a, bank, dstBlk, dstPg)

	if dst.programmed {
		a.checker.Fail(checker.Overwrite,
			"copyback to dirty page, bank = %d block = %d page = %d",
			bank, dstBlk, dstPg)
	}

	dst.programmed = true
	dst.content = nil

	if src.content != nil {
		dst.content = pagetag.New(
			a.geo.SectorsPerPage, a.geo.BytesPerSector, nil)
		pagetag.Copy(dst.content, src.content, 0, a.geo.SectorsPerPage)
	}

	a.issue(HookPosCopyback, stats.FlashOp{
		Kind: stats.OpCopyback, Bank: bank, Block: dstBlk, Page: dstPg,
		NumSect: a.geo.SectorsPerPage, SrcBlock: srcBlk, SrcPage: srcPg,
	})
}

// EraseBlock erases every page of a block. Erasing an erased block only
// counts the operation.
func (a *Array) EraseBlock(bank, blk uint32) {
	a.mustBeValidBlock(bank, blk)
	a.mustBeGoodBlock(bank, blk)

	first := a.index(bank, blk, 0)
	for i := first; i < first+a.geo.PagesPerBlock; i++ {
		a.pages[i] = page{}
	}

	a.issue(HookPosErase, stats.FlashOp{
		Kind: stats.OpErase, Bank: bank, Block: blk,
	})
}

func (a *Array) issue(pos *sim.HookPos, op stats.FlashOp) {
	a.counters.Count(op)

	a.log.WithFields(logrus.Fields{
		"op":    op.Kind,
		"bank":  op.Bank,
		"block": op.Block,
		"page":  op.Page,
	}).Trace("flash operation")

	if a.NumHooks() == 0 {
		return
	}

	a.InvokeHook(sim.HookCtx{
		Domain: a,
		Pos:    pos,
		Item:   op,
	})
}

func (a *Array) index(bank, blk, pg uint32) uint32 {
	return (bank*a.geo.BlocksPerBank+blk)*a.geo.PagesPerBlock + pg
}

func (a *Array) pageAt(bank, blk, pg uint32) *page {
	a.mustBeValidBlock(bank, blk)

	if pg >= a.geo.PagesPerBlock {
		a.checker.Fail(checker.OutOfBounds,
			"page %d out of range, pages per block = %d",
			pg, a.geo.PagesPerBlock)
	}

	return &a.pages[a.index(bank, blk, pg)]
}

func (a *Array) mustBeValidBlock(bank, blk uint32) {
	if bank >= a.geo.Banks {
		a.checker.Fail(checker.OutOfBounds,
			"bank %d out of range, banks = %d", bank, a.geo.Banks)
	}

	if blk >= a.geo.BlocksPerBank {
		a.checker.Fail(checker.OutOfBounds,
			"block %d out of range, blocks per bank = %d",
			blk, a.geo.BlocksPerBank)
	}
}

func (a *Array) mustBeInPage(sect, n uint32) {
	if sect+n < sect || sect+n > a.geo.SectorsPerPage {
		a.checker.Fail(checker.OutOfBounds,
			"access exceeds page size limit, sect = %d n = %d", sect, n)
	}
}

func (a *Array) mustBeGoodBlock(bank, blk uint32) {
	if a.bad[bank].Contains(blk) {
		a.checker.Fail(checker.BadBlockAccess,
			"access to bad block, bank = %d block = %d", bank, blk)
	}
}
