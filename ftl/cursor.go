package ftl

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/geometry"
)

// nextActivePPN advances the write cursor of a bank and returns the page to
// program next. Filling the last data page of a block flushes the block
// summary and moves to the next free block, running garbage collection when
// only the GC-destination block is left.
func (f *FlashTranslationLayer) nextActivePPN(
	taskID string,
	bankID uint32,
) geometry.PPN {
	b := f.banks[bankID]
	blk, page := f.geo.Split(b.lastWrite)

	switch {
	case page == f.geo.LastDataPage():
		f.flushSummary(bankID, blk)
		b.freeBlocks--

		if b.freeBlocks == 1 {
			b.lastWrite = f.collectGarbage(taskID, bankID)
			break
		}

		for {
			blk++
			if blk >= f.geo.BlocksPerBank {
				f.fail(checker.Assertion,
					"bank %d has no free block after block %d", bankID, blk-1)
			}

			if !f.vcounts.role(bankID, blk).IsReserved() {
				break
			}
		}

		b.lastWrite = f.geo.PPN(blk, 0)
	default:
		b.lastWrite++
	}

	blk, page = f.geo.Split(b.lastWrite)
	if blk >= f.geo.BlocksPerBank || page == f.geo.SummaryPage() {
		f.fail(checker.Assertion,
			"bank %d write cursor at invalid page %d", bankID, b.lastWrite)
	}

	return b.lastWrite
}

// flushSummary programs the page-to-LPN table of a full block into its
// summary page.
func (f *FlashTranslationLayer) flushSummary(bankID, blk uint32) {
	b := f.banks[bankID]
	ftlBuf := f.layout.FTLBuffer(bankID)

	f.backend.WriteWords(ftlBuf, b.lpns)
	f.backend.WritePage(bankID, blk, f.geo.SummaryPage(),
		0, f.geo.SummarySectors(), ftlBuf)
	b.clearLPNs()

	f.log.WithFields(logrus.Fields{
		"bank":  bankID,
		"block": blk,
	}).Trace("block summary written")
}
