package ftl

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoGoodBlock means a bank has too few good blocks to hold the map
	// block, the GC-destination block and the first write block.
	ErrNoGoodBlock = errors.New("ftl: no good block left")

	// ErrNoSpareBlock means the logical capacity of a bank leaves garbage
	// collection no invalid page to reclaim.
	ErrNoSpareBlock = errors.New("ftl: logical capacity exceeds spare space")
)

// format erases the device and reserves the meta, map, GC-destination and
// first write blocks of every bank.
func (f *FlashTranslationLayer) format() error {
	f.pageMap.reset()
	f.vcounts.reset()

	for bankID := range f.banks {
		f.eraseBank(uint32(bankID))
	}

	for bankID := range f.banks {
		if err := f.reserveBlocks(uint32(bankID)); err != nil {
			return err
		}

		if err := f.checkSpareSpace(uint32(bankID)); err != nil {
			return err
		}
	}

	return nil
}

func (f *FlashTranslationLayer) eraseBank(bankID uint32) {
	for blk := uint32(0); blk < f.geo.BlocksPerBank; blk++ {
		if f.IsBadBlock(bankID, blk) {
			f.vcounts.setRole(bankID, blk, Reserved())
			continue
		}

		f.backend.EraseBlock(bankID, blk)
		f.vcounts.setRole(bankID, blk, Collectable(0))
	}
}

func (f *FlashTranslationLayer) reserveBlocks(bankID uint32) error {
	b := f.banks[bankID]
	b.clearLPNs()
	b.freeBlocks = f.geo.BlocksPerBank - b.badBlocks

	for blk := uint32(0); blk < f.geo.MetaBlocks; blk++ {
		if !f.IsBadBlock(bankID, blk) {
			b.freeBlocks--
		}

		f.vcounts.setRole(bankID, blk, Reserved())
	}

	next := f.geo.MetaBlocks
	nextGood := func(purpose string) (uint32, error) {
		for next < f.geo.BlocksPerBank && f.IsBadBlock(bankID, next) {
			next++
		}

		if next >= f.geo.BlocksPerBank {
			return 0, fmt.Errorf("%w: bank %d has none for the %s",
				ErrNoGoodBlock, bankID, purpose)
		}

		blk := next
		next++

		return blk, nil
	}

	mapBlk, err := nextGood("page map")
	if err != nil {
		return err
	}

	f.vcounts.setRole(bankID, mapBlk, Reserved())
	b.mapPPN = f.geo.PPN(mapBlk, 0)
	b.freeBlocks--

	gcBlk, err := nextGood("GC destination")
	if err != nil {
		return err
	}

	f.vcounts.setRole(bankID, gcBlk, Reserved())
	b.gcBlock = gcBlk

	writeBlk, err := nextGood("write cursor")
	if err != nil {
		return err
	}

	// The first advance of the cursor lands on page 0 of the block.
	b.lastWrite = f.geo.PPN(writeBlk, 0) - 1

	f.log.WithFields(logrus.Fields{
		"bank":        bankID,
		"map_block":   mapBlk,
		"gc_block":    gcBlk,
		"write_block": writeBlk,
		"free_blocks": b.freeBlocks,
	}).Debug("bank formatted")

	return nil
}

// checkSpareSpace makes sure that whenever garbage collection runs, the full
// data blocks of a bank cannot all be completely valid.
func (f *FlashTranslationLayer) checkSpareSpace(bankID uint32) error {
	good := uint32(0)
	for blk := f.geo.MetaBlocks; blk < f.geo.BlocksPerBank; blk++ {
		if !f.IsBadBlock(bankID, blk) {
			good++
		}
	}

	// Neither the map block nor the GC-destination block holds data when
	// collection starts.
	dataPages := (good - 2) * (f.geo.LastDataPage() + 1)
	lpns := f.logicalPagesOf(bankID)

	if lpns >= dataPages {
		return fmt.Errorf("%w: bank %d maps %d logical pages onto %d data pages",
			ErrNoSpareBlock, bankID, lpns, dataPages)
	}

	return nil
}

func (f *FlashTranslationLayer) logicalPagesOf(bankID uint32) uint32 {
	if bankID >= f.geo.LogicalPages {
		return 0
	}

	return (f.geo.LogicalPages - bankID + f.geo.Banks - 1) / f.geo.Banks
}

