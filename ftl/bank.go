package ftl

import "github.com/sarchlab/vst/geometry"

// bank is the per-bank state of the FTL.
type bank struct {
	freeBlocks uint32
	badBlocks  uint32
	lastWrite  geometry.PPN
	mapPPN     geometry.PPN
	gcBlock    uint32

	// lpns records the LPN of every data page written to the active block
	// since its summary was last flushed.
	lpns []uint32
}

func newBank(pagesPerBlock uint32) *bank {
	return &bank{lpns: make([]uint32, pagesPerBlock)}
}

func (b *bank) clearLPNs() {
	for i := range b.lpns {
		b.lpns[i] = 0
	}
}

// BankState is a snapshot of the bookkeeping of one bank.
type BankState struct {
	FreeBlocks uint32
	BadBlocks  uint32
	LastWrite  geometry.PPN
	MapPPN     geometry.PPN
	GCBlock    uint32
}

func (b *bank) state() BankState {
	return BankState{
		FreeBlocks: b.freeBlocks,
		BadBlocks:  b.badBlocks,
		LastWrite:  b.lastWrite,
		MapPPN:     b.mapPPN,
		GCBlock:    b.gcBlock,
	}
}
