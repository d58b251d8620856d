package ftl

import (
	"github.com/sirupsen/logrus"
)

// scanListEntryMask drops the plane flag of a scan list entry.
const scanListEntryMask = 0x7FFF

// buildBadBlockList turns the factory scan list of every bank into the DRAM
// bad-block bitmap. A list that cannot be trusted is treated as empty.
func (f *FlashTranslationLayer) buildBadBlockList() {
	mem := f.backend.Memory()
	scan := f.layout.TempBufferBase
	bpb := f.geo.BlocksPerBank

	mem.Set(f.layout.BadBlockBitmapBase, 0, f.layout.BadBlockBitmapBytes)

	for bankID, b := range f.banks {
		f.backend.LoadScanList(uint32(bankID), scan)

		count := uint32(mem.Read16(scan))
		valid := count <= bpb

		for i := uint32(0); valid && i < count; i++ {
			addr := scan + 2 + 2*uint64(i)

			entry := mem.Read16(addr) & scanListEntryMask
			if entry == 0 || uint32(entry) >= bpb {
				valid = false
				break
			}

			mem.Write16(addr, entry)
		}

		if !valid {
			f.log.WithFields(logrus.Fields{
				"bank":    bankID,
				"entries": count,
			}).Warn("untrusted scan list, assuming no bad block")

			count = 0
		}

		// Block 0 is never bad, so the zeroed count slot cannot match.
		mem.Write16(scan, 0)

		bitmap := f.layout.BadBlockBitmapOf(uint32(bankID))
		b.badBlocks = 0

		for blk := uint32(1); blk < bpb; blk++ {
			if mem.SearchEqual(scan, 2, count+1, blk) < count+1 {
				mem.SetBit(bitmap, blk)
				b.badBlocks++
			}
		}
	}
}
