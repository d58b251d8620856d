package ftl

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/sim"
	"github.com/sarchlab/vst/tracing"
)

// collectGarbage reclaims the block of a bank with the fewest valid pages.
// Valid pages move to the GC-destination block, the victim is erased and
// becomes the next GC-destination block. It returns the first free page
// after the moved ones, which becomes the active page.
func (f *FlashTranslationLayer) collectGarbage(
	parentTaskID string,
	bankID uint32,
) geometry.PPN {
	b := f.banks[bankID]
	id := sim.GetIDGenerator().Generate()
	tracing.StartTask(id, parentTaskID, f, "gc", "collect", bankID)

	victim := f.vcounts.minBlock(bankID)
	role := f.vcounts.role(bankID, victim)

	if role.IsReserved() {
		f.fail(checker.Assertion, "bank %d has no collectable block", bankID)
	}

	if !f.vcounts.role(bankID, b.gcBlock).IsReserved() {
		f.fail(checker.Assertion,
			"GC block %d of bank %d is not reserved", b.gcBlock, bankID)
	}

	ftlBuf := f.layout.FTLBuffer(bankID)
	f.backend.ReadPage(bankID, victim, f.geo.SummaryPage(),
		0, f.geo.SummarySectors(), ftlBuf)

	summary := make([]uint32, f.geo.PagesPerBlock)
	f.backend.ReadWords(ftlBuf, summary)
	b.clearLPNs()

	moved := uint32(0)
	for page := uint32(0); page < f.geo.SummaryPage(); page++ {
		lpn := geometry.LPN(summary[page])

		ppn, ok := f.pageMap.lookup(lpn)
		if !ok || ppn != f.geo.PPN(victim, page) {
			continue
		}

		f.backend.CopybackPage(bankID, victim, page, b.gcBlock, moved)
		f.pageMap.set(lpn, f.geo.PPN(b.gcBlock, moved))
		b.lpns[moved] = uint32(lpn)
		moved++

		tracing.AddTaskStep(id, f, "copyback")
	}

	if moved != role.ValidPages() {
		f.fail(checker.Assertion,
			"moved %d pages out of block %d of bank %d holding %d valid pages",
			moved, victim, bankID, role.ValidPages())
	}

	f.backend.EraseBlock(bankID, victim)

	dst := b.gcBlock
	f.vcounts.setRole(bankID, victim, Reserved())
	f.vcounts.setRole(bankID, dst, Collectable(moved))
	b.gcBlock = victim
	b.freeBlocks++

	f.gcLog.WithFields(logrus.Fields{
		"bank":   bankID,
		"victim": victim,
		"moved":  moved,
	}).Debug("garbage collected")

	tracing.EndTask(id, f)

	return f.geo.PPN(dst, moved)
}
