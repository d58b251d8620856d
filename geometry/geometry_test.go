package geometry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vst/geometry"
)

var _ = Describe("Geometry", func() {
	var g geometry.Geometry

	BeforeEach(func() {
		g = geometry.MakeBuilder().
			WithBanks(4).
			WithBlocksPerBank(8).
			WithPagesPerBlock(4).
			WithSectorsPerPage(8).
			WithBytesPerSector(512).
			Build()
	})

	It("should derive sizes", func() {
		Expect(g.BytesPerPage()).To(Equal(uint32(4096)))
		Expect(g.NumBlocks()).To(Equal(uint32(32)))
		Expect(g.NumPages()).To(Equal(uint32(128)))
		Expect(g.SummaryPage()).To(Equal(uint32(3)))
		Expect(g.LastDataPage()).To(Equal(uint32(2)))
		Expect(g.SummarySectors()).To(Equal(uint32(1)))
	})

	It("should derive the default capacity", func() {
		// 8 blocks - 2 meta - map - gc - spare = 3 data blocks of 3 pages.
		Expect(g.LogicalPages).To(Equal(uint32(4 * 3 * 3)))
		Expect(g.MaxLBA()).To(Equal(geometry.LBA(36*8 - 1)))
	})

	It("should compose and split physical page numbers", func() {
		ppn := g.PPN(5, 2)

		Expect(ppn).To(Equal(geometry.PPN(22)))

		blk, page := g.Split(ppn)
		Expect(blk).To(Equal(uint32(5)))
		Expect(page).To(Equal(uint32(2)))
	})

	It("should map LBAs to LPNs and banks", func() {
		Expect(g.LPN(17)).To(Equal(geometry.LPN(2)))
		Expect(g.SectorInPage(17)).To(Equal(uint32(1)))
		Expect(g.BankOf(6)).To(Equal(uint32(2)))
	})

	It("should reject a bank too small for the reserved blocks", func() {
		Expect(func() {
			geometry.MakeBuilder().WithBlocksPerBank(4).Build()
		}).To(Panic())
	})

	It("should accept a small bank with a single meta block", func() {
		small := geometry.MakeBuilder().
			WithBlocksPerBank(4).
			WithPagesPerBlock(4).
			WithMetaBlocks(1).
			WithLogicalPages(16).
			Build()

		Expect(small.Validate()).To(Succeed())
	})

	It("should reject a summary that does not fit in a page", func() {
		bad := g
		bad.PagesPerBlock = 1024
		bad.BytesPerSector = 16
		bad.SectorsPerPage = 1

		Expect(bad.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Layout", func() {
	var (
		g geometry.Geometry
		l geometry.Layout
	)

	BeforeEach(func() {
		g = geometry.MakeBuilder().
			WithBanks(2).
			WithBlocksPerBank(16).
			WithPagesPerBlock(8).
			WithSectorsPerPage(4).
			WithBytesPerSector(64).
			Build()
		l = geometry.NewLayout(g, 2, 3)
	})

	It("should place the buffers one page apart", func() {
		Expect(l.ReadBuffer(0)).To(Equal(uint64(0)))
		Expect(l.ReadBuffer(1)).To(Equal(uint64(256)))
		Expect(l.WriteBuffer(0)).To(Equal(uint64(512)))
		Expect(l.FTLBuffer(1)).To(Equal(uint64(512 + 3*256 + 256)))
		Expect(l.NumFrames()).To(Equal(uint32(7)))
	})

	It("should resolve frame addresses", func() {
		frame, offset, ok := l.FrameOf(l.WriteBuffer(2) + 64)

		Expect(ok).To(BeTrue())
		Expect(frame).To(Equal(uint32(4)))
		Expect(offset).To(Equal(uint64(64)))

		_, _, ok = l.FrameOf(l.PageMapBase)
		Expect(ok).To(BeFalse())
	})

	It("should keep the tables aligned and inside DRAM", func() {
		Expect(l.PageMapBase % 4).To(BeZero())
		Expect(l.VCountBase % 2).To(BeZero())
		Expect(l.BadBlockBitmapOf(1)).To(Equal(l.BadBlockBitmapBase + 3))
		Expect(l.BadBlockBitmapBase + l.BadBlockBitmapBytes).
			To(BeNumerically("<=", l.Size))
		Expect(l.VCountEntry(g, 1, 2)).To(Equal(l.VCountBase + (16+2)*2))
	})

	It("should panic on an invalid buffer id", func() {
		Expect(func() { l.ReadBuffer(2) }).To(Panic())
	})
})
