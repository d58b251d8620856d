package ftl_test

import (
	"github.com/RoaringBitmap/roaring"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/emulator"
	"github.com/sarchlab/vst/ftl"
	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/pagetag"
	"github.com/sarchlab/vst/stats"
	"github.com/sarchlab/vst/tracing"
)

type device struct {
	geo geometry.Geometry
	e   *emulator.Emulator
	f   *ftl.FlashTranslationLayer
}

func newDevice(
	geo geometry.Geometry,
	cfg checker.Config,
	badBlocks map[uint32]*roaring.Bitmap,
	threshold uint32,
) *device {
	logger := logrus.New()
	logger.SetOutput(GinkgoWriter)

	layout := geometry.NewLayout(geo, 2, 2)

	eb := emulator.MakeBuilder().
		WithGeometry(geo).
		WithLayout(layout).
		WithCheckerConfig(cfg).
		WithLogger(logger)
	for bank, blocks := range badBlocks {
		eb = eb.WithBadBlocks(bank, blocks)
	}

	e := eb.Build()

	f := ftl.MakeBuilder().
		WithGeometry(geo).
		WithLayout(layout).
		WithBackend(e).
		WithLogger(logger).
		WithSmallWriteThreshold(threshold).
		Build()

	return &device{geo: geo, e: e, f: f}
}

func (d *device) write(lba, n uint32) {
	d.e.SendToWriteBuffer(lba, n)
	d.f.Write(lba, n)
}

func (d *device) read(lba, n uint32) {
	d.f.Read(lba, n)
	d.e.ReceiveFromReadBuffer(lba, n)
}

func (d *device) writePage(lpn uint32) {
	d.write(lpn*d.geo.SectorsPerPage, d.geo.SectorsPerPage)
}

func (d *device) counters() stats.Counters {
	return *d.e.Counters()
}

func lookup(f *ftl.FlashTranslationLayer, lpn geometry.LPN) geometry.PPN {
	ppn, ok := f.Lookup(lpn)
	Expect(ok).To(BeTrue(), "lpn %d is not mapped", lpn)

	return ppn
}

func expectBankInvariants(d *device) {
	for bank := uint32(0); bank < d.geo.Banks; bank++ {
		sum := uint32(0)

		for blk := uint32(0); blk < d.geo.BlocksPerBank; blk++ {
			role := d.f.BlockRole(bank, blk)
			if role.IsReserved() {
				continue
			}

			Expect(role.ValidPages()).To(BeNumerically("<", d.geo.PagesPerBlock))
			sum += role.ValidPages()
		}

		Expect(sum).To(Equal(d.f.MappedPages(bank)))

		gcBlock := d.f.BankState(bank).GCBlock
		Expect(d.f.BlockRole(bank, gcBlock).IsReserved()).To(BeTrue())
		Expect(d.f.IsBadBlock(bank, gcBlock)).To(BeFalse())
	}
}

var _ = Describe("FTL on a 4x4x4 device", func() {
	var (
		d      *device
		before stats.Counters
	)

	BeforeEach(func() {
		geo := geometry.MakeBuilder().
			WithBanks(4).
			WithBlocksPerBank(4).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			WithMetaBlocks(1).
			WithLogicalPages(8).
			Build()

		d = newDevice(geo, checker.DefaultConfig(), nil,
			ftl.DefaultSmallWriteThreshold)
		Expect(d.f.Open()).To(Succeed())

		before = d.counters()
	})

	It("should format every bank", func() {
		Expect(before.FlashErases).To(Equal(uint64(16)))

		for bank := uint32(0); bank < 4; bank++ {
			Expect(d.f.BankState(bank)).To(Equal(ftl.BankState{
				FreeBlocks: 2,
				LastWrite:  11,
				MapPPN:     4,
				GCBlock:    2,
			}))
			Expect(d.f.BlockRole(bank, 0)).To(Equal(ftl.Reserved()))
			Expect(d.f.BlockRole(bank, 1)).To(Equal(ftl.Reserved()))
			Expect(d.f.BlockRole(bank, 2)).To(Equal(ftl.Reserved()))
			Expect(d.f.BlockRole(bank, 3)).To(Equal(ftl.Collectable(0)))
		}
	})

	It("should remap a rewritten page", func() {
		d.writePage(0)
		first := lookup(d.f, 0)

		d.writePage(0)
		second := lookup(d.f, 0)

		after := d.counters()
		Expect(first).To(Equal(geometry.PPN(12)))
		Expect(second).To(Equal(geometry.PPN(13)))
		Expect(after.FlashWrites - before.FlashWrites).To(Equal(uint64(2)))
		Expect(after.FlashErases).To(Equal(before.FlashErases))
		Expect(d.f.BlockRole(0, 3)).To(Equal(ftl.Collectable(1)))

		d.read(0, 4)
		Expect(d.e.Flash().PageLBAs(0, 3, 1)).To(Equal([]uint32{0, 1, 2, 3}))
	})

	It("should read never written sectors as all ones", func() {
		d.read(1, 2)

		layout := d.e.Layout()
		bytes := d.e.Memory().Slice(layout.ReadBuffer(0)+16, 32)
		for _, b := range bytes {
			Expect(b).To(Equal(uint8(0xFF)))
		}

		Expect(d.counters().FlashReads).To(Equal(before.FlashReads))
	})

	It("should read across mapped and unmapped pages", func() {
		d.writePage(1)

		d.read(2, 8)

		Expect(d.counters().FlashReads - before.FlashReads).
			To(Equal(uint64(1)))
	})

	It("should program only the written sectors of a new page", func() {
		d.write(5, 2)

		Expect(d.counters().FlashReads).To(Equal(before.FlashReads))
		Expect(d.e.Flash().PageLBAs(1, 3, 0)).To(Equal(
			[]uint32{pagetag.Unset, 5, 6, pagetag.Unset}))

		d.read(4, 4)
	})

	It("should merge a small misaligned write with one page read", func() {
		d.writePage(0)
		d.write(1, 2)

		Expect(d.counters().FlashReads - before.FlashReads).
			To(Equal(uint64(1)))
		Expect(d.e.Flash().PageLBAs(0, 3, 1)).To(Equal([]uint32{0, 1, 2, 3}))
		Expect(d.f.BlockRole(0, 3)).To(Equal(ftl.Collectable(1)))

		d.read(0, 4)
	})

	It("should read only the right hole of an aligned partial write", func() {
		d.writePage(0)
		d.write(0, 2)

		Expect(d.counters().FlashReads - before.FlashReads).
			To(Equal(uint64(1)))
		Expect(d.e.Flash().PageLBAs(0, 3, 1)).To(Equal([]uint32{0, 1, 2, 3}))

		d.read(0, 4)
	})

	It("should reject requests beyond the address space", func() {
		v := violationOf(func() {
			d.f.Write(uint32(d.geo.MaxLBA()), 2)
		})

		Expect(v).NotTo(BeNil())
		Expect(v.Kind).To(Equal(checker.AddressRange))
	})

	It("should refuse a capacity without spare space", func() {
		geo := d.geo
		geo.LogicalPages = 16

		other := newDevice(geo, checker.DefaultConfig(), nil,
			ftl.DefaultSmallWriteThreshold)

		Expect(other.f.Open()).To(MatchError(ftl.ErrNoSpareBlock))
	})
})

var _ = Describe("FTL with large partial writes", func() {
	It("should read the two holes separately", func() {
		geo := geometry.MakeBuilder().
			WithBanks(4).
			WithBlocksPerBank(4).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			WithMetaBlocks(1).
			WithLogicalPages(8).
			Build()
		d := newDevice(geo, checker.DefaultConfig(), nil, 1)
		Expect(d.f.Open()).To(Succeed())

		d.writePage(0)
		before := d.counters()

		d.write(1, 2)

		Expect(d.counters().FlashReads - before.FlashReads).
			To(Equal(uint64(2)))
		Expect(d.e.Flash().PageLBAs(0, 3, 1)).To(Equal([]uint32{0, 1, 2, 3}))

		d.read(0, 4)
	})
})

var _ = Describe("FTL garbage collection", func() {
	var (
		d         *device
		before    stats.Counters
		steps     *tracing.StepCountTracer
		totalTime *tracing.TotalTimeTracer
	)

	BeforeEach(func() {
		geo := geometry.MakeBuilder().
			WithBanks(1).
			WithBlocksPerBank(6).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			WithMetaBlocks(2).
			WithLogicalPages(5).
			Build()

		d = newDevice(geo, checker.Config{
			LPNConsistent:      true,
			NonSequentialWrite: true,
			Overwrite:          true,
		}, nil, ftl.DefaultSmallWriteThreshold)
		Expect(d.f.Open()).To(Succeed())

		steps = tracing.NewStepCountTracer(tracing.KindIs("gc"))
		totalTime = tracing.NewTotalTimeTracer(d.e, tracing.KindIs("req_in"))
		tracing.CollectTrace(d.f, steps)
		tracing.CollectTrace(d.f, totalTime)

		before = d.counters()

		for _, lpn := range []uint32{0, 1, 0, 2, 1, 3, 4} {
			d.writePage(lpn)
		}
	})

	It("should migrate the valid pages of the emptiest block", func() {
		Expect(lookup(d.f, 0)).To(Equal(geometry.PPN(12)))
		Expect(lookup(d.f, 1)).To(Equal(geometry.PPN(21)))
		Expect(lookup(d.f, 2)).To(Equal(geometry.PPN(20)))
		Expect(lookup(d.f, 3)).To(Equal(geometry.PPN(22)))
		Expect(lookup(d.f, 4)).To(Equal(geometry.PPN(13)))
	})

	It("should turn the victim into the GC block", func() {
		state := d.f.BankState(0)
		Expect(state.GCBlock).To(Equal(uint32(4)))
		Expect(state.FreeBlocks).To(Equal(uint32(2)))
		Expect(state.LastWrite).To(Equal(geometry.PPN(13)))

		Expect(d.f.BlockRole(0, 3)).To(Equal(ftl.Collectable(2)))
		Expect(d.f.BlockRole(0, 4)).To(Equal(ftl.Reserved()))
		Expect(d.f.BlockRole(0, 5)).To(Equal(ftl.Collectable(3)))
		Expect(d.e.Flash().IsErased(0, 4, 0)).To(BeTrue())
		expectBankInvariants(d)
	})

	It("should count the flash operations", func() {
		after := d.counters()

		Expect(after.FlashCopybacks - before.FlashCopybacks).To(Equal(uint64(1)))
		Expect(after.FlashErases - before.FlashErases).To(Equal(uint64(1)))
		Expect(after.FlashWrites - before.FlashWrites).To(Equal(uint64(9)))
		Expect(after.FlashReads - before.FlashReads).To(Equal(uint64(1)))
	})

	It("should trace the collection", func() {
		Expect(steps.GetStepCount("copyback")).To(Equal(uint64(1)))
		Expect(steps.GetTaskCount("copyback")).To(Equal(uint64(1)))

		after := d.counters()
		Expect(totalTime.TaskCount()).To(Equal(uint64(7)))
		Expect(uint64(totalTime.TotalTime())).
			To(Equal(after.FlashOps() - before.FlashOps()))
	})

	It("should keep the data readable", func() {
		d.read(0, 20)
	})
})

var _ = Describe("FTL under a mixed workload", func() {
	rng := func(seed uint32) func() uint32 {
		state := seed
		return func() uint32 {
			state = state*1664525 + 1013904223
			return state >> 8
		}
	}

	run := func(d *device, ops int) {
		next := rng(7)
		spp := d.geo.SectorsPerPage

		for i := 0; i < ops; i++ {
			lpn := next() % d.geo.LogicalPages
			sect := next() % spp
			n := 1 + next()%(spp-sect)

			d.write(lpn*spp+sect, n)
			expectBankInvariants(d)

			if i%7 == 0 {
				d.read(lpn*spp, spp)
			}
		}

		d.read(0, d.geo.NumLogicalSectors())
	}

	It("should keep the valid-page counts consistent", func() {
		geo := geometry.MakeBuilder().
			WithBanks(2).
			WithBlocksPerBank(8).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			Build()
		d := newDevice(geo, checker.Config{
			LPNConsistent:      true,
			NonSequentialWrite: true,
			Overwrite:          true,
		}, nil, ftl.DefaultSmallWriteThreshold)
		Expect(d.f.Open()).To(Succeed())

		run(d, 400)

		Expect(d.counters().FlashErases).To(BeNumerically(">", 16))
		Expect(d.counters().FlashCopybacks).To(BeNumerically(">", 0))
	})

	It("should work around bad blocks", func() {
		geo := geometry.MakeBuilder().
			WithBanks(2).
			WithBlocksPerBank(8).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			WithLogicalPages(10).
			Build()
		d := newDevice(geo, checker.DefaultConfig(),
			map[uint32]*roaring.Bitmap{1: roaring.BitmapOf(2, 6)},
			ftl.DefaultSmallWriteThreshold)
		Expect(d.f.Open()).To(Succeed())

		Expect(d.f.IsBadBlock(1, 2)).To(BeTrue())
		Expect(d.f.IsBadBlock(1, 6)).To(BeTrue())
		Expect(d.f.IsBadBlock(0, 2)).To(BeFalse())
		Expect(d.f.BankState(1)).To(Equal(ftl.BankState{
			FreeBlocks: 3,
			BadBlocks:  2,
			LastWrite:  19,
			MapPPN:     12,
			GCBlock:    4,
		}))
		Expect(d.f.BlockRole(1, 6)).To(Equal(ftl.Reserved()))

		run(d, 200)
	})
})

var _ = Describe("FTL on a bank without good blocks", func() {
	It("should fail to open", func() {
		geo := geometry.MakeBuilder().
			WithBanks(2).
			WithBlocksPerBank(6).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			WithLogicalPages(4).
			Build()
		d := newDevice(geo, checker.DefaultConfig(),
			map[uint32]*roaring.Bitmap{1: roaring.BitmapOf(2, 3, 4, 5)},
			ftl.DefaultSmallWriteThreshold)

		err := d.f.Open()

		Expect(err).To(MatchError(ftl.ErrNoGoodBlock))
		Expect(err.Error()).To(ContainSubstring("bank 1"))
	})
})

var _ = Describe("FTL with requests longer than the buffer ring", func() {
	It("should move every page of a long request through the ring", func() {
		geo := geometry.MakeBuilder().
			WithBanks(2).
			WithBlocksPerBank(8).
			WithPagesPerBlock(4).
			WithSectorsPerPage(4).
			WithBytesPerSector(16).
			WithLogicalPages(10).
			Build()
		d := newDevice(geo, checker.Config{
			LPNConsistent:      true,
			NonSequentialWrite: true,
			Overwrite:          true,
		}, nil, ftl.DefaultSmallWriteThreshold)
		Expect(d.f.Open()).To(Succeed())

		d.write(0, 20)
		d.read(0, 20)

		d.write(6, 13)
		d.read(0, 40)

		Expect(d.e.PendingWrites()).To(BeZero())
		Expect(d.e.PendingReads()).To(BeZero())
		expectBankInvariants(d)
	})

	It("should replay a 128-sector request on the default device", func() {
		d := newDevice(geometry.MakeBuilder().Build(), checker.DefaultConfig(),
			nil, ftl.DefaultSmallWriteThreshold)
		Expect(d.f.Open()).To(Succeed())

		Expect(func() {
			d.write(0, 128)
			d.read(0, 128)
		}).NotTo(Panic())
	})
})
