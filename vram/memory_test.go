package vram_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vst/vram"
)

var _ = Describe("Memory", func() {
	var m *vram.Memory

	BeforeEach(func() {
		m = vram.New(64)
	})

	It("should start zeroed", func() {
		Expect(m.Read32(0)).To(BeZero())
		Expect(m.Size()).To(Equal(uint64(64)))
	})

	It("should read and write typed values in little endian", func() {
		m.Write32(4, 0x11223344)

		Expect(m.Read32(4)).To(Equal(uint32(0x11223344)))
		Expect(m.Read16(4)).To(Equal(uint16(0x3344)))
		Expect(m.Read8(7)).To(Equal(uint8(0x11)))
	})

	It("should panic on unaligned access", func() {
		Expect(func() { m.Read16(1) }).To(Panic())
		Expect(func() { m.Write32(2, 1) }).To(Panic())
	})

	It("should panic beyond capacity", func() {
		Expect(func() { m.Read8(64) }).To(Panic())
		Expect(func() { m.Set(60, 0, 8) }).To(Panic())
	})

	It("should set, test and clear bits", func() {
		m.SetBit(8, 11)

		Expect(m.Read8(9)).To(Equal(uint8(1 << 3)))
		Expect(m.TestBit(8, 11)).To(BeTrue())
		Expect(m.TestBit(8, 10)).To(BeFalse())

		m.ClearBit(8, 11)
		Expect(m.TestBit(8, 11)).To(BeFalse())
	})

	It("should fill and copy", func() {
		m.Set(0, 0xab, 4)
		m.Copy(16, 0, 4)

		Expect(m.Read32(16)).To(Equal(uint32(0xabababab)))
	})

	It("should expose live bytes", func() {
		s := m.Slice(32, 4)
		s[0] = 7

		Expect(m.Read8(32)).To(Equal(uint8(7)))
	})

	Context("when searching", func() {
		BeforeEach(func() {
			for i, v := range []uint16{5, 3, 9, 3, 0, 1} {
				m.Write16(uint64(i*2), v)
			}
		})

		It("should find the first zero", func() {
			Expect(m.SearchMin(0, 2, 6)).To(Equal(uint32(4)))
		})

		It("should find the first minimum", func() {
			Expect(m.SearchMin(0, 2, 4)).To(Equal(uint32(1)))
		})

		It("should find the maximum", func() {
			Expect(m.SearchMax(0, 2, 6)).To(Equal(uint32(2)))
		})

		It("should find equal values", func() {
			Expect(m.SearchEqual(0, 2, 6, 3)).To(Equal(uint32(1)))
			Expect(m.SearchEqual(0, 2, 6, 42)).To(Equal(uint32(6)))
		})

		It("should reject bad units", func() {
			Expect(func() { m.SearchMin(0, 3, 2) }).To(Panic())
		})
	})
})

var _ = Describe("Region", func() {
	var (
		m *vram.Memory
		r vram.Region
	)

	BeforeEach(func() {
		m = vram.New(64)
		r = m.Region(16, 16)
	})

	It("should address relative to its base", func() {
		r.Write32(4, 99)

		Expect(m.Read32(20)).To(Equal(uint32(99)))
		Expect(r.Read32(4)).To(Equal(uint32(99)))
	})

	It("should keep bit operations inside the region", func() {
		r.SetBit(127)

		Expect(m.TestBit(16, 127)).To(BeTrue())
		Expect(func() { r.SetBit(128) }).To(Panic())
	})

	It("should fill only the region", func() {
		r.Fill(0xff)

		Expect(m.Read8(15)).To(BeZero())
		Expect(m.Read8(16)).To(Equal(uint8(0xff)))
		Expect(m.Read8(32)).To(BeZero())
	})

	It("should reject accesses beyond the region", func() {
		Expect(func() { r.Read32(16) }).To(Panic())
	})
})
