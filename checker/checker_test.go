package checker_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/pagetag"
)

type eraseMap map[[3]uint32]bool

func (m eraseMap) IsErased(bank, blk, page uint32) bool {
	return !m[[3]uint32{bank, blk, page}]
}

func violationOf(f func()) (v *checker.Violation) {
	defer func() {
		v, _ = checker.AsViolation(recover())
	}()

	f()

	return nil
}

var _ = Describe("Checker", func() {
	var (
		logger   *logrus.Logger
		versions *checker.Versions
		page     *pagetag.Page
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetOutput(GinkgoWriter)

		versions = checker.NewVersions(64)
		page = pagetag.New(4, 16, nil)
	})

	Context("LBA consistency", func() {
		var c *checker.Checker

		BeforeEach(func() {
			c = checker.New(checker.DefaultConfig(), logger)
		})

		It("should ignore never written LBAs", func() {
			Expect(func() {
				c.CheckLBAConsistent(page, 8, 0, 4, versions)
			}).NotTo(Panic())
		})

		It("should accept matching LBAs", func() {
			versions.Bump(9)
			page.SetLBA(1, 9)

			Expect(func() {
				c.CheckLBAConsistent(page, 8, 0, 4, versions)
			}).NotTo(Panic())
		})

		It("should detect a mismatch", func() {
			versions.Bump(9)
			page.SetLBA(1, 10)

			v := violationOf(func() {
				c.CheckLBAConsistent(page, 8, 0, 4, versions)
			})

			Expect(v).NotTo(BeNil())
			Expect(v.Kind).To(Equal(checker.LPNMismatch))
		})

		It("should detect metadata where host data is expected", func() {
			versions.Bump(8)
			page.Fill(0, 4, 0xFF)

			v := violationOf(func() {
				c.CheckLBAConsistent(page, 8, 0, 1, versions)
			})

			Expect(v).NotTo(BeNil())
			Expect(v.Kind).To(Equal(checker.LPNMismatch))
		})

		It("should be skipped when disabled", func() {
			c = checker.New(checker.Config{}, logger)
			versions.Bump(8)

			Expect(func() {
				c.CheckLBAConsistent(page, 8, 0, 1, versions)
			}).NotTo(Panic())
		})
	})

	Context("program order", func() {
		var (
			c     *checker.Checker
			flash eraseMap
		)

		BeforeEach(func() {
			c = checker.New(checker.Config{
				NonSequentialWrite: true,
				Overwrite:          true,
			}, logger)
			flash = eraseMap{}
		})

		It("should accept the first page of a block", func() {
			Expect(func() {
				c.CheckNonSequentialWrite(flash, 0, 1, 0)
			}).NotTo(Panic())
		})

		It("should detect a skipped page", func() {
			v := violationOf(func() {
				c.CheckNonSequentialWrite(flash, 0, 1, 2)
			})

			Expect(v.Kind).To(Equal(checker.NonSequentialWrite))
		})

		It("should detect an overwrite", func() {
			flash[[3]uint32{0, 1, 0}] = true

			v := violationOf(func() {
				c.CheckOverwrite(flash, 0, 1, 0)
			})

			Expect(v.Kind).To(Equal(checker.Overwrite))
		})
	})
})

var _ = Describe("Versions", func() {
	It("should remember writes across wrapping counts", func() {
		v := checker.NewVersions(4)

		for i := 0; i < 256; i++ {
			v.Bump(2)
		}

		Expect(v.Count(2)).To(BeZero())
		Expect(v.Written(2)).To(BeTrue())
		Expect(v.Written(1)).To(BeFalse())
		Expect(v.NumWritten()).To(Equal(uint64(1)))

		v.Reset()
		Expect(v.Written(2)).To(BeFalse())
	})
})
