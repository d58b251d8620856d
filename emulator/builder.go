package emulator

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/geometry"
)

// Builder can build emulators.
type Builder struct {
	geo       geometry.Geometry
	layout    *geometry.Layout
	checkCfg  checker.Config
	badBlocks map[uint32]*roaring.Bitmap
	logger    logrus.FieldLogger
}

// MakeBuilder creates a builder with the default geometry, the default
// number of buffers and the default checker configuration.
func MakeBuilder() Builder {
	return Builder{
		geo:      geometry.MakeBuilder().Build(),
		checkCfg: checker.DefaultConfig(),
	}
}

// WithGeometry sets the flash geometry.
func (b Builder) WithGeometry(geo geometry.Geometry) Builder {
	b.geo = geo
	return b
}

// WithLayout sets the DRAM layout. It must be computed from the same
// geometry.
func (b Builder) WithLayout(layout geometry.Layout) Builder {
	b.layout = &layout
	return b
}

// WithCheckerConfig selects the optional checks.
func (b Builder) WithCheckerConfig(cfg checker.Config) Builder {
	b.checkCfg = cfg
	return b
}

// WithBadBlocks marks factory bad blocks of a bank.
func (b Builder) WithBadBlocks(bank uint32, blocks *roaring.Bitmap) Builder {
	merged := make(map[uint32]*roaring.Bitmap, len(b.badBlocks)+1)
	for k, v := range b.badBlocks {
		merged[k] = v
	}

	if prev, ok := merged[bank]; ok {
		merged[bank] = roaring.Or(prev, blocks)
	} else {
		merged[bank] = blocks.Clone()
	}

	b.badBlocks = merged

	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// Build creates an opened emulator.
func (b Builder) Build() *Emulator {
	layout := geometry.NewLayout(b.geo,
		geometry.DefaultNumBuffers, geometry.DefaultNumBuffers)
	if b.layout != nil {
		layout = *b.layout
	}

	if layout.PageSize() != uint64(b.geo.BytesPerPage()) ||
		layout.NumFTLBuffers != b.geo.Banks {
		panic("emulator: layout does not match the geometry")
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	e := newEmulator(b.geo, layout, b.checkCfg, logger)

	for bank, blocks := range b.badBlocks {
		b.markBad(e, bank, blocks)
	}

	e.Open()

	return e
}

func (b Builder) markBad(e *Emulator, bank uint32, blocks *roaring.Bitmap) {
	if bank >= b.geo.Banks {
		panic(fmt.Sprintf("emulator: bad blocks for bank %d out of range", bank))
	}

	it := blocks.Iterator()
	for it.HasNext() {
		blk := it.Next()
		if blk == 0 || blk >= b.geo.BlocksPerBank {
			panic(fmt.Sprintf(
				"emulator: block %d cannot be marked bad", blk))
		}

		e.flash.MarkBad(bank, blk)
	}
}
