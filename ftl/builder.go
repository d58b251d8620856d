package ftl

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/geometry"
)

// DefaultSmallWriteThreshold is the largest write, in sectors, that is merged
// with its old page through a single full-page read.
const DefaultSmallWriteThreshold = 8

// Builder can build FTLs.
type Builder struct {
	geo            geometry.Geometry
	layout         *geometry.Layout
	backend        Backend
	logger         logrus.FieldLogger
	smallWriteSize uint32
}

// MakeBuilder creates a builder with the default geometry.
func MakeBuilder() Builder {
	return Builder{
		geo:            geometry.MakeBuilder().Build(),
		smallWriteSize: DefaultSmallWriteThreshold,
	}
}

// WithGeometry sets the flash geometry.
func (b Builder) WithGeometry(geo geometry.Geometry) Builder {
	b.geo = geo
	return b
}

// WithLayout sets the DRAM layout shared with the backend.
func (b Builder) WithLayout(layout geometry.Layout) Builder {
	b.layout = &layout
	return b
}

// WithBackend sets the device the FTL drives.
func (b Builder) WithBackend(backend Backend) Builder {
	b.backend = backend
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithSmallWriteThreshold sets the size, in sectors, up to which a misaligned
// partial write reads the whole old page instead of its two holes.
func (b Builder) WithSmallWriteThreshold(sectors uint32) Builder {
	b.smallWriteSize = sectors
	return b
}

// Build creates an FTL. It must be opened before serving requests.
func (b Builder) Build() *FlashTranslationLayer {
	if b.backend == nil {
		panic("ftl: backend is required")
	}

	if err := b.geo.Validate(); err != nil {
		panic(err)
	}

	layout := geometry.NewLayout(b.geo,
		geometry.DefaultNumBuffers, geometry.DefaultNumBuffers)
	if b.layout != nil {
		layout = *b.layout
	}

	if layout.Size > b.backend.Memory().Size() {
		panic("ftl: layout does not fit in the device memory")
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return newFTL(b.geo, layout, b.backend, logger, b.smallWriteSize)
}
