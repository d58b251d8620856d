package runner

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/stats"
)

// Builder can build runners.
type Builder struct {
	ftl      FTL
	host     Host
	geo      geometry.Geometry
	counters *stats.Counters
	lock     sync.Locker
	progress Progress
	bound    uint64
	onePass  bool
	logger   logrus.FieldLogger
}

// MakeBuilder creates a builder with a one-byte write bound, so that a
// default run stops after the first write.
func MakeBuilder() Builder {
	return Builder{
		geo:   geometry.MakeBuilder().Build(),
		bound: 1,
	}
}

// WithFTL sets the firmware to drive.
func (b Builder) WithFTL(f FTL) Builder {
	b.ftl = f
	return b
}

// WithHost sets the host side of the device buffers.
func (b Builder) WithHost(h Host) Builder {
	b.host = h
	return b
}

// WithGeometry sets the geometry that bounds the address space.
func (b Builder) WithGeometry(geo geometry.Geometry) Builder {
	b.geo = geo
	return b
}

// WithCounters sets where host byte counts are accumulated.
func (b Builder) WithCounters(c *stats.Counters) Builder {
	b.counters = c
	return b
}

// WithLocker sets the lock held while a request is in flight.
func (b Builder) WithLocker(l sync.Locker) Builder {
	b.lock = l
	return b
}

// WithProgress sets a progress sink.
func (b Builder) WithProgress(p Progress) Builder {
	b.progress = p
	return b
}

// WithBound sets the number of written bytes after which the replay stops.
func (b Builder) WithBound(bytes uint64) Builder {
	b.bound = bytes
	return b
}

// WithOnePass makes the runner stop after a single pass over the trace.
func (b Builder) WithOnePass(onePass bool) Builder {
	b.onePass = onePass
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// Build creates the runner.
func (b Builder) Build() *Runner {
	if b.ftl == nil || b.host == nil {
		panic("runner: FTL and host are required")
	}

	counters := b.counters
	if counters == nil {
		counters = &stats.Counters{}
	}

	lock := b.lock
	if lock == nil {
		lock = &sync.Mutex{}
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		ftl:      b.ftl,
		host:     b.host,
		geo:      b.geo,
		counters: counters,
		lock:     lock,
		progress: b.progress,
		bound:    b.bound,
		onePass:  b.onePass,
		log:      logger.WithField("category", "general"),
		ioLog:    logger.WithField("category", "io"),
	}
}
