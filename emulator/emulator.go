// Package emulator is the virtual storage device that firmware runs against.
// It owns the DRAM, the flash array and the host side of the read and write
// buffer rings, and it checks what the host receives against what it sent.
package emulator

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/flash"
	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/pagetag"
	"github.com/sarchlab/vst/sim"
	"github.com/sarchlab/vst/stats"
	"github.com/sarchlab/vst/vram"
)

// Emulator is a virtual SSD without firmware.
type Emulator struct {
	sim.NamedBase

	geo    geometry.Geometry
	layout geometry.Layout

	mem      *vram.Memory
	frames   []*pagetag.Page
	flash    *flash.Array
	checker  *checker.Checker
	counters *stats.Counters
	versions *checker.Versions
	log      logrus.FieldLogger

	ReadCursor  uint32
	WriteCursor uint32

	pendingWrites []chunk
	pendingReads  []*pagetag.Page
}

func newEmulator(
	geo geometry.Geometry,
	layout geometry.Layout,
	cfg checker.Config,
	logger logrus.FieldLogger,
) *Emulator {
	counters := &stats.Counters{}
	chk := checker.New(cfg, logger)

	e := &Emulator{
		NamedBase: sim.MakeNamedBase("VST"),
		geo:       geo,
		layout:    layout,
		mem:       vram.New(layout.Size),
		checker:   chk,
		counters:  counters,
		versions:  checker.NewVersions(geo.NumLogicalSectors()),
		flash:     flash.NewArray(geo, counters, chk, logger),
		log:       logger.WithField("category", "general"),
	}

	e.frames = make([]*pagetag.Page, layout.NumFrames())
	for i := range e.frames {
		backing := e.mem.Slice(layout.FrameAddr(uint32(i)), layout.PageSize())
		e.frames[i] = pagetag.New(geo.SectorsPerPage, geo.BytesPerSector, backing)
	}

	return e
}

// Open brings the device to its power-on state: flash erased, DRAM zeroed,
// counters cleared, buffer cursors rewound and host queues emptied. Bad
// blocks are kept.
func (e *Emulator) Open() {
	e.flash.Reset()
	e.mem.Reset()

	for _, f := range e.frames {
		f.Untag()
	}

	e.counters.Reset()
	e.versions.Reset()
	e.ReadCursor = 0
	e.WriteCursor = 0
	e.pendingWrites = nil
	e.pendingReads = nil

	e.log.WithFields(logrus.Fields{
		"dram_size": e.layout.Size,
		"pages":     e.geo.NumPages(),
	}).Info("Virtual storage initialized")
}

// Close releases the state of the device.
func (e *Emulator) Close() {
	e.flash.Reset()
	e.mem.Reset()
}

// Geometry returns the flash geometry.
func (e *Emulator) Geometry() geometry.Geometry {
	return e.geo
}

// Layout returns the DRAM layout.
func (e *Emulator) Layout() geometry.Layout {
	return e.layout
}

// Memory returns the DRAM.
func (e *Emulator) Memory() *vram.Memory {
	return e.mem
}

// Flash returns the flash array.
func (e *Emulator) Flash() *flash.Array {
	return e.flash
}

// Checker returns the consistency checker.
func (e *Emulator) Checker() *checker.Checker {
	return e.checker
}

// Counters returns the statistics of the device.
func (e *Emulator) Counters() *stats.Counters {
	return e.counters
}

// Versions returns the host write counters.
func (e *Emulator) Versions() *checker.Versions {
	return e.versions
}

// CurrentTime returns the number of flash operations issued so far.
func (e *Emulator) CurrentTime() sim.VTime {
	return e.counters.CurrentTime()
}

// Frame returns the tagged view of the buffer frame starting at addr.
func (e *Emulator) Frame(addr uint64) *pagetag.Page {
	frame, offset, ok := e.layout.FrameOf(addr)
	if !ok || offset != 0 {
		e.checker.Fail(checker.OutOfBounds,
			"DRAM address %#x is not the start of a buffer frame", addr)
	}

	return e.frames[frame]
}
