package emulator

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/pagetag"
)

type chunk struct {
	lba  uint32
	sect uint32
	n    uint32
}

// forEachChunk splits a request at page boundaries.
func (e *Emulator) forEachChunk(lba, n uint32, f func(c chunk)) {
	spp := e.geo.SectorsPerPage

	for n > 0 {
		sect := lba % spp

		cnt := spp - sect
		if cnt > n {
			cnt = n
		}

		f(chunk{lba: lba, sect: sect, n: cnt})

		lba += cnt
		n -= cnt
	}
}

// SendToWriteBuffer stages host data for a write of n sectors at lba. The
// data is split into page-sized pieces that wait in the host queue until the
// FTL claims a write buffer frame for each of them with WaitWriteBuffer.
func (e *Emulator) SendToWriteBuffer(lba, n uint32) {
	e.mustBeInAddressSpace(lba, n)

	e.forEachChunk(lba, n, func(c chunk) {
		for i := uint32(0); i < c.n; i++ {
			e.versions.Bump(c.lba + i)
		}

		e.pendingWrites = append(e.pendingWrites, c)
	})

	e.log.WithFields(logrus.Fields{"lba": lba, "n": n}).
		Debug("sent to write buffer")
}

// WaitWriteBuffer is called by the FTL before it uses write buffer frame id.
// The next staged piece lands in the frame with every sector tagged by its
// LBA. Frames must be claimed in ring order.
func (e *Emulator) WaitWriteBuffer(id uint32) {
	if id != e.WriteCursor {
		e.checker.Fail(checker.BufferHandshake,
			"write buffer %d used out of order, expected %d", id, e.WriteCursor)
	}

	if len(e.pendingWrites) == 0 {
		e.checker.Fail(checker.BufferHandshake,
			"write buffer %d consumed before the host filled it", id)
	}

	c := e.pendingWrites[0]
	e.pendingWrites = e.pendingWrites[1:]

	frame := e.frames[e.frameIndex(e.layout.WriteBuffer(id))]
	for i := uint32(0); i < c.n; i++ {
		frame.SetLBA(c.sect+i, c.lba+i)
	}

	e.WriteCursor = (e.WriteCursor + 1) % e.layout.NumWriteBuffers
}

// ReleaseReadBuffer hands read buffer frame id to the host once the FTL has
// filled it. The host side keeps what the frame holds at this point, so the
// FTL may reuse the frame right away. Frames must be released in ring order.
func (e *Emulator) ReleaseReadBuffer(id uint32) {
	if id != e.ReadCursor {
		e.checker.Fail(checker.BufferHandshake,
			"read buffer %d released out of order, expected %d", id, e.ReadCursor)
	}

	frame := e.frames[e.frameIndex(e.layout.ReadBuffer(id))]

	snap := pagetag.New(e.geo.SectorsPerPage, e.geo.BytesPerSector, nil)
	if frame.IsTagged() {
		pagetag.Copy(snap, frame, 0, e.geo.SectorsPerPage)
	}

	e.pendingReads = append(e.pendingReads, snap)

	e.ReadCursor = (e.ReadCursor + 1) % e.layout.NumReadBuffers
}

// ReceiveFromReadBuffer takes the result of a read of n sectors at lba, one
// released read buffer frame per page-sized piece, and checks that it is what
// was written.
func (e *Emulator) ReceiveFromReadBuffer(lba, n uint32) {
	e.mustBeInAddressSpace(lba, n)

	e.forEachChunk(lba, n, func(c chunk) {
		if len(e.pendingReads) == 0 {
			e.checker.Fail(checker.BufferHandshake,
				"read of LBA %d received before the FTL released a read buffer",
				c.lba)
		}

		page := e.pendingReads[0]
		e.pendingReads = e.pendingReads[1:]

		e.checker.CheckLBAConsistent(page, c.lba, c.sect, c.n, e.versions)
	})

	e.log.WithFields(logrus.Fields{"lba": lba, "n": n}).
		Debug("received from read buffer")
}

// PendingWrites returns the number of staged pieces no frame has taken yet.
func (e *Emulator) PendingWrites() int {
	return len(e.pendingWrites)
}

// PendingReads returns the number of released frames the host has not
// received yet.
func (e *Emulator) PendingReads() int {
	return len(e.pendingReads)
}

func (e *Emulator) frameIndex(addr uint64) uint32 {
	frame, _, _ := e.layout.FrameOf(addr)
	return frame
}

func (e *Emulator) mustBeInAddressSpace(lba, n uint32) {
	if uint64(lba)+uint64(n) > uint64(e.geo.MaxLBA())+1 {
		e.checker.Fail(checker.AddressRange,
			"request [%d, %d) beyond max LBA %d", lba, uint64(lba)+uint64(n),
			e.geo.MaxLBA())
	}
}
