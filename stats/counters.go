// Package stats collects the counters of a replay and reports them.
package stats

import "github.com/sarchlab/vst/sim"

// OpKind names a flash operation.
type OpKind string

// All flash operation kinds.
const (
	OpRead     OpKind = "read"
	OpWrite    OpKind = "write"
	OpCopyback OpKind = "copyback"
	OpErase    OpKind = "erase"
)

// FlashOp describes one flash operation. Block and Page address the page that
// is read or programmed; a copyback also carries its source in SrcBlock and
// SrcPage.
type FlashOp struct {
	Kind     OpKind
	Bank     uint32
	Block    uint32
	Page     uint32
	Sect     uint32
	NumSect  uint32
	SrcBlock uint32
	SrcPage  uint32
}

// Counters are the centralized statistics of one replay.
type Counters struct {
	BytesRead      uint64
	BytesWritten   uint64
	FlashReads     uint64
	FlashWrites    uint64
	FlashCopybacks uint64
	FlashErases    uint64
}

// IncBytesRead adds host bytes read.
func (c *Counters) IncBytesRead(n uint64) {
	c.BytesRead += n
}

// IncBytesWritten adds host bytes written.
func (c *Counters) IncBytesWritten(n uint64) {
	c.BytesWritten += n
}

// IncFlashReads adds page reads.
func (c *Counters) IncFlashReads(n uint64) {
	c.FlashReads += n
}

// IncFlashWrites adds page programs.
func (c *Counters) IncFlashWrites(n uint64) {
	c.FlashWrites += n
}

// IncFlashCopybacks adds copybacks.
func (c *Counters) IncFlashCopybacks(n uint64) {
	c.FlashCopybacks += n
}

// IncFlashErases adds block erases.
func (c *Counters) IncFlashErases(n uint64) {
	c.FlashErases += n
}

// Count adds one flash operation to the matching counter.
func (c *Counters) Count(op FlashOp) {
	switch op.Kind {
	case OpRead:
		c.IncFlashReads(1)
	case OpWrite:
		c.IncFlashWrites(1)
	case OpCopyback:
		c.IncFlashCopybacks(1)
	case OpErase:
		c.IncFlashErases(1)
	default:
		panic("stats: unknown flash operation " + string(op.Kind))
	}
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	*c = Counters{}
}

// FlashOps returns the total number of flash operations.
func (c *Counters) FlashOps() uint64 {
	return c.FlashReads + c.FlashWrites + c.FlashCopybacks + c.FlashErases
}

// CurrentTime returns the number of flash operations issued so far.
func (c *Counters) CurrentTime() sim.VTime {
	return sim.VTime(c.FlashOps())
}

// WriteAmplification returns the number of pages programmed, including
// copybacks, per host page written. It is 0 before any host write.
func (c *Counters) WriteAmplification(bytesPerPage uint32) float64 {
	if c.BytesWritten == 0 || bytesPerPage == 0 {
		return 0
	}

	hostPages := float64(c.BytesWritten) / float64(bytesPerPage)

	return float64(c.FlashWrites+c.FlashCopybacks) / hostPages
}
