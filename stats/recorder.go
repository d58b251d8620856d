package stats

import (
	"github.com/sarchlab/vst/datarecording"
	"github.com/sarchlab/vst/sim"
)

// Table names used by OpRecorder.
const (
	FlashOpsTable = "flash_ops"
	SummaryTable  = "summary"
)

// OpEntry is a row of the flash operation table.
type OpEntry struct {
	Seq      uint64
	Time     uint64
	Kind     string
	Bank     uint32
	Block    uint32
	Page     uint32
	Sect     uint32
	NumSect  uint32
	SrcBlock uint32
	SrcPage  uint32
}

// SummaryEntry is the row written at the end of a replay.
type SummaryEntry struct {
	Passed             bool
	BytesRead          uint64
	BytesWritten       uint64
	FlashReads         uint64
	FlashWrites        uint64
	FlashCopybacks     uint64
	FlashErases        uint64
	WriteAmplification float64
}

// OpRecorder is a hook that stores every flash operation it observes.
type OpRecorder struct {
	recorder datarecording.DataRecorder
	clock    sim.TimeTeller
	seq      uint64
}

// NewOpRecorder creates the recording tables and returns the hook.
func NewOpRecorder(
	recorder datarecording.DataRecorder,
	clock sim.TimeTeller,
) *OpRecorder {
	recorder.CreateTable(FlashOpsTable, OpEntry{})
	recorder.CreateTable(SummaryTable, SummaryEntry{})

	return &OpRecorder{
		recorder: recorder,
		clock:    clock,
	}
}

// Func records the flash operation carried by the hook context.
func (r *OpRecorder) Func(ctx sim.HookCtx) {
	op, ok := ctx.Item.(FlashOp)
	if !ok {
		return
	}

	r.seq++

	r.recorder.InsertData(FlashOpsTable, OpEntry{
		Seq:      r.seq,
		Time:     uint64(r.clock.CurrentTime()),
		Kind:     string(op.Kind),
		Bank:     op.Bank,
		Block:    op.Block,
		Page:     op.Page,
		Sect:     op.Sect,
		NumSect:  op.NumSect,
		SrcBlock: op.SrcBlock,
		SrcPage:  op.SrcPage,
	})
}

// NumRecorded returns the number of operations recorded.
func (r *OpRecorder) NumRecorded() uint64 {
	return r.seq
}

// RecordSummary stores the final counters and flushes the recorder.
func (r *OpRecorder) RecordSummary(c *Counters, passed bool, bytesPerPage uint32) {
	r.recorder.InsertData(SummaryTable, SummaryEntry{
		Passed:             passed,
		BytesRead:          c.BytesRead,
		BytesWritten:       c.BytesWritten,
		FlashReads:         c.FlashReads,
		FlashWrites:        c.FlashWrites,
		FlashCopybacks:     c.FlashCopybacks,
		FlashErases:        c.FlashErases,
		WriteAmplification: c.WriteAmplification(bytesPerPage),
	})

	r.recorder.Flush()
}
