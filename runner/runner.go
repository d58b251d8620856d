package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/geometry"
	"github.com/sarchlab/vst/stats"
)

// PassOffset is the LBA shift applied to every record on each further pass
// over the trace.
const PassOffset = 1024

// Unbounded is the write bound used for "run until the trace wraps forever".
const Unbounded = uint64(1) << 40

// FTL is the firmware interface the runner drives.
type FTL interface {
	Open() error
	Read(lba, n uint32)
	Write(lba, n uint32)
	Flush()
}

// Host moves data between the host and the device buffers.
type Host interface {
	SendToWriteBuffer(lba, n uint32)
	ReceiveFromReadBuffer(lba, n uint32)
}

// Progress receives the number of requests replayed.
type Progress interface {
	IncrementFinished(amount uint64)
}

// Runner replays a trace.
type Runner struct {
	ftl      FTL
	host     Host
	geo      geometry.Geometry
	counters *stats.Counters
	lock     sync.Locker
	progress Progress

	bound   uint64
	onePass bool

	log   logrus.FieldLogger
	ioLog logrus.FieldLogger
}

// Run opens the firmware, replays the trace and flushes the firmware. The
// records are not modified.
func (r *Runner) Run(ctx context.Context, records []Record) error {
	if err := r.ftl.Open(); err != nil {
		return fmt.Errorf("cannot open FTL: %w", err)
	}

	maxLBA := uint64(r.geo.MaxLBA())
	lbas := make([]uint32, len(records))

	for i, rec := range records {
		lbas[i] = rec.LBA
	}

	for pass := uint64(0); ; pass++ {
		r.log.WithField("pass", pass).Info("Replaying trace")

		wrote := false

		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}

			lba := uint64(lbas[i]) + pass*PassOffset
			if lba > maxLBA {
				lba %= maxLBA + 1
				lbas[i] = uint32(lba)
			}

			n := uint64(rec.Sectors)
			if lba+n > maxLBA+1 {
				n = maxLBA + 1 - lba
			}

			r.issue(rec.Read, uint32(lba), uint32(n))

			if r.progress != nil {
				r.progress.IncrementFinished(1)
			}

			if rec.Read {
				continue
			}

			wrote = true

			if !r.onePass && r.counters.BytesWritten > r.bound {
				return r.finish()
			}
		}

		if r.onePass {
			return r.finish()
		}

		if !wrote {
			r.log.Warn("Trace has no writes, stopping after one pass")
			return r.finish()
		}
	}
}

func (r *Runner) issue(read bool, lba, n uint32) {
	r.lock.Lock()
	defer r.lock.Unlock()

	bytes := uint64(n) * uint64(r.geo.BytesPerSector)

	if read {
		r.ioLog.Debugf("R: (%d, %d)", lba, n)
		r.ftl.Read(lba, n)
		r.host.ReceiveFromReadBuffer(lba, n)
		r.counters.IncBytesRead(bytes)

		return
	}

	r.ioLog.Debugf("W: (%d, %d)", lba, n)
	r.host.SendToWriteBuffer(lba, n)
	r.ftl.Write(lba, n)
	r.counters.IncBytesWritten(bytes)
}

func (r *Runner) finish() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.ftl.Flush()

	r.log.WithFields(logrus.Fields{
		"bytes_read":    r.counters.BytesRead,
		"bytes_written": r.counters.BytesWritten,
	}).Info("Replay finished")

	return nil
}
