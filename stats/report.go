package stats

import (
	"fmt"
	"io"
)

const (
	mb           = 1024 * 1024
	reportBanner = "----------Statistic Results----------"
)

// Report prints the statistics block. passed tells whether the replay
// finished without a violation.
func (c *Counters) Report(w io.Writer, passed bool, bytesPerPage uint32) error {
	verdict := "Fail!"
	if passed {
		verdict = "Pass!"
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n"+
		"Total read (MB): %d\n"+
		"Total write (MB): %d\n"+
		"Total flash read (pages): %d\n"+
		"Total flash write (pages): %d\n"+
		"Total flash copyback (pages): %d\n"+
		"Total flash erase (blocks): %d\n"+
		"Write amplification: %.3f\n"+
		"%s\n",
		reportBanner, verdict,
		c.BytesRead/mb,
		c.BytesWritten/mb,
		c.FlashReads,
		c.FlashWrites,
		c.FlashCopybacks,
		c.FlashErases,
		c.WriteAmplification(bytesPerPage),
		reportBanner,
	)

	return err
}
