// Package checker validates the behavior of firmware running against the
// emulator. Every detected violation is fatal.
package checker

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/pagetag"
)

// Config selects the optional checks.
type Config struct {
	LPNConsistent      bool `mapstructure:"lpn_consistent"`
	NonSequentialWrite bool `mapstructure:"non_sequential_write"`
	Overwrite          bool `mapstructure:"overwrite"`
}

// DefaultConfig enables the LBA consistency check only.
func DefaultConfig() Config {
	return Config{LPNConsistent: true}
}

// EraseStateView exposes the erase state of flash pages.
type EraseStateView interface {
	IsErased(bank, blk, page uint32) bool
}

// Checker runs the configured checks.
type Checker struct {
	cfg Config
	log logrus.FieldLogger
}

// New creates a checker. A nil logger uses the standard logrus logger.
func New(cfg Config, logger logrus.FieldLogger) *Checker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Checker{
		cfg: cfg,
		log: logger.WithField("category", "checker"),
	}
}

// Config returns the active configuration.
func (c *Checker) Config() Config {
	return c.cfg
}

// Fail logs and raises a violation.
func (c *Checker) Fail(kind Kind, format string, args ...any) {
	v := &Violation{Kind: kind, Msg: fmt.Sprintf(format, args...)}

	c.log.WithField("kind", kind.String()).Errorf("Bug detected: %s", v.Msg)

	panic(v)
}

// CheckLBAConsistent verifies that every written LBA in [lba, lba+n) is what
// the page holds in the matching sector starting at sect.
func (c *Checker) CheckLBAConsistent(
	page *pagetag.Page,
	lba, sect, n uint32,
	versions *Versions,
) {
	if !c.cfg.LPNConsistent {
		return
	}

	for i := uint32(0); i < n; i++ {
		want := lba + i
		if !versions.Written(want) {
			continue
		}

		if !page.IsTagged() {
			c.Fail(LPNMismatch,
				"LBA %d was written but sector %d holds metadata", want, sect+i)
		}

		if got := page.LBA(sect + i); got != want {
			c.Fail(LPNMismatch,
				"LBA mismatched, issued LBA = %d, stored LBA = %d", want, got)
		}
	}
}

// CheckNonSequentialWrite fails when a page is programmed while the previous
// page of its block is still erased.
func (c *Checker) CheckNonSequentialWrite(
	view EraseStateView,
	bank, blk, page uint32,
) {
	if !c.cfg.NonSequentialWrite || page == 0 {
		return
	}

	if view.IsErased(bank, blk, page-1) {
		c.Fail(NonSequentialWrite,
			"non-sequential write to bank #%d, blk #%d, page #%d",
			bank, blk, page)
	}
}

// CheckOverwrite fails when a page is programmed without being erased.
func (c *Checker) CheckOverwrite(view EraseStateView, bank, blk, page uint32) {
	if !c.cfg.Overwrite {
		return
	}

	if !view.IsErased(bank, blk, page) {
		c.Fail(Overwrite,
			"directly overwrite to bank #%d, blk #%d, page #%d",
			bank, blk, page)
	}
}
