package runner

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/vst/emulator"
	"github.com/sarchlab/vst/ftl"
)

// Device is the virtual SSD with its firmware.
type Device struct {
	Emulator *emulator.Emulator
	FTL      *ftl.FlashTranslationLayer
}

// NewDevice assembles the emulator and the FTL from a validated
// configuration.
func NewDevice(cfg Config, logger logrus.FieldLogger) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	geo := cfg.BuildGeometry()
	layout := cfg.BuildLayout()

	badBlocks, err := cfg.BadBlockSets()
	if err != nil {
		return nil, err
	}

	eb := emulator.MakeBuilder().
		WithGeometry(geo).
		WithLayout(layout).
		WithCheckerConfig(cfg.Checker).
		WithLogger(logger)
	for bank, blocks := range badBlocks {
		eb = eb.WithBadBlocks(bank, blocks)
	}

	e := eb.Build()

	f := ftl.MakeBuilder().
		WithGeometry(geo).
		WithLayout(layout).
		WithBackend(e).
		WithLogger(logger).
		WithSmallWriteThreshold(cfg.SmallWriteThreshold).
		Build()

	return &Device{Emulator: e, FTL: f}, nil
}

// NewRunnerBuilder returns a runner builder wired to the device.
func (d *Device) NewRunnerBuilder(cfg Config) Builder {
	return MakeBuilder().
		WithFTL(d.FTL).
		WithHost(d.Emulator).
		WithGeometry(d.Emulator.Geometry()).
		WithCounters(d.Emulator.Counters()).
		WithBound(cfg.Bound).
		WithOnePass(cfg.OnePass)
}
