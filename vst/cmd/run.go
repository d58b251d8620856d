package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vst/checker"
	"github.com/sarchlab/vst/datarecording"
	"github.com/sarchlab/vst/monitoring"
	"github.com/sarchlab/vst/runner"
	"github.com/sarchlab/vst/stats"
	"github.com/sarchlab/vst/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run <trace>",
	Short: "Replay a trace against the FTL.",
	Long: "`run <trace>` replays the trace until the write bound is " +
		"exceeded, shifting every LBA by 1024 sectors on each further pass. " +
		"With -c the trace is replayed exactly once.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrace(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.BoolP("all", "a", false, "Replay until 1 TiB has been written")
	f.Uint64P("bound", "b", 1, "Stop once more than this many bytes are written")
	f.BoolP("once", "c", false, "Replay the trace exactly once")
	f.String("record", "", "Record flash operations and FTL tasks to a SQLite file")
	f.StringSlice("record-tasks", []string{"req_in", "gc"},
		"Kinds of FTL tasks to record")
	f.Bool("monitor", false, "Serve the monitoring API during the replay")
	f.Int("port", 0, "Port of the monitoring server, random if 0")
	f.Bool("open", false, "Open the monitoring server in a browser")

	mustBind("bound", f.Lookup("bound"))
	mustBind("one_pass", f.Lookup("once"))
	mustBind("record", f.Lookup("record"))
	mustBind("monitor.enabled", f.Lookup("monitor"))
	mustBind("monitor.port", f.Lookup("port"))
	mustBind("monitor.open", f.Lookup("open"))
}

func runTrace(cmd *cobra.Command, tracePath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if all, _ := cmd.Flags().GetBool("all"); all {
		cfg.Bound = runner.Unbounded
	}

	logger, closer, err := runner.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	atexit.Register(func() { closer.Close() })

	records, err := runner.LoadTrace(tracePath)
	if err != nil {
		return err
	}

	dev, err := runner.NewDevice(cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	geo := dev.Emulator.Geometry()

	fmt.Fprintf(out, "Trace file: %s\n", tracePath)
	if err := runner.PrintConfiguration(out, geo, dev.Emulator.Layout()); err != nil {
		return err
	}

	lock := &sync.Mutex{}
	b := dev.NewRunnerBuilder(cfg).
		WithLocker(lock).
		WithLogger(logger)

	var opRecorder *stats.OpRecorder
	if cfg.Record != "" {
		kinds, _ := cmd.Flags().GetStringSlice("record-tasks")

		opRecorder, err = startRecording(cfg.Record, dev, kinds)
		if err != nil {
			return err
		}
	}

	if cfg.Monitor.Enabled {
		m, bar, err := startMonitor(cfg.Monitor, dev, lock, logger, len(records))
		if err != nil {
			return err
		}
		defer stopMonitor(m, bar)

		b = b.WithProgress(bar)
	}

	passed, err := replay(cmd.Context(), b.Build(), records, logger)
	if err != nil {
		return err
	}

	return report(out, dev, opRecorder, passed)
}

func startRecording(
	path string,
	dev *runner.Device,
	taskKinds []string,
) (*stats.OpRecorder, error) {
	filename := path
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("recording file %s already exists", filename)
	}

	rec := datarecording.New(path)

	opRecorder := stats.NewOpRecorder(rec, dev.Emulator)
	dev.Emulator.Flash().AcceptHook(opRecorder)

	tracing.CollectFilteredTrace(dev.FTL,
		tracing.NewDBTracer(dev.Emulator, rec), tracing.KindIn(taskKinds...))

	return opRecorder, nil
}

func startMonitor(
	cfg runner.MonitorConfig,
	dev *runner.Device,
	lock sync.Locker,
	logger logrus.FieldLogger,
	numRecords int,
) (*monitoring.Monitor, *monitoring.ProgressBar, error) {
	m := monitoring.NewMonitor().
		WithLogger(logger).
		WithLocker(lock).
		WithPortNumber(cfg.Port)

	m.RegisterComponent(dev.FTL)
	m.RegisterComponent(dev.Emulator)

	bar := m.CreateProgressBar("Replay", uint64(numRecords))

	url, err := m.StartServer()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Open {
		if err := browser.OpenURL(url + "/api/progress"); err != nil {
			logger.WithError(err).Warn("Cannot open browser")
		}
	}

	return m, bar, nil
}

func stopMonitor(m *monitoring.Monitor, bar *monitoring.ProgressBar) {
	m.CompleteProgressBar(bar)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = m.StopServer(ctx)
}

// replay runs the trace and turns a violation into a failed replay.
func replay(
	ctx context.Context,
	r *runner.Runner,
	records []runner.Record,
	logger logrus.FieldLogger,
) (passed bool, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		violation, ok := checker.AsViolation(rec)
		if !ok {
			panic(rec)
		}

		logger.WithField("kind", violation.Kind.String()).Error(violation.Msg)
		fmt.Fprintf(os.Stderr, "Violation: %s\n", violation)

		passed, err = false, nil
	}()

	if err := r.Run(ctx, records); err != nil {
		return false, err
	}

	return true, nil
}

func report(
	out io.Writer,
	dev *runner.Device,
	opRecorder *stats.OpRecorder,
	passed bool,
) error {
	counters := dev.Emulator.Counters()
	bytesPerPage := dev.Emulator.Geometry().BytesPerPage()

	if err := counters.Report(out, passed, bytesPerPage); err != nil {
		return err
	}

	if opRecorder != nil {
		opRecorder.RecordSummary(counters, passed, bytesPerPage)
	}

	if !passed {
		atexit.Exit(1)
	}

	return nil
}
