package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a recorded execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecInfoTable is the table holding the execution properties.
const ExecInfoTable = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// execRecorder records the command line and the duration of the execution.
type execRecorder struct {
	tablename string
	recorder  DataRecorder
	entries   []ExecInfo
}

// Start logs the current execution.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeFormat)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}
}

// End writes the collected properties along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tablename, entry)
	}

	e.recorder.InsertData(e.tablename,
		ExecInfo{"End Time", time.Now().Format(execTimeFormat)})

	e.entries = nil
}

func newExecRecorderWithWriter(writer *sqliteWriter) *execRecorder {
	e := &execRecorder{
		tablename: ExecInfoTable,
		recorder:  writer,
	}

	e.recorder.CreateTable(e.tablename, ExecInfo{})

	return e
}
