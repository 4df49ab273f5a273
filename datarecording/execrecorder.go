package datarecording

import (
	"os"
	"strings"
	"time"

	"github.com/rs/xid"
)

const execTableName = "exec_info"

const timeFormat = "2006-01-02 15:04:05.000000000"

// execInfo is a property of the program execution that made a recording.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the simulator was run.
type execRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(execTableName, execInfo{})

	return &execRecorder{recorder: recorder}
}

// Start collects the properties known when the execution starts.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		execInfo{"Start Time", time.Now().Format(timeFormat)},
		execInfo{"Command", strings.Join(os.Args, " ")},
		execInfo{"Simulation ID", xid.New().String()},
	)

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.entries = append(e.entries, execInfo{"Working Directory", cwd})
}

// End inserts the collected properties together with the end time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.recorder.InsertData(execTableName,
		execInfo{"End Time", time.Now().Format(timeFormat)})

	e.entries = nil
}
