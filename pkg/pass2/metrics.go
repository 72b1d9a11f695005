package pass2

import (
	"time"

	"github.com/Byte-Jerry/ocfs2-tools/pkg/problem"
)

// Block outcomes reported to Metrics.ObserveBlock.
const (
	BlockChecked = "checked"
	BlockSkipped = "skipped"
	BlockAborted = "aborted"
)

// Metrics receives pass statistics. Implementations must be cheap: they are
// called once per entry.
type Metrics interface {
	problem.Observer

	// ObserveBlock records the outcome of one directory block.
	ObserveBlock(outcome string)

	// ObserveDirents records entries walked in a block.
	ObserveDirents(n int)

	// ObserveDuplicate records a block with duplicate names.
	ObserveDuplicate()

	// ObserveRun records a finished pass.
	ObserveRun(d time.Duration, aborted bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordFix(problem.Kind, bool)   {}
func (noopMetrics) ObserveBlock(string)            {}
func (noopMetrics) ObserveDirents(int)             {}
func (noopMetrics) ObserveDuplicate()              {}
func (noopMetrics) ObserveRun(time.Duration, bool) {}
