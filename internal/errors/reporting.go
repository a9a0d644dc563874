package errors

import (
	"sync"
	"sync/atomic"
)

// Reporter receives enhanced errors for out-of-process reporting.
// The application runs without one; tests and future telemetry wiring
// install their own.
type Reporter interface {
	Report(ee *EnhancedError)
}

var (
	hasActiveReporting atomic.Bool
	reporterMu         sync.RWMutex
	activeReporter     Reporter
)

// SetReporter installs a reporter for all subsequently built errors.
// Passing nil disables reporting and restores the fast build path.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	activeReporter = r
	reporterMu.Unlock()
	hasActiveReporting.Store(r != nil)
}

// reportToTelemetry forwards a built error to the active reporter, if any.
func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	r := activeReporter
	reporterMu.RUnlock()

	if r == nil || ee.IsReported() {
		return
	}
	r.Report(ee)
	ee.MarkReported()
}
