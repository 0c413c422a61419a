// Package log provides an interface to logging that makes it easy to switch
// the logging on and off by replacing the value of the variable providing it,
// plus a small set of diagnostic counters backing the debug event log. None
// of this has any effect on simulation semantics; a production build may
// wire Logger to Null() throughout.
package log

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// Logger is the logging surface organism/world code calls through.
type Logger interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

type nullLogger struct{}

func (nullLogger) Printf(format string, v ...interface{}) {}
func (nullLogger) Println(v ...interface{})               {}

// Null is a Logger that simply returns without evaluating its arguments.
func Null() Logger {
	return nullLogger{}
}

type glogLogger struct{}

func (glogLogger) Printf(format string, v ...interface{}) {
	glog.InfoDepth(1, fmt.Sprintf(format, v...))
}
func (glogLogger) Println(v ...interface{}) { glog.InfoDepth(1, fmt.Sprintln(v...)) }

// Real returns a Logger backed by glog, for use when diagnostic output is
// wanted (e.g. from cmd/avida).
func Real() Logger {
	return glogLogger{}
}

// Default is the package-wide logger used by organism/world for warnings
// that are not worth plumbing an explicit Logger parameter for. It starts
// silent.
var Default Logger = Null()

// Diagnostic counters for reproduction faults and successes. These are
// process-wide, monotonic, and purely diagnostic: no simulation invariant
// depends on their value.
var (
	HAllocWarnings  atomic.Uint64
	HCopyFailures   atomic.Uint64
	HDivideFailures atomic.Uint64
	Divisions       atomic.Uint64
)

// ResetCounters zeroes all diagnostic counters. Intended for test isolation.
func ResetCounters() {
	HAllocWarnings.Store(0)
	HCopyFailures.Store(0)
	HDivideFailures.Store(0)
	Divisions.Store(0)
}

// maxEvents bounds the debug event ring buffer.
const maxEvents = 100

var (
	eventsMu sync.Mutex
	events   []string
	eventPos int // index of the oldest entry once the ring is full
)

// Eventf records a formatted event in the debug event ring buffer, evicting
// the oldest entry once maxEvents is reached, and forwards the message to
// the Default logger.
func Eventf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	eventsMu.Lock()
	if len(events) < maxEvents {
		events = append(events, msg)
	} else {
		events[eventPos] = msg
		eventPos = (eventPos + 1) % maxEvents
	}
	eventsMu.Unlock()
	Default.Println(msg)
}

// RecentEvents returns up to count of the most recently recorded events,
// oldest first.
func RecentEvents(count int) []string {
	eventsMu.Lock()
	defer eventsMu.Unlock()

	ordered := make([]string, 0, len(events))
	ordered = append(ordered, events[eventPos:]...)
	ordered = append(ordered, events[:eventPos]...)
	if count < len(ordered) {
		ordered = ordered[len(ordered)-count:]
	}
	return ordered
}

// ResetEvents empties the debug event ring buffer. Intended for test
// isolation.
func ResetEvents() {
	eventsMu.Lock()
	defer eventsMu.Unlock()
	events = nil
	eventPos = 0
}
