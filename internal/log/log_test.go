package log

import (
	"fmt"
	"testing"
)

func TestCountersResetToZero(t *testing.T) {
	HCopyFailures.Add(3)
	Divisions.Add(1)
	ResetCounters()
	if HCopyFailures.Load() != 0 || Divisions.Load() != 0 {
		t.Error("ResetCounters must zero every counter")
	}
}

func TestEventRingKeepsMostRecent(t *testing.T) {
	ResetEvents()
	for i := 0; i < maxEvents+10; i++ {
		Eventf("event %d", i)
	}

	recent := RecentEvents(5)
	if len(recent) != 5 {
		t.Fatalf("RecentEvents(5) returned %d entries", len(recent))
	}
	for i, want := 0, maxEvents+5; i < 5; i, want = i+1, want+1 {
		if recent[i] != fmt.Sprintf("event %d", want) {
			t.Errorf("recent[%d] = %q, want %q", i, recent[i], fmt.Sprintf("event %d", want))
		}
	}
}

func TestRecentEventsUnderfilled(t *testing.T) {
	ResetEvents()
	Eventf("only one")
	recent := RecentEvents(10)
	if len(recent) != 1 || recent[0] != "only one" {
		t.Errorf("RecentEvents = %v, want [only one]", recent)
	}
}

func TestNullLoggerDiscards(t *testing.T) {
	// Must not panic or emit; exercised for completeness.
	Null().Printf("dropped %d", 1)
	Null().Println("dropped")
}
