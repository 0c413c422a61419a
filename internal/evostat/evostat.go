// Package evostat provides the population-level statistical reductions
// world.World's inspection API reports (means over live cells), plus a
// sample variance and a fixed-size moving average. Only Mean is used
// elsewhere in this module; cmd/avida's display uses no moving average.
package evostat

import (
	"container/ring"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
// Thin wrapper over gonum/stat so every population reduction in this
// module goes through the same well-tested arithmetic.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Variance returns the sample variance of values, or 0 for fewer than two
// values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.Variance(values, nil)
}

// MovingAvg accumulates the last Window values added and reports their
// average. The window is a count of samples, not a time span; the
// simulator advances in discrete ticks.
type MovingAvg struct {
	Window int

	mu    sync.Mutex
	r     *ring.Ring
	count int
}

// NewMovingAvg returns a MovingAvg retaining the most recent window values.
func NewMovingAvg(window int) *MovingAvg {
	if window < 1 {
		window = 1
	}
	return &MovingAvg{Window: window, r: ring.New(window)}
}

// Add records a new value, evicting the oldest once Window is exceeded.
func (a *MovingAvg) Add(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.r.Value = v
	a.r = a.r.Next()
	if a.count < a.Window {
		a.count++
	}
}

// Value returns the average of the values currently retained, or 0 if none
// have been added yet.
func (a *MovingAvg) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	a.r.Do(func(x interface{}) {
		if x == nil {
			return
		}
		sum += x.(float64)
		n++
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
