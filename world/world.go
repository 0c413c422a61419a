// Package world implements the toroidal grid, merit-proportional scheduler,
// birth placement and death rules that drive a population of organisms.
// The grid is a flat array of optional organism slots indexed y*W+x; a
// single RWMutex guards it, so mutation (Tick) is always serial while
// read-only inspection may run concurrently with other inspection but
// never with a Tick in progress.
package world

import (
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/dnesting/avida/instruction"
	"github.com/dnesting/avida/internal/evostat"
	"github.com/dnesting/avida/internal/log"
	"github.com/dnesting/avida/organism"
	"github.com/dnesting/avida/task"
)

// gridWidth and gridHeight define the canonical torus size, local to this
// package.
const (
	gridWidth  = 60
	gridHeight = 60
)

// cyclesPerOrganism is the per-tick execution budget constant K in
// C_total = K * max(N, 1).
const cyclesPerOrganism = 30

// maxCyclesPerOrganism is the hard per-organism, per-tick safety cap.
const maxCyclesPerOrganism = 500

// World owns the grid, the per-cell task detectors, and the scheduler RNG.
// Organisms are never shared between cells.
type World struct {
	mu sync.RWMutex

	width, height int
	cells         []*organism.Organism
	detectors     []*task.Detector

	rng *rand.Rand

	CopyMutationRate float64
	InsertionRate    float64
	DeletionRate     float64
	DeathMethod      int
	AgeLimit         uint64
	PreferEmpty      bool

	totalUpdates uint64
	totalBirths  uint64
	totalDeaths  uint64
}

// New returns an empty 60x60 torus with the default configuration, seeded
// from the wall clock.
func New() *World {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded is like New but seeds the scheduler RNG explicitly, so that
// given identical injections and configuration, tick outcomes are fully
// reproducible.
func NewSeeded(seed int64) *World {
	n := gridWidth * gridHeight
	return &World{
		width:            gridWidth,
		height:           gridHeight,
		cells:            make([]*organism.Organism, n),
		detectors:        make([]*task.Detector, n),
		rng:              rand.New(rand.NewSource(seed)),
		CopyMutationRate: 0.0075,
		InsertionRate:    0,
		DeletionRate:     0,
		DeathMethod:      2,
		AgeLimit:         20,
		PreferEmpty:      true,
	}
}

func clip(v, max int) int {
	v %= max
	if v < 0 {
		v += max
	}
	return v
}

func (w *World) offset(x, y int) int {
	return clip(y, w.height)*w.width + clip(x, w.width)
}

// Dimensions returns the grid's (width, height).
func (w *World) Dimensions() (int, int) {
	return w.width, w.height
}

// Inject places o at the given coordinates if they are in bounds and
// currently empty. It reports ok=false on any programmatic misuse (out of
// bounds, already occupied) without changing any state.
func (w *World) Inject(o *organism.Organism, x, y int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if x < 0 || x >= w.width || y < 0 || y >= w.height {
		return false
	}
	idx := y*w.width + x
	if w.cells[idx] != nil {
		return false
	}
	o.X, o.Y = x, y
	w.cells[idx] = o
	w.detectors[idx] = task.NewDetector()
	return true
}

// InjectAncestor places a fresh copy of the canonical ancestor genome into
// a uniformly chosen empty cell. It reports ok=false if the grid is full.
func (w *World) InjectAncestor() bool {
	return w.injectRandom(organism.NewAncestor())
}

// InjectAncestorWithTasks is like InjectAncestor but uses the task-capable
// ancestor genome.
func (w *World) InjectAncestorWithTasks() bool {
	return w.injectRandom(organism.NewAncestorWithTasks())
}

func (w *World) injectRandom(o *organism.Organism) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	var empties []int
	for i, c := range w.cells {
		if c == nil {
			empties = append(empties, i)
		}
	}
	if len(empties) == 0 {
		return false
	}
	idx := empties[w.rng.Intn(len(empties))]
	o.X, o.Y = idx%w.width, idx/w.width
	w.cells[idx] = o
	w.detectors[idx] = task.NewDetector()
	return true
}

// Clear empties the grid. Configuration, counters and the scheduler RNG are
// left untouched.
func (w *World) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.cells {
		w.cells[i] = nil
		w.detectors[i] = nil
	}
}

// Tick advances the world by one update: it computes the merit-proportional
// cycle budget, visits living cells in randomized order, applies age death,
// drives each organism's CPU for its allotted cycles, and places any
// offspring produced along the way.
func (w *World) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	type slot struct {
		idx int
		org *organism.Organism
	}
	totalMerit := 0.0
	var living []slot
	for i, o := range w.cells {
		if o != nil {
			totalMerit += o.Merit
			living = append(living, slot{i, o})
		}
	}
	if totalMerit == 0 {
		return
	}

	n := len(living)
	if n < 1 {
		n = 1
	}
	cTotal := float64(cyclesPerOrganism * n)
	cyclesPerMerit := cTotal / totalMerit

	w.rng.Shuffle(len(living), func(i, j int) {
		living[i], living[j] = living[j], living[i]
	})

	for _, s := range living {
		idx, o := s.idx, s.org
		if w.cells[idx] != o {
			// Killed or overwritten earlier in this same tick. A newborn
			// occupying this cell is not scanned until the next tick; the
			// coordinate list was fixed before execution began.
			continue
		}

		if o.AgeLimitReached(w.DeathMethod, w.AgeLimit) {
			w.killAt(idx)
			continue
		}

		cycles := int(cyclesPerMerit * o.Merit)
		if cycles < 1 {
			cycles = 1
		}
		if cycles > maxCyclesPerOrganism {
			cycles = maxCyclesPerOrganism
		}

		px, py := idx%w.width, idx/w.width
		det := w.detectors[idx]

		for c := 0; c < cycles; c++ {
			if w.cells[idx] != o {
				break // the parent's own cell was overwritten by its offspring
			}
			if o.Step(w.rng, det, w.CopyMutationRate) {
				if child, ok := o.Divide(w.InsertionRate, w.DeletionRate, w.rng); ok {
					w.place(child, px, py)
				}
			}
		}
	}

	w.totalUpdates++
}

type coord struct{ x, y int }

func (w *World) neighbors(x, y int) []coord {
	out := make([]coord, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out = append(out, coord{clip(x+dx, w.width), clip(y+dy, w.height)})
		}
	}
	return out
}

// place applies the division placement policy for a newly divided child
// whose parent occupies (px, py).
func (w *World) place(child *organism.Organism, px, py int) {
	nbrs := w.neighbors(px, py)
	w.rng.Shuffle(len(nbrs), func(i, j int) { nbrs[i], nbrs[j] = nbrs[j], nbrs[i] })

	target := nbrs[0]
	if w.PreferEmpty {
		for _, c := range nbrs {
			if w.cells[w.offset(c.x, c.y)] == nil {
				target = c
				break
			}
		}
	}

	idx := w.offset(target.x, target.y)
	if w.cells[idx] != nil {
		w.totalDeaths++
	}
	child.X, child.Y = target.x, target.y
	w.cells[idx] = child
	w.detectors[idx] = task.NewDetector()
	w.totalBirths++
}

func (w *World) killAt(idx int) {
	w.cells[idx] = nil
	w.detectors[idx] = nil
	w.totalDeaths++
}

// TotalUpdates, TotalBirths and TotalDeaths report the lifetime scheduler
// counters.
func (w *World) TotalUpdates() uint64 { w.mu.RLock(); defer w.mu.RUnlock(); return w.totalUpdates }
func (w *World) TotalBirths() uint64  { w.mu.RLock(); defer w.mu.RUnlock(); return w.totalBirths }
func (w *World) TotalDeaths() uint64  { w.mu.RLock(); defer w.mu.RUnlock(); return w.totalDeaths }

// Population returns the number of living organisms.
func (w *World) Population() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.populationLocked()
}

func (w *World) populationLocked() int {
	n := 0
	for _, o := range w.cells {
		if o != nil {
			n++
		}
	}
	return n
}

// Stats is a snapshot of the population-level reductions: average genome
// size, average merit, average fitness (merit divided by gestation cycles,
// or merit itself when the organism has not gestated yet) and a histogram
// of how many living organisms have completed each of the 9 logic tasks.
type Stats struct {
	Population        int
	AverageGenomeSize float64
	AverageMerit      float64
	AverageFitness    float64
	TaskHistogram     [task.Count]int
}

// Stats computes the population reductions by partitioning the grid into
// contiguous chunks of cells, one per worker, and reducing each
// concurrently, then combining the
// partials. The read lock held for the duration blocks out any concurrent
// Tick, so the parallel reads never overlap the serial mutation phase.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.statsLocked()
}

func (w *World) statsLocked() Stats {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	n := len(w.cells)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		return Stats{}
	}

	type partial struct {
		genomeSizes []float64
		merits      []float64
		fitnesses   []float64
		histogram   [task.Count]int
	}
	partials := make([]partial, workers)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for wi := 0; wi < workers; wi++ {
		start := wi * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(wi, start, end int) {
			defer wg.Done()
			p := &partials[wi]
			for _, o := range w.cells[start:end] {
				if o == nil {
					continue
				}
				p.genomeSizes = append(p.genomeSizes, float64(len(o.Genome)))
				p.merits = append(p.merits, o.Merit)
				if o.GestationCycles == 0 {
					p.fitnesses = append(p.fitnesses, o.Merit)
				} else {
					p.fitnesses = append(p.fitnesses, o.Merit/float64(o.GestationCycles))
				}
				for t := 0; t < task.Count; t++ {
					if o.TasksCompleted&(uint16(1)<<uint(t)) != 0 {
						p.histogram[t]++
					}
				}
			}
		}(wi, start, end)
	}
	wg.Wait()

	var genomeSizes, merits, fitnesses []float64
	var histogram [task.Count]int
	for _, p := range partials {
		genomeSizes = append(genomeSizes, p.genomeSizes...)
		merits = append(merits, p.merits...)
		fitnesses = append(fitnesses, p.fitnesses...)
		for t := 0; t < task.Count; t++ {
			histogram[t] += p.histogram[t]
		}
	}

	return Stats{
		Population:        len(merits),
		AverageGenomeSize: evostat.Mean(genomeSizes),
		AverageMerit:      evostat.Mean(merits),
		AverageFitness:    evostat.Mean(fitnesses),
		TaskHistogram:     histogram,
	}
}

// AverageGenomeSize, AverageMerit, AverageFitness and TaskHistogram are
// single-reduction conveniences over Stats, for callers that only need one
// figure and would rather not hold onto the whole snapshot.
func (w *World) AverageGenomeSize() float64 { return w.Stats().AverageGenomeSize }
func (w *World) AverageMerit() float64      { return w.Stats().AverageMerit }
func (w *World) AverageFitness() float64    { return w.Stats().AverageFitness }
func (w *World) TaskHistogram() [task.Count]int {
	return w.Stats().TaskHistogram
}

// CellView is a read-only snapshot of one occupied grid cell, for external
// inspection (the viewer, debug CLI, diagnostics).
type CellView struct {
	Genome          string
	Generation      uint32
	Merit           float64
	InstructionAge  uint64
	GestationCycles uint64
	OffspringCount  uint32
	TasksCompleted  uint16

	Registers                         [3]int32
	Stack1, Stack2                    []int32
	InputBuffer, OutputBuffer         []int32
	IP, ReadHead, WriteHead, FlowHead int
	Gestating                         bool
	CopyProgress                      int
}

// At returns a snapshot of the organism at (x, y), or ok=false if the
// coordinates are out of bounds or the cell is empty.
func (w *World) At(x, y int) (CellView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if x < 0 || x >= w.width || y < 0 || y >= w.height {
		return CellView{}, false
	}
	o := w.cells[y*w.width+x]
	if o == nil {
		return CellView{}, false
	}
	return CellView{
		Genome:          instruction.GenomeString(o.Genome),
		Generation:      o.Generation,
		Merit:           o.Merit,
		InstructionAge:  o.InstructionCount,
		GestationCycles: o.GestationCycles,
		OffspringCount:  o.OffspringCount,
		TasksCompleted:  o.TasksCompleted,
		Registers:       o.CPU.Registers,
		Stack1:          append([]int32(nil), o.CPU.Stack1...),
		Stack2:          append([]int32(nil), o.CPU.Stack2...),
		InputBuffer:     append([]int32(nil), o.CPU.InputBuffer...),
		OutputBuffer:    append([]int32(nil), o.CPU.OutputBuffer...),
		IP:              o.CPU.IP,
		ReadHead:        o.CPU.ReadHeadPos,
		WriteHead:       o.CPU.WriteHeadPos,
		FlowHead:        o.CPU.FlowHeadPos,
		Gestating:       o.ChildGenome != nil,
		CopyProgress:    o.CopyProgress,
	}, true
}

// FailureCounts reports the lifetime diagnostic counters behind the debug
// event log: informational only, with no effect on simulation semantics.
type FailureCounts struct {
	HAllocWarnings  uint64
	HCopyFailures   uint64
	HDivideFailures uint64
	Divisions       uint64
}

// FailureCounts returns the process-wide diagnostic counters. They are not
// scoped to this World specifically, but are exposed here so a caller
// driving a single World doesn't need to import internal/log directly.
func (w *World) FailureCounts() FailureCounts {
	return FailureCounts{
		HAllocWarnings:  log.HAllocWarnings.Load(),
		HCopyFailures:   log.HCopyFailures.Load(),
		HDivideFailures: log.HDivideFailures.Load(),
		Divisions:       log.Divisions.Load(),
	}
}
