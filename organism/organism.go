// Package organism implements the per-cell replicator: a genome plus its
// virtual CPU, and the reproduction state machine (Idle -> Gestating ->
// Divide-requested) that grows, mutates and eventually emits offspring.
// Organism holds no reference to the world or grid that contains it; all
// world-level effects (placement, death) are driven by return values from
// Step and Divide, never by callbacks.
package organism

import (
	"math/rand"

	"github.com/dnesting/avida/cpu"
	"github.com/dnesting/avida/instruction"
	"github.com/dnesting/avida/internal/log"
	"github.com/dnesting/avida/task"
)

// MinMerit and MaxMerit bound an organism's merit multiplier.
const (
	MinMerit = 1.0
	MaxMerit = 1000.0
)

// AncestorGenome is the canonical 50-instruction ancestor: allocate,
// search, copy-loop, label-gated divide, and head rewind.
const AncestorGenome = "rutyabsvacccccccccccccccccccccccccccccccccccccccbc"

// TaskCapableAncestorGenome adds IO, stack and arithmetic opcodes in the
// padding region as raw material for task evolution.
const TaskCapableAncestorGenome = "rutyabsvagqfgqpgqnocccccccccccccccccccccccccccccbc"

// Organism is a single replicator occupying one world cell.
type Organism struct {
	Genome []instruction.Instruction
	CPU    cpu.CPU

	Merit            float64
	InstructionCount uint64
	GestationCycles  uint64
	Generation       uint32
	OffspringCount   uint32

	// TasksCompleted is a 9-bit mask; bit i is set once task.Task(i) has
	// been credited, so it can never be credited twice in this lifetime.
	TasksCompleted uint16

	// ChildGenome is nil while Idle. h-alloc allocates it; h-copy fills
	// it; a successful division consumes it and leaves it nil again.
	ChildGenome  []instruction.Instruction
	CopyProgress int

	X, Y int
}

// New returns a freshly injected organism with the given genome, CPU
// zeroed, merit at the minimum, and generation 0.
func New(genome []instruction.Instruction) *Organism {
	return &Organism{
		Genome: genome,
		CPU:    *cpu.New(),
		Merit:  MinMerit,
	}
}

// NewAncestor parses AncestorGenome and returns a fresh ancestor organism.
// The genome string is canonical and ParseGenome cannot fail on it; a parse
// error here indicates a corrupted constant, not caller misuse, so it
// panics rather than returning an error.
func NewAncestor() *Organism {
	g, err := instruction.ParseGenome(AncestorGenome)
	if err != nil {
		panic(err)
	}
	return New(g)
}

// NewAncestorWithTasks is like NewAncestor but uses the task-capable
// ancestor genome.
func NewAncestorWithTasks() *Organism {
	g, err := instruction.ParseGenome(TaskCapableAncestorGenome)
	if err != nil {
		panic(err)
	}
	return New(g)
}

// GenomeString renders the organism's current genome as a letter string.
func (o *Organism) GenomeString() string {
	return instruction.GenomeString(o.Genome)
}

// AgeLimitReached reports whether the organism should die under the given
// death method and age-limit configuration.
func (o *Organism) AgeLimitReached(deathMethod int, ageLimit uint64) bool {
	switch deathMethod {
	case 1:
		return o.InstructionCount >= ageLimit
	case 2:
		return o.InstructionCount >= ageLimit*uint64(len(o.Genome))
	default:
		return false
	}
}

// Step executes exactly one instruction from the genome at the current
// instruction pointer, mutating CPU state, genome-under-construction, merit
// and task credit as needed. It reports divideRequested=true if the
// executed instruction was h-divide; the caller (world) is responsible for
// gating and placing the division via Divide.
func (o *Organism) Step(rng *rand.Rand, det *task.Detector, copyMutationRate float64) (divideRequested bool) {
	n := len(o.Genome)
	if n == 0 {
		return false
	}
	ip := o.CPU.IP
	inst := o.Genome[ip]

	o.InstructionCount++
	o.GestationCycles++

	switch inst {
	case instruction.NopA, instruction.NopB, instruction.NopC:
		// no effect

	case instruction.IfNEqu:
		templateStart := cpu.AdvanceHead(ip, n)
		template := cpu.ReadTemplate(o.Genome, templateStart)
		if int(o.CPU.Registers[1]) == len(template) {
			o.CPU.SkipNext = true
		}

	case instruction.IfLess:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 2) // default CX
		if o.CPU.Registers[1] >= o.CPU.Registers[regIdx] {
			o.CPU.SkipNext = true
		}

	case instruction.Pop:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 1) // default BX
		o.CPU.Registers[regIdx] = o.CPU.Pop()

	case instruction.Push:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 1) // default BX
		o.CPU.Push(o.CPU.Registers[regIdx])

	case instruction.SwapStk:
		o.CPU.ActiveStack = !o.CPU.ActiveStack

	case instruction.Swap:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 2) // default CX
		o.CPU.Registers[1], o.CPU.Registers[regIdx] = o.CPU.Registers[regIdx], o.CPU.Registers[1]

	case instruction.ShiftR:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 1)
		o.CPU.Registers[regIdx] >>= 1

	case instruction.ShiftL:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 1)
		o.CPU.Registers[regIdx] <<= 1

	case instruction.Inc:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 1)
		o.CPU.Registers[regIdx]++

	case instruction.Dec:
		regIdx := cpu.RegisterFromNop(o.Genome, ip, 1)
		o.CPU.Registers[regIdx]--

	case instruction.Add:
		o.CPU.Registers[1] += o.CPU.Registers[2]

	case instruction.Sub:
		o.CPU.Registers[1] -= o.CPU.Registers[2]

	case instruction.Nand:
		o.CPU.Registers[1] = ^(o.CPU.Registers[1] & o.CPU.Registers[2])

	case instruction.IO:
		o.executeIO(rng, det)

	case instruction.HAlloc:
		o.executeHAlloc(n)

	case instruction.HDivide:
		if o.ChildGenome == nil {
			log.HDivideFailures.Add(1)
			log.Eventf("h-divide with no child allocated")
		} else {
			divideRequested = true
		}

	case instruction.HCopy:
		o.executeHCopy(rng, copyMutationRate, n)

	case instruction.HSearch:
		o.executeHSearch(ip, n)

	case instruction.MovHead:
		kind := cpu.HeadFromNop(o.Genome, ip)
		if kind == cpu.InstructionPointer {
			o.CPU.IP = cpu.MoveHead(o.CPU.FlowHeadPos, -1, n)
		} else {
			o.CPU.Set(kind, o.CPU.FlowHeadPos)
		}

	case instruction.JmpHead:
		kind := cpu.HeadFromNop(o.Genome, ip)
		cur := o.CPU.Get(kind)
		o.CPU.Set(kind, cpu.MoveHead(cur, int(o.CPU.Registers[2]), n))

	case instruction.GetHead:
		kind := cpu.HeadFromNop(o.Genome, ip)
		o.CPU.Registers[2] = int32(o.CPU.Get(kind))

	case instruction.IfLabel:
		o.executeIfLabel(ip, n)

	case instruction.SetFlow:
		o.CPU.FlowHeadPos = cpu.MoveHead(0, int(o.CPU.Registers[2]), n)
	}

	o.CPU.IP = cpu.AdvanceHead(o.CPU.IP, n)
	if o.CPU.SkipNext {
		o.CPU.IP = cpu.AdvanceHead(o.CPU.IP, n)
		o.CPU.SkipNext = false
	}
	return divideRequested
}

func (o *Organism) executeIO(rng *rand.Rand, det *task.Detector) {
	out := o.CPU.Registers[1]
	o.CPU.OutputBuffer = append(o.CPU.OutputBuffer, out)

	if tk, ok := det.CheckOutput(out); ok {
		bit := uint16(1) << uint(tk)
		if o.TasksCompleted&bit == 0 {
			o.TasksCompleted |= bit
			o.Merit *= tk.Multiplier()
			if o.Merit > MaxMerit {
				o.Merit = MaxMerit
			}
		}
	}

	var next int32
	if v, ok := o.CPU.PopInput(); ok {
		next = v
	} else {
		next = int32(rng.Uint32())
	}
	o.CPU.Registers[1] = next
	det.AddInput(next)
}

func (o *Organism) executeHAlloc(n int) {
	if o.ChildGenome != nil {
		log.HAllocWarnings.Add(1)
		log.Eventf("h-alloc while already gestating; keeping existing child")
		return
	}
	child := make([]instruction.Instruction, n)
	for i := range child {
		child[i] = instruction.NopA
	}
	o.ChildGenome = child
	o.CPU.ReadHeadPos = 0
	o.CPU.WriteHeadPos = 0
	o.CopyProgress = 0
}

func (o *Organism) executeHCopy(rng *rand.Rand, copyMutationRate float64, n int) {
	if o.ChildGenome == nil {
		log.HCopyFailures.Add(1)
		log.Eventf("h-copy with no child allocated")
		o.CPU.ReadHeadPos = cpu.AdvanceHead(o.CPU.ReadHeadPos, n)
		o.CPU.WriteHeadPos++
		return
	}

	readInst := o.Genome[o.CPU.ReadHeadPos]
	if rng.Float64() < copyMutationRate {
		readInst = instruction.Random(rng.Intn)
	}

	if o.CPU.WriteHeadPos < len(o.ChildGenome) {
		o.ChildGenome[o.CPU.WriteHeadPos] = readInst
		if o.CPU.WriteHeadPos+1 > o.CopyProgress {
			o.CopyProgress = o.CPU.WriteHeadPos + 1
		}
		if readInst.IsNop() {
			o.CPU.CopiedLabel = append(o.CPU.CopiedLabel, readInst)
		} else {
			o.CPU.CopiedLabel = o.CPU.CopiedLabel[:0]
		}
	} else {
		log.HCopyFailures.Add(1)
		log.Eventf("h-copy write-head %d past child length %d", o.CPU.WriteHeadPos, len(o.ChildGenome))
	}

	o.CPU.ReadHeadPos = cpu.AdvanceHead(o.CPU.ReadHeadPos, n)
	o.CPU.WriteHeadPos++
}

func (o *Organism) executeHSearch(ip, n int) {
	templateStart := cpu.AdvanceHead(ip, n)
	distance, size, ok := cpu.SearchTemplate(o.Genome, ip)
	if ok {
		searchStart := cpu.AdvanceHead(templateStart+size-1, n)
		matchStart := (searchStart + distance) % n
		matchEnd := (matchStart + size) % n
		o.CPU.Registers[1] = int32(distance)
		o.CPU.Registers[2] = int32(size)
		o.CPU.FlowHeadPos = matchEnd
		return
	}

	template := cpu.ReadTemplate(o.Genome, templateStart)
	o.CPU.Registers[1] = 0
	o.CPU.Registers[2] = 0
	o.CPU.FlowHeadPos = (templateStart + len(template)) % n
}

func (o *Organism) executeIfLabel(ip, n int) {
	templateStart := cpu.AdvanceHead(ip, n)
	template := cpu.ReadTemplate(o.Genome, templateStart)

	matched := false
	if len(template) > 0 && len(o.CPU.CopiedLabel) >= len(template) {
		matched = true
		suffix := o.CPU.CopiedLabel[len(o.CPU.CopiedLabel)-len(template):]
		for i, want := range template {
			complement, _ := want.ComplementNop()
			if suffix[i] != complement {
				matched = false
				break
			}
		}
	}

	// Consume the template regardless of whether it matched. The standard
	// post-instruction advance (applied by the caller) moves IP the rest
	// of the way to templateStart+len(template), mirroring mov-head's
	// IP-target compensation.
	o.CPU.IP = cpu.MoveHead(templateStart+len(template), -1, n)
	if !matched {
		o.CPU.SkipNext = true
	}
}

// indelInsert returns a copy of genome with inst inserted at pos (which may
// equal len(genome), appending at the end).
func indelInsert(genome []instruction.Instruction, pos int, inst instruction.Instruction) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, len(genome)+1)
	out = append(out, genome[:pos]...)
	out = append(out, inst)
	out = append(out, genome[pos:]...)
	return out
}

// indelDelete returns a copy of genome with the instruction at pos removed.
func indelDelete(genome []instruction.Instruction, pos int) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, len(genome)-1)
	out = append(out, genome[:pos]...)
	out = append(out, genome[pos+1:]...)
	return out
}

// Divide attempts the division the most recent h-divide instruction
// requested. It reports ok=false (retaining the child, remaining
// Gestating) unless CopyProgress has reached the ceiling-divide gate,
// ⌈len(Genome)/2⌉. On success it returns the newborn and resets the
// parent's reproduction-cycle state back to Idle; the parent's registers,
// stacks, merit and task credit are untouched by division.
func (o *Organism) Divide(insertionRate, deletionRate float64, rng *rand.Rand) (*Organism, bool) {
	gate := (len(o.Genome) + 1) / 2 // ceil(len/2)
	if o.ChildGenome == nil || o.CopyProgress < gate {
		log.HDivideFailures.Add(1)
		log.Eventf("h-divide rejected: copy progress %d below gate %d", o.CopyProgress, gate)
		return nil, false
	}

	child := make([]instruction.Instruction, o.CopyProgress)
	copy(child, o.ChildGenome[:o.CopyProgress])

	if rng.Float64() < insertionRate {
		pos := rng.Intn(len(child) + 1)
		child = indelInsert(child, pos, instruction.Random(rng.Intn))
	}
	if rng.Float64() < deletionRate && len(child) > 0 {
		pos := rng.Intn(len(child))
		child = indelDelete(child, pos)
	}
	if len(child) == 0 {
		child = []instruction.Instruction{instruction.NopC}
	}

	offspring := New(child)
	offspring.Generation = o.Generation + 1

	o.ChildGenome = nil
	o.CopyProgress = 0
	o.GestationCycles = 0
	o.OffspringCount++
	o.CPU.IP = 0
	o.CPU.ReadHeadPos = 0
	o.CPU.WriteHeadPos = 0
	o.CPU.FlowHeadPos = 0
	o.CPU.CopiedLabel = nil
	o.CPU.SkipNext = false

	log.Divisions.Add(1)
	return offspring, true
}
