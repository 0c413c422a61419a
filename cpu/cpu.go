// Package cpu implements the virtual CPU an organism's genome executes on:
// three wrapping 32-bit registers, two bounded stacks, four genome-relative
// heads, and the template primitives: ReadTemplate, used by h-search,
// if-label and if-n-equ, and SearchTemplate, used by h-search. The CPU is a
// plain data container; it never reaches back into
// the organism or world that owns it.
package cpu

import "github.com/dnesting/avida/instruction"

// StackDepth is the maximum depth of either data stack.
const StackDepth = 10

// InputBufferCap bounds the CPU's pending-input FIFO.
const InputBufferCap = 3

// HeadKind identifies one of the CPU's four genome-relative heads.
type HeadKind int

const (
	InstructionPointer HeadKind = iota // selected by nop-A
	ReadHead                           // selected by nop-B
	WriteHead                          // selected by nop-C
	FlowHead                           // not directly selectable by a nop
)

// CPU holds all per-organism virtual-machine state.
// Heads other than WriteHead are always valid positions modulo the parent
// genome's length; WriteHead indexes the child genome under construction
// and may advance up to the child's length.
type CPU struct {
	Registers [3]int32 // AX, BX, CX

	Stack1, Stack2 []int32
	ActiveStack    bool // false selects Stack1, true selects Stack2

	IP, ReadHeadPos, WriteHeadPos, FlowHeadPos int

	InputBuffer  []int32
	OutputBuffer []int32

	// CopiedLabel is the trace of nops most recently written by h-copy,
	// reset whenever a non-nop instruction is copied.
	CopiedLabel []instruction.Instruction

	// SkipNext is a one-shot flag set by conditional instructions; the
	// caller driving execution must consume and clear it before decoding
	// the following instruction.
	SkipNext bool
}

// New returns a freshly zeroed CPU, as used for both a newly injected
// ancestor and a newly divided offspring.
func New() *CPU {
	return &CPU{}
}

// activeStack returns a pointer-stable view of whichever stack is
// currently active, for Push/Pop to share logic against.
func (c *CPU) activeStack() *[]int32 {
	if c.ActiveStack {
		return &c.Stack2
	}
	return &c.Stack1
}

// Push moves v onto the active stack. Pushes beyond StackDepth are
// silently dropped, matching Avida's bounded-stack semantics.
func (c *CPU) Push(v int32) {
	s := c.activeStack()
	if len(*s) >= StackDepth {
		return
	}
	*s = append(*s, v)
}

// Pop removes and returns the top of the active stack, or 0 if empty.
func (c *CPU) Pop() int32 {
	s := c.activeStack()
	n := len(*s)
	if n == 0 {
		return 0
	}
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v
}

// PushInput enqueues v onto the pending-input FIFO, dropping the oldest
// entry if the buffer is already at InputBufferCap.
func (c *CPU) PushInput(v int32) {
	if len(c.InputBuffer) >= InputBufferCap {
		c.InputBuffer = c.InputBuffer[1:]
	}
	c.InputBuffer = append(c.InputBuffer, v)
}

// PopInput dequeues the oldest pending input. ok is false if none remain.
func (c *CPU) PopInput() (v int32, ok bool) {
	if len(c.InputBuffer) == 0 {
		return 0, false
	}
	v = c.InputBuffer[0]
	c.InputBuffer = c.InputBuffer[1:]
	return v, true
}

// AdvanceHead returns head+1 mod genomeLen.
func AdvanceHead(head, genomeLen int) int {
	return (head + 1) % genomeLen
}

// MoveHead displaces head by offset (which may be negative), wrapping
// correctly modulo genomeLen.
func MoveHead(head, offset, genomeLen int) int {
	n := (head + offset) % genomeLen
	if n < 0 {
		n += genomeLen
	}
	return n
}

// Get returns the current position of the named head.
func (c *CPU) Get(kind HeadKind) int {
	switch kind {
	case InstructionPointer:
		return c.IP
	case ReadHead:
		return c.ReadHeadPos
	case WriteHead:
		return c.WriteHeadPos
	case FlowHead:
		return c.FlowHeadPos
	default:
		return c.IP
	}
}

// Set moves the named head to pos.
func (c *CPU) Set(kind HeadKind, pos int) {
	switch kind {
	case InstructionPointer:
		c.IP = pos
	case ReadHead:
		c.ReadHeadPos = pos
	case WriteHead:
		c.WriteHeadPos = pos
	case FlowHead:
		c.FlowHeadPos = pos
	}
}

// HeadFromNop inspects the instruction immediately following pos in genome
// and returns the head it selects (nop-A/B/C -> IP/ReadHead/WriteHead). If
// the following instruction isn't a nop, it returns InstructionPointer,
// the default.
func HeadFromNop(genome []instruction.Instruction, pos int) HeadKind {
	if len(genome) == 0 {
		return InstructionPointer
	}
	next := genome[AdvanceHead(pos, len(genome))]
	switch next {
	case instruction.NopA:
		return InstructionPointer
	case instruction.NopB:
		return ReadHead
	case instruction.NopC:
		return WriteHead
	default:
		return InstructionPointer
	}
}

// RegisterFromNop inspects the instruction following pos and returns the
// register index it selects, or def if that instruction isn't a nop.
func RegisterFromNop(genome []instruction.Instruction, pos int, def int) int {
	if len(genome) == 0 {
		return def
	}
	next := genome[AdvanceHead(pos, len(genome))]
	if idx, ok := next.RegisterIndex(); ok {
		return idx
	}
	return def
}

// ReadTemplate reads a maximal run of nops in genome starting at pos,
// stopping at the first non-nop or after reading genomeLen instructions
// (guarding against an all-nop circular genome).
func ReadTemplate(genome []instruction.Instruction, pos int) []instruction.Instruction {
	var template []instruction.Instruction
	p := pos
	for i := 0; i < len(genome); i++ {
		inst := genome[p]
		if !inst.IsNop() {
			break
		}
		template = append(template, inst)
		p = AdvanceHead(p, len(genome))
	}
	return template
}

// SearchTemplate implements h-search's addressing primitive: it reads the
// template starting immediately after pos, computes its cyclic complement,
// and linearly scans the rest of the genome (wrapping once) for the first
// occurrence of that complement. It returns the distance from the position
// just after the source template to the start of the match, and the size
// of the matched template, or ok=false if there was no template to search
// for or no match was found.
//
// The scan wraps all the way round, so it also passes over the source
// template's own positions; the template never matches there, because every
// nop differs from its complement.
func SearchTemplate(genome []instruction.Instruction, pos int) (distance int, size int, ok bool) {
	n := len(genome)
	if n == 0 {
		return 0, 0, false
	}
	templateStart := AdvanceHead(pos, n)
	template := ReadTemplate(genome, templateStart)
	if len(template) == 0 {
		return 0, 0, false
	}

	complement := make([]instruction.Instruction, 0, len(template))
	for _, inst := range template {
		c, _ := inst.ComplementNop()
		complement = append(complement, c)
	}

	searchStart := AdvanceHead(templateStart+len(template)-1, n)
	for d := 1; d <= n; d++ {
		start := (searchStart + d) % n
		if matchesAt(genome, start, complement) {
			return d, len(complement), true
		}
	}
	return 0, 0, false
}

func matchesAt(genome []instruction.Instruction, start int, pattern []instruction.Instruction) bool {
	n := len(genome)
	for i, want := range pattern {
		if genome[(start+i)%n] != want {
			return false
		}
	}
	return true
}
