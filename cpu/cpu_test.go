package cpu

import (
	"testing"

	"github.com/dnesting/avida/instruction"
)

func mustParse(t *testing.T, s string) []instruction.Instruction {
	t.Helper()
	g, err := instruction.ParseGenome(s)
	if err != nil {
		t.Fatalf("ParseGenome(%q): %v", s, err)
	}
	return g
}

func TestAdvanceHeadWraps(t *testing.T) {
	if got := AdvanceHead(4, 5); got != 0 {
		t.Errorf("AdvanceHead(4,5) = %d, want 0", got)
	}
	if got := AdvanceHead(0, 5); got != 1 {
		t.Errorf("AdvanceHead(0,5) = %d, want 1", got)
	}
}

func TestMoveHeadNegativeWrap(t *testing.T) {
	cases := []struct{ head, offset, n, want int }{
		{0, -1, 5, 4},
		{2, -3, 5, 4},
		{4, 1, 5, 0},
		{0, 0, 5, 0},
		{3, -8, 5, 0},
	}
	for _, c := range cases {
		if got := MoveHead(c.head, c.offset, c.n); got != c.want {
			t.Errorf("MoveHead(%d,%d,%d) = %d, want %d", c.head, c.offset, c.n, got, c.want)
		}
	}
}

func TestPushPopStackDepthCap(t *testing.T) {
	c := New()
	for i := int32(0); i < StackDepth+5; i++ {
		c.Push(i)
	}
	if len(c.Stack1) != StackDepth {
		t.Fatalf("stack depth = %d, want %d", len(c.Stack1), StackDepth)
	}
	top := c.Pop()
	if top != StackDepth-1 {
		t.Errorf("top of stack = %d, want %d", top, StackDepth-1)
	}
}

func TestPopEmptyStackReturnsZero(t *testing.T) {
	c := New()
	if v := c.Pop(); v != 0 {
		t.Errorf("Pop() on empty stack = %d, want 0", v)
	}
}

func TestActiveStackSelector(t *testing.T) {
	c := New()
	c.Push(1)
	c.ActiveStack = true
	c.Push(2)
	if len(c.Stack1) != 1 || len(c.Stack2) != 1 {
		t.Fatalf("expected one entry per stack, got %d/%d", len(c.Stack1), len(c.Stack2))
	}
	if v := c.Pop(); v != 2 {
		t.Errorf("Pop() from active stack 2 = %d, want 2", v)
	}
}

func TestInputBufferFIFOCap(t *testing.T) {
	c := New()
	for i := int32(0); i < InputBufferCap+2; i++ {
		c.PushInput(i)
	}
	if len(c.InputBuffer) != InputBufferCap {
		t.Fatalf("input buffer len = %d, want %d", len(c.InputBuffer), InputBufferCap)
	}
	v, ok := c.PopInput()
	if !ok || v != 2 {
		t.Errorf("PopInput() = (%d, %v), want (2, true)", v, ok)
	}
}

func TestPopInputEmpty(t *testing.T) {
	c := New()
	_, ok := c.PopInput()
	if ok {
		t.Error("PopInput() on empty buffer should return ok=false")
	}
}

func TestReadTemplateStopsAtNonNop(t *testing.T) {
	genome := mustParse(t, "aabcn")
	tmpl := ReadTemplate(genome, 0)
	want := []instruction.Instruction{instruction.NopA, instruction.NopA, instruction.NopB, instruction.NopC}
	if len(tmpl) != len(want) {
		t.Fatalf("template = %v, want %v", tmpl, want)
	}
	for i := range want {
		if tmpl[i] != want[i] {
			t.Fatalf("template = %v, want %v", tmpl, want)
		}
	}
}

func TestReadTemplateEmptyWhenStartsOnNonNop(t *testing.T) {
	genome := mustParse(t, "nabc")
	if tmpl := ReadTemplate(genome, 0); len(tmpl) != 0 {
		t.Errorf("expected empty template, got %v", tmpl)
	}
}

func TestSearchTemplateFindsComplement(t *testing.T) {
	// "u" at 0, template "ab" at 1-2 (complement "bc"), then filler, then
	// the complement "bc" starting at position 6.
	genome := mustParse(t, "uabnnnbc")
	d, size, ok := SearchTemplate(genome, 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if size != 2 {
		t.Errorf("size = %d, want 2", size)
	}
	// searchStart is AdvanceHead(2, n) = 3; match begins at index 6, so d=3.
	if d != 3 {
		t.Errorf("distance = %d, want 3", d)
	}
}

func TestSearchTemplateNoMatch(t *testing.T) {
	genome := mustParse(t, "uabnnnnn")
	_, _, ok := SearchTemplate(genome, 0)
	if ok {
		t.Error("expected no match")
	}
}

func TestSearchTemplateEmptyTemplate(t *testing.T) {
	genome := mustParse(t, "unnnn")
	_, _, ok := SearchTemplate(genome, 0)
	if ok {
		t.Error("expected no match when no template follows")
	}
}

func TestSearchTemplateDoesNotMatchItself(t *testing.T) {
	// No nop equals its complement, so a template must not match at its own
	// position even though the wrap-around scan passes over it.
	genome := mustParse(t, "uaaa")
	// template is "aaa", complement is "bbb"; with no "bbb" present, no match.
	_, _, ok := SearchTemplate(genome, 0)
	if ok {
		t.Error("expected no match, template complement does not appear")
	}
}

func TestHeadFromNopDefaultsToIP(t *testing.T) {
	genome := mustParse(t, "vn")
	if got := HeadFromNop(genome, 0); got != InstructionPointer {
		t.Errorf("HeadFromNop = %v, want InstructionPointer", got)
	}
}

func TestHeadFromNopSelectsReadHead(t *testing.T) {
	genome := mustParse(t, "vb")
	if got := HeadFromNop(genome, 0); got != ReadHead {
		t.Errorf("HeadFromNop = %v, want ReadHead", got)
	}
}

func TestRegisterFromNopDefault(t *testing.T) {
	genome := mustParse(t, "in")
	if got := RegisterFromNop(genome, 0, 2); got != 2 {
		t.Errorf("RegisterFromNop = %d, want default 2", got)
	}
}

func TestRegisterFromNopSelectsRegister(t *testing.T) {
	genome := mustParse(t, "ic")
	if got := RegisterFromNop(genome, 0, 2); got != 2 {
		t.Errorf("RegisterFromNop = %d, want 2 (nop-c)", got)
	}
	genome = mustParse(t, "ia")
	if got := RegisterFromNop(genome, 0, 2); got != 0 {
		t.Errorf("RegisterFromNop = %d, want 0 (nop-a)", got)
	}
}

func TestGetSetHead(t *testing.T) {
	c := New()
	c.Set(FlowHead, 7)
	if got := c.Get(FlowHead); got != 7 {
		t.Errorf("Get(FlowHead) = %d, want 7", got)
	}
	c.Set(ReadHead, 3)
	if got := c.Get(ReadHead); got != 3 {
		t.Errorf("Get(ReadHead) = %d, want 3", got)
	}
}
