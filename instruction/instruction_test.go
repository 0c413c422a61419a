package instruction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	const all = "abcdefghijklmnopqrstuvwxyz"
	genome, err := ParseGenome(all)
	require.NoError(t, err)
	assert.Equal(t, all, GenomeString(genome))
}

func TestFromCharToCharIdentity(t *testing.T) {
	for c := byte('a'); c <= 'z'; c++ {
		inst, ok := FromChar(c)
		require.True(t, ok)
		assert.Equal(t, c, inst.Char())
	}
}

func TestFromCharUppercase(t *testing.T) {
	inst, ok := FromChar('R')
	require.True(t, ok)
	assert.Equal(t, HAlloc, inst)
}

func TestFromCharInvalid(t *testing.T) {
	_, ok := FromChar('1')
	assert.False(t, ok)
	_, ok = FromChar('!')
	assert.False(t, ok)
}

func TestParseGenomeInvalidCharacter(t *testing.T) {
	_, err := ParseGenome("abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'1'")
}

func TestParseGenomeEmpty(t *testing.T) {
	genome, err := ParseGenome("")
	require.NoError(t, err)
	assert.Empty(t, genome)
}

func TestComplementNopIsOrderThree(t *testing.T) {
	for _, nop := range []Instruction{NopA, NopB, NopC} {
		cur := nop
		for i := 0; i < 3; i++ {
			next, ok := cur.ComplementNop()
			require.True(t, ok)
			cur = next
		}
		assert.Equal(t, nop, cur)
	}
}

func TestComplementNopNonNop(t *testing.T) {
	_, ok := Add.ComplementNop()
	assert.False(t, ok)
	_, ok = HAlloc.ComplementNop()
	assert.False(t, ok)
}

func TestIsNop(t *testing.T) {
	assert.True(t, NopA.IsNop())
	assert.True(t, NopB.IsNop())
	assert.True(t, NopC.IsNop())
	assert.False(t, Add.IsNop())
	assert.False(t, IO.IsNop())
}

func TestRegisterIndex(t *testing.T) {
	idx, ok := NopA.RegisterIndex()
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = NopC.RegisterIndex()
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = Add.RegisterIndex()
	assert.False(t, ok)
}

func TestAncestorGenomeParses(t *testing.T) {
	const ancestor = "rutyabsvacccccccccccccccccccccccccccccccccccccccbc"
	genome, err := ParseGenome(ancestor)
	require.NoError(t, err)
	require.Len(t, genome, 50)
	assert.Equal(t, HAlloc, genome[0])
	assert.Equal(t, HSearch, genome[1])
	assert.Equal(t, HCopy, genome[2])
	assert.Equal(t, IfLabel, genome[3])
}

func TestInstructionCount(t *testing.T) {
	assert.Equal(t, 26, Count)
}
