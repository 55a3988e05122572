package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7GeneratorProducesValidIDs(t *testing.T) {
	var gen UUIDv7Generator
	first, err := uuid.Parse(gen.Generate())
	require.NoError(t, err)
	second, err := uuid.Parse(gen.Generate())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, uuid.Version(7), first.Version())
}

func TestFixedIDGeneratorReplaysInOrder(t *testing.T) {
	gen := NewFixedIDGenerator("id-1", "id-2")
	assert.Equal(t, "id-1", gen.Generate())
	assert.Equal(t, "id-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestSequentialIDGeneratorIsDeterministic(t *testing.T) {
	a := NewSequentialIDGenerator()
	b := NewSequentialIDGenerator()
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
	assert.NotEqual(t, a.Generate(), NewSequentialIDGenerator().Generate())
}
