package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidex/candidex/internal/chunk"
)

func TestManager_GetBeforePublish_IsNotBuilt(t *testing.T) {
	m := NewManager()

	_, err := m.Get("engineering")
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestManager_PublishThenGet(t *testing.T) {
	m := NewManager()
	c := testCorpus(t)

	m.Publish("engineering", c)

	got, err := m.Get("engineering")
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = m.Get("sales")
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestManager_Republish_SwapsWithoutDisturbingReaders(t *testing.T) {
	m := NewManager()
	old := testCorpus(t)
	m.Publish("engineering", old)

	held, err := m.Get("engineering")
	require.NoError(t, err)

	replacement, err := New(
		[]chunk.Chunk{testChunk("c9", chunk.TypeSummary, 0, "Location: Oslo")},
		[][]float32{{1, 0}})
	require.NoError(t, err)
	m.Publish("engineering", replacement)

	// The held reference still serves the old snapshot.
	assert.Same(t, old, held)
	assert.Equal(t, 4, held.Len())

	current, err := m.Get("engineering")
	require.NoError(t, err)
	assert.Same(t, replacement, current)
}

func TestManager_Names_SortedPublishedOnly(t *testing.T) {
	m := NewManager()
	c := testCorpus(t)

	m.Publish("sales", c)
	m.Publish("engineering", c)

	assert.Equal(t, []string{"engineering", "sales"}, m.Names())
}
