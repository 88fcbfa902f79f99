package corpus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidex/candidex/internal/chunk"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := ArtifactPath(dir, "engineering")

	original := testCorpus(t)
	builtAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Save(ctx, path, original, SaveInfo{Model: "voyage-2", Dims: 3, BuiltAt: builtAt}))

	loaded, info, err := Load(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, "voyage-2", info.Model)
	assert.Equal(t, 3, info.Dims)
	assert.Equal(t, builtAt, info.BuiltAt)

	require.Equal(t, original.Len(), loaded.Len())
	for i := 0; i < original.Len(); i++ {
		assert.Equal(t, original.Chunk(i), loaded.Chunk(i))
	}

	// Same query, same ranking.
	query := []float32{1, 0, 0}
	want, err := original.Search(query, 4, nil)
	require.NoError(t, err)
	got, err := loaded.Search(query, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoad_MetadataSurvives(t *testing.T) {
	ctx := context.Background()
	path := ArtifactPath(t.TempDir(), "sales")

	ch := chunk.Chunk{
		ID:          chunk.MakeID("c1", chunk.TypePosition, 0),
		Type:        chunk.TypePosition,
		CandidateID: "c1",
		Content:     "Company: Acme\nTitle: AE",
		Metadata: chunk.Metadata{
			Company:   "Acme",
			Title:     "AE",
			StartDate: "Mar 2019",
			EndDate:   "Present",
		},
	}
	c, err := New([]chunk.Chunk{ch}, [][]float32{{0.5, 0.5}})
	require.NoError(t, err)

	require.NoError(t, Save(ctx, path, c, SaveInfo{Model: "voyage-2"}))
	loaded, _, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ch.Metadata, loaded.Chunk(0).Metadata)
}

func TestLoad_MissingArtifact_IsNotBuilt(t *testing.T) {
	_, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.corpus.db"))
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestSave_ReplacesPreviousArtifact(t *testing.T) {
	ctx := context.Background()
	path := ArtifactPath(t.TempDir(), "engineering")

	first, err := New(
		[]chunk.Chunk{testChunk("c1", chunk.TypeSummary, 0, "Location: Berlin")},
		[][]float32{{1, 0}})
	require.NoError(t, err)
	require.NoError(t, Save(ctx, path, first, SaveInfo{Model: "voyage-2"}))

	second := testCorpus(t)
	require.NoError(t, Save(ctx, path, second, SaveInfo{Model: "voyage-2"}))

	loaded, _, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, second.Len(), loaded.Len())
}

func TestArtifactPath_PerDataset(t *testing.T) {
	a := ArtifactPath("/data", "engineering")
	b := ArtifactPath("/data", "sales")
	assert.NotEqual(t, a, b)
	assert.Equal(t, filepath.Join("/data", "engineering.corpus.db"), a)
}
