package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidex/candidex/internal/chunk"
)

func positionChunk(candidateID string, seq int, company, title, content string) chunk.Chunk {
	return chunk.Chunk{
		ID:          chunk.MakeID(candidateID, chunk.TypePosition, seq),
		Type:        chunk.TypePosition,
		CandidateID: candidateID,
		Seq:         seq,
		Content:     content,
		Metadata:    chunk.Metadata{Company: company, Title: title},
	}
}

func newTestIndex(t *testing.T, chunks ...chunk.Chunk) *Index {
	t.Helper()
	idx, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.IndexChunks(context.Background(), chunks))
	return idx
}

func TestSearch_MatchesContent(t *testing.T) {
	idx := newTestIndex(t,
		positionChunk("c1", 0, "Acme", "Engineer", "built kubernetes operators in Go"),
		positionChunk("c2", 0, "Globex", "Analyst", "financial reporting and dashboards"),
	)

	hits, err := idx.Search(context.Background(), "kubernetes", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].CandidateID)
	assert.Positive(t, hits[0].Score)
}

func TestSearch_MatchesCompanyAndTitleFields(t *testing.T) {
	idx := newTestIndex(t,
		positionChunk("c1", 0, "Stripe", "Backend Engineer", "payments infrastructure"),
		positionChunk("c2", 0, "Acme", "Designer", "brand work"),
	)

	byCompany, err := idx.Search(context.Background(), "Stripe", 10)
	require.NoError(t, err)
	require.NotEmpty(t, byCompany)
	assert.Equal(t, "c1", byCompany[0].CandidateID)

	byTitle, err := idx.Search(context.Background(), "Designer", 10)
	require.NoError(t, err)
	require.NotEmpty(t, byTitle)
	assert.Equal(t, "c2", byTitle[0].CandidateID)
}

func TestSearch_ContentOutranksMetadataOnly(t *testing.T) {
	// "golang" in boosted content beats the same term in a title.
	idx := newTestIndex(t,
		positionChunk("c1", 0, "Acme", "golang", "java development"),
		positionChunk("c2", 0, "Globex", "Engineer", "golang development"),
	)

	hits, err := idx.Search(context.Background(), "golang", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c2", hits[0].CandidateID)
}

func TestSearch_EmptyQuery_ReturnsNothing(t *testing.T) {
	idx := newTestIndex(t, positionChunk("c1", 0, "Acme", "Engineer", "anything"))

	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_LimitRespected(t *testing.T) {
	chunks := make([]chunk.Chunk, 5)
	for i := range chunks {
		chunks[i] = positionChunk("c1", i, "Acme", "Engineer", "distributed systems work")
	}
	idx := newTestIndex(t, chunks...)

	hits, err := idx.Search(context.Background(), "distributed", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_ClosedIndex_IsUnavailable(t *testing.T) {
	idx := newTestIndex(t, positionChunk("c1", 0, "Acme", "Engineer", "anything"))
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), "anything", 10)
	require.ErrorIs(t, err, ErrUnavailable)

	err = idx.IndexChunks(context.Background(), []chunk.Chunk{positionChunk("c2", 0, "", "", "x")})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReset_DropsAllDocuments(t *testing.T) {
	idx := newTestIndex(t,
		positionChunk("c1", 0, "Acme", "Engineer", "one"),
		positionChunk("c1", 1, "Acme", "Engineer", "two"),
	)

	require.NoError(t, idx.Reset(context.Background()))

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNew_OnDiskReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexical.bleve")
	ctx := context.Background()

	idx, err := New(path)
	require.NoError(t, err)
	require.NoError(t, idx.IndexChunks(ctx, []chunk.Chunk{
		positionChunk("c1", 0, "Acme", "Engineer", "terraform modules"),
	}))
	require.NoError(t, idx.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	hits, err := reopened.Search(ctx, "terraform", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].CandidateID)
}
