package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidex/candidex/internal/record"
)

func sampleCandidate() record.Candidate {
	return record.Candidate{
		CandidateID: "cand-001",
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Location:    "London, UK",
		Headline:    "Engineer",
		Stage:       "phone_screen",
		Resume: record.ParsedResume{
			Positions: []record.Position{
				{
					Org:     "Analytical Engines Ltd",
					Title:   "Staff Engineer",
					Summary: "Designed computation pipelines.",
					Start:   &record.Date{Year: 2019, Month: 3},
					End:     &record.Date{Year: 2022, Month: 11},
				},
				{
					Org:   "Babbage & Co",
					Title: "Engineer",
					Start: &record.Date{Year: 2016},
				},
			},
			Schools: []record.School{
				{Org: "University of London", Degree: "BSc", Field: "Mathematics"},
			},
		},
	}
}

func TestSplit_Ordering(t *testing.T) {
	chunks := Split(sampleCandidate())
	require.Len(t, chunks, 4)

	assert.Equal(t, TypeSummary, chunks[0].Type)
	assert.Equal(t, TypePosition, chunks[1].Type)
	assert.Equal(t, TypePosition, chunks[2].Type)
	assert.Equal(t, TypeEducation, chunks[3].Type)

	// Positions keep source order.
	assert.Equal(t, "Analytical Engines Ltd", chunks[1].Metadata.Company)
	assert.Equal(t, "Babbage & Co", chunks[2].Metadata.Company)
}

func TestSplit_Idempotent(t *testing.T) {
	first := Split(sampleCandidate())
	second := Split(sampleCandidate())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func TestSplit_ContentExcludesIdentifyingFields(t *testing.T) {
	for _, c := range Split(sampleCandidate()) {
		assert.NotContains(t, c.Content, "Ada Lovelace")
		assert.NotContains(t, c.Content, "ada@example.com")
		assert.NotContains(t, c.Content, "phone_screen")
		assert.NotContains(t, c.Content, "Engineer\n", "headline must not leak into content")
	}
}

func TestSplit_SummaryCarriesOnlyLocation(t *testing.T) {
	chunks := Split(sampleCandidate())
	assert.Equal(t, "Location: London, UK", chunks[0].Content)
}

func TestSplit_DateFormatting(t *testing.T) {
	chunks := Split(sampleCandidate())
	assert.Equal(t, "Mar 2019", chunks[1].Metadata.StartDate)
	assert.Equal(t, "Nov 2022", chunks[1].Metadata.EndDate)
	// Year-only start, open end.
	assert.Equal(t, "2016", chunks[2].Metadata.StartDate)
	assert.Equal(t, "Present", chunks[2].Metadata.EndDate)
}

func TestSplit_SkipsEmptyPositions(t *testing.T) {
	rec := sampleCandidate()
	rec.Resume.Positions = append(rec.Resume.Positions, record.Position{Location: "Remote"})
	chunks := Split(rec)
	for _, c := range chunks {
		if c.Type == TypePosition {
			assert.NotEqual(t, "Remote", c.Metadata.Location)
		}
	}
}

func TestSplit_KeepsSchoolWithOnlyField(t *testing.T) {
	rec := sampleCandidate()
	rec.Resume.Schools = append(rec.Resume.Schools, record.School{Field: "Philosophy"})
	chunks := Split(rec)

	var education []Chunk
	for _, c := range chunks {
		if c.Type == TypeEducation {
			education = append(education, c)
		}
	}
	require.Len(t, education, 2)
	assert.Equal(t, "Philosophy", education[1].Metadata.Degree)
	assert.Contains(t, education[1].Content, "Philosophy")
}

func TestSplit_TotalOnEmptyRecord(t *testing.T) {
	chunks := Split(record.Candidate{})
	require.Len(t, chunks, 1)
	assert.Equal(t, TypeSummary, chunks[0].Type)
	assert.Equal(t, "Location: ", chunks[0].Content)
}

func TestMakeID_DistinctAcrossTypesAndSeq(t *testing.T) {
	seen := map[string]bool{}
	for _, typ := range AllTypes {
		for seq := 0; seq < 3; seq++ {
			id := MakeID("cand-001", typ, seq)
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
			assert.Len(t, id, 32)
			assert.False(t, strings.ContainsAny(id, " \n"))
		}
	}
}
