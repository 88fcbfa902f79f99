package chunk

import (
	"fmt"
	"strings"

	"github.com/candidex/candidex/internal/record"
)

// Split converts one candidate record into its ordered chunk sequence:
// the summary chunk first, then position chunks in source order, then
// education chunks in source order. Downstream display relies on this
// ordering.
//
// Split is total: missing fields degrade to empty strings and never
// produce an error. A position with no org, title, and summary is
// skipped entirely.
func Split(rec record.Candidate) []Chunk {
	chunks := make([]Chunk, 0, 1+len(rec.Resume.Positions)+len(rec.Resume.Schools))

	chunks = append(chunks, Chunk{
		ID:          MakeID(rec.CandidateID, TypeSummary, 0),
		Type:        TypeSummary,
		CandidateID: rec.CandidateID,
		Seq:         0,
		Content:     fmt.Sprintf("Location: %s", rec.Location),
		Metadata:    Metadata{Location: rec.Location},
	})

	for i, pos := range rec.Resume.Positions {
		if pos.Org == "" && pos.Title == "" && pos.Summary == "" {
			continue
		}
		start := pos.Start.Format()
		end := pos.End.FormatEnd()
		content := fmt.Sprintf(
			"Company: %s\nTitle: %s\nDuration: %s - %s\nLocation: %s\n\nExperience Details:\n%s",
			pos.Org, pos.Title, start, end, pos.Location, pos.Summary,
		)
		chunks = append(chunks, Chunk{
			ID:          MakeID(rec.CandidateID, TypePosition, i),
			Type:        TypePosition,
			CandidateID: rec.CandidateID,
			Seq:         i,
			Content:     content,
			Metadata: Metadata{
				Company:   pos.Org,
				Title:     pos.Title,
				StartDate: start,
				EndDate:   end,
				Location:  pos.Location,
			},
		})
	}

	for i, school := range rec.Resume.Schools {
		if school.Org == "" && school.Degree == "" && school.Field == "" {
			continue
		}
		degree := school.Degree
		if school.Field != "" {
			degree = strings.TrimSpace(degree + " " + school.Field)
		}
		chunks = append(chunks, Chunk{
			ID:          MakeID(rec.CandidateID, TypeEducation, i),
			Type:        TypeEducation,
			CandidateID: rec.CandidateID,
			Seq:         i,
			Content:     fmt.Sprintf("School: %s\nDegree: %s", school.Org, degree),
			Metadata: Metadata{
				School: school.Org,
				Degree: degree,
			},
		})
	}

	return chunks
}

// SplitAll chunks a whole dataset, preserving candidate order.
func SplitAll(records []record.Candidate) []Chunk {
	var chunks []Chunk
	for _, rec := range records {
		chunks = append(chunks, Split(rec)...)
	}
	return chunks
}
