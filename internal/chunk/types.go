// Package chunk turns candidate records into independently retrievable
// text units. Chunk content is what gets embedded and matched lexically;
// identifying fields (name, email, stage, headline) are deliberately kept
// out of content so they never influence relevance.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Type classifies a chunk by the resume section it was derived from.
type Type string

const (
	// TypeSummary carries only the candidate's location, so that
	// geography-only queries match without noise from job content.
	TypeSummary Type = "summary"

	// TypePosition is one job entry: company, title, and description.
	TypePosition Type = "position"

	// TypeEducation is one school entry: institution and degree.
	TypeEducation Type = "education"
)

// AllTypes lists every chunk type in canonical order.
var AllTypes = []Type{TypeSummary, TypePosition, TypeEducation}

// Metadata holds structured fields returned with results but never
// embedded. Used for display and weighted-criteria keyword boosting.
type Metadata struct {
	Company   string `json:"company,omitempty"`
	Title     string `json:"title,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Location  string `json:"location,omitempty"`
	School    string `json:"school,omitempty"`
	Degree    string `json:"degree,omitempty"`
}

// Chunk is the atomic retrievable unit.
type Chunk struct {
	// ID is derived from (CandidateID, Type, Seq), so re-chunking the
	// same source always produces the same IDs.
	ID          string
	Type        Type
	CandidateID string
	// Seq is the per-type sequence index within the candidate.
	Seq      int
	Content  string
	Metadata Metadata
}

// MakeID builds the stable chunk identifier.
func MakeID(candidateID string, t Type, seq int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", candidateID, t, seq)))
	return hex.EncodeToString(h[:16])
}
