// Package record defines the source candidate schema loaded from parsed
// resume datasets. Every field is optional: absent fields decode to zero
// values so downstream processing never has to guard against missing keys.
package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Candidate is one source record from a resume dataset.
type Candidate struct {
	CandidateID string       `json:"candidate_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Location    string       `json:"location"`
	Headline    string       `json:"headline"`
	Stage       string       `json:"stage"`
	Links       []string     `json:"links"`
	Resume      ParsedResume `json:"parsed_resume"`
}

// ParsedResume holds the structured sections of a parsed resume.
type ParsedResume struct {
	Positions []Position `json:"positions"`
	Schools   []School   `json:"schools"`
}

// Position is one job entry.
type Position struct {
	Org      string `json:"org"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Location string `json:"location"`
	Start    *Date  `json:"start"`
	End      *Date  `json:"end"`
}

// School is one education entry.
type School struct {
	Org    string `json:"org"`
	Degree string `json:"degree"`
	Field  string `json:"field"`
	Start  *Date  `json:"start"`
	End    *Date  `json:"end"`
}

// Date is a partial date: year always, month optional.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Format renders a date as "Jan 2020", "2020", or "" when absent.
func (d *Date) Format() string {
	if d == nil || d.Year == 0 {
		return ""
	}
	if d.Month >= 1 && d.Month <= 12 {
		return time.Date(d.Year, time.Month(d.Month), 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
	}
	return fmt.Sprintf("%d", d.Year)
}

// FormatEnd renders an end date, using "Present" for open-ended positions.
func (d *Date) FormatEnd() string {
	if s := d.Format(); s != "" {
		return s
	}
	return "Present"
}

// Load reads a candidate dataset from a JSON file.
func Load(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Decode reads a candidate dataset from a reader.
func Decode(r io.Reader) ([]Candidate, error) {
	var candidates []Candidate
	if err := json.NewDecoder(r).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return candidates, nil
}
