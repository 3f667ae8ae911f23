package ledger

import (
	"fmt"
	"slices"
	"strings"

	"empty-jar/internal/domain"

	"golang.org/x/text/cases"
)

// NoteFilter narrows the collection. Zero fields match everything.
type NoteFilter struct {
	Query      string
	Mood       int
	MomentType domain.MomentType
	Tag        string
	Year       int
}

func (f NoteFilter) matches(n domain.Note, fold cases.Caser) bool {
	if f.Mood != 0 && n.Mood != f.Mood {
		return false
	}
	if f.MomentType != "" && n.MomentType != f.MomentType {
		return false
	}
	if f.Year != 0 && !strings.HasPrefix(n.WeekKey, yearPrefix(f.Year)) {
		return false
	}
	if f.Tag != "" {
		tag := fold.String(f.Tag)
		if !slices.ContainsFunc(n.Tags, func(t string) bool { return fold.String(t) == tag }) {
			return false
		}
	}
	if f.Query == "" {
		return true
	}

	q := fold.String(f.Query)
	if strings.Contains(fold.String(n.Title), q) || strings.Contains(fold.String(n.Body), q) {
		return true
	}
	return slices.ContainsFunc(n.Tags, func(t string) bool {
		return strings.Contains(fold.String(t), q)
	})
}

func yearPrefix(year int) string {
	return fmt.Sprintf("%04d-", year)
}

// Filter returns the notes matching f, ordered by week key. Text matching
// is case-insensitive over title, body and tags.
func (s *NoteStore) Filter(f NoteFilter) []domain.Note {
	fold := cases.Fold()
	var out []domain.Note
	for _, n := range s.Sorted() {
		if f.matches(n, fold) {
			out = append(out, n)
		}
	}
	return out
}

// AllTags returns every distinct tag in the collection, sorted.
func (s *NoteStore) AllTags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range s.notes {
		for _, t := range n.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}
