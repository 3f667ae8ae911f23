// Package export writes a user's notes out as JSON or as Markdown with YAML
// frontmatter, ordered by week.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"empty-jar/internal/domain"
	"empty-jar/internal/weekkey"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write dispatches on f.
func Write(w io.Writer, f Format, notes []domain.Note) error {
	switch f {
	case FormatJSON:
		return JSON(w, notes)
	case FormatMarkdown:
		return Markdown(w, notes)
	}
	return fmt.Errorf("unknown export format %q", f)
}

func sorted(notes []domain.Note) []domain.Note {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b domain.Note) int {
		return strings.Compare(a.WeekKey, b.WeekKey)
	})
	return out
}

type jsonDocument struct {
	ExportedAt time.Time     `json:"exported_at"`
	Count      int           `json:"count"`
	Notes      []domain.Note `json:"notes"`
}

func JSON(w io.Writer, notes []domain.Note) error {
	doc := jsonDocument{
		ExportedAt: time.Now().UTC(),
		Count:      len(notes),
		Notes:      sorted(notes),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

type frontmatter struct {
	domain.Note `yaml:",inline"`
	MoodLabel   string `yaml:"mood_label"`
	MomentLabel string `yaml:"moment_label"`
}

// Markdown writes one section per note: a frontmatter block followed by a
// heading naming the week and the note body.
func Markdown(w io.Writer, notes []domain.Note) error {
	var buf bytes.Buffer
	for i, n := range sorted(notes) {
		if i > 0 {
			buf.WriteString("\n")
		}
		if err := writeNote(&buf, n); err != nil {
			return fmt.Errorf("export %s: %w", n.WeekKey, err)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeNote(buf *bytes.Buffer, n domain.Note) error {
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	fm := frontmatter{
		Note:        n,
		MoodLabel:   domain.MoodLabel(n.Mood),
		MomentLabel: n.MomentType.Label(),
	}
	if err := enc.Encode(fm); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	buf.WriteString("---\n\n")

	fmt.Fprintf(buf, "# %s\n\n", heading(n))
	buf.WriteString(strings.TrimRight(n.Body, "\n"))
	buf.WriteString("\n")
	return nil
}

func heading(n domain.Note) string {
	label := "Week " + n.WeekKey
	if start, end, err := weekkey.Bounds(n.WeekKey, time.UTC); err == nil {
		label = fmt.Sprintf("%s (%s to %s)", label, start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	}
	if n.Title != "" {
		label += ": " + n.Title
	}
	return label
}
