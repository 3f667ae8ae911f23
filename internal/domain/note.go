package domain

import (
	"strings"
	"time"
)

type MomentType string

const (
	MomentSmallWin MomentType = "small-win"
	MomentBigWin   MomentType = "big-win"
	MomentPeople   MomentType = "people"
	MomentHealth   MomentType = "health"
	MomentWork     MomentType = "work"
	MomentLearning MomentType = "learning"
	MomentOther    MomentType = "other"
)

// MomentTypes lists the fixed categories in display order.
var MomentTypes = []MomentType{
	MomentSmallWin,
	MomentBigWin,
	MomentPeople,
	MomentHealth,
	MomentWork,
	MomentLearning,
	MomentOther,
}

var momentLabels = map[MomentType]string{
	MomentSmallWin: "Small Win",
	MomentBigWin:   "Big Win",
	MomentPeople:   "People",
	MomentHealth:   "Health",
	MomentWork:     "Work",
	MomentLearning: "Learning",
	MomentOther:    "Other",
}

func (m MomentType) Label() string {
	if l, ok := momentLabels[m]; ok {
		return l
	}
	return string(m)
}

func (m MomentType) Valid() bool {
	_, ok := momentLabels[m]
	return ok
}

// MoodLabels is indexed by mood-1.
var MoodLabels = [5]string{"Rough", "Meh", "Okay", "Good", "Great"}

func MoodLabel(mood int) string {
	if mood < 1 || mood > 5 {
		return ""
	}
	return MoodLabels[mood-1]
}

// ReplayThreshold is the number of notes needed to unlock the year replay.
const ReplayThreshold = 10

type Note struct {
	ID         string     `json:"id" yaml:"id"`
	UserID     string     `json:"user_id,omitempty" yaml:"-"`
	WeekKey    string     `json:"week_key" yaml:"week_key"`
	Title      string     `json:"title,omitempty" yaml:"title,omitempty"`
	Body       string     `json:"body" yaml:"-"`
	Mood       int        `json:"mood" yaml:"mood"`
	MomentType MomentType `json:"moment_type" yaml:"moment_type"`
	Tags       []string   `json:"tags" yaml:"tags,omitempty"`
	IsBackfill bool       `json:"is_backfill" yaml:"is_backfill"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a copy that shares no slices with n.
func (n Note) Clone() Note {
	c := n
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	return c
}

type CreateNoteRequest struct {
	WeekKey    string     `json:"week_key" validate:"required,weekkey"`
	Title      string     `json:"title" validate:"max=200"`
	Body       string     `json:"body" validate:"required"`
	Mood       int        `json:"mood" validate:"required,min=1,max=5"`
	MomentType MomentType `json:"moment_type" validate:"required,oneof=small-win big-win people health work learning other"`
	Tags       []string   `json:"tags" validate:"max=20,dive,required,max=40"`
	IsBackfill bool       `json:"is_backfill"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

type UpdateNoteRequest struct {
	Title      *string     `json:"title" validate:"omitempty,max=200"`
	Body       *string     `json:"body" validate:"omitnil,min=1"`
	Mood       *int        `json:"mood" validate:"omitempty,min=1,max=5"`
	MomentType *MomentType `json:"moment_type" validate:"omitempty,oneof=small-win big-win people health work learning other"`
	Tags       *[]string   `json:"tags" validate:"omitempty,max=20,dive,required,max=40"`
}

// Normalize trims the title and body and cleans the tags. Validation runs on
// the normalized request, so a blank body is refused.
func (r *CreateNoteRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	r.Tags = NormalizeTags(r.Tags)
}

func (r *UpdateNoteRequest) Normalize() {
	r.Title = trimmed(r.Title)
	r.Body = trimmed(r.Body)
	if r.Tags != nil {
		tags := NormalizeTags(*r.Tags)
		r.Tags = &tags
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// NormalizeTags trims whitespace, empties and duplicates while keeping
// first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
