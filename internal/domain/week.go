package domain

import "time"

// WeekInfo is derived for the timeline and never persisted.
type WeekInfo struct {
	WeekKey    string    `json:"week_key"`
	WeekNumber int       `json:"week_number"`
	Year       int       `json:"year"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	HasNote    bool      `json:"has_note"`
	Note       *Note     `json:"note,omitempty"`
	IsCurrent  bool      `json:"is_current"`
	IsPast     bool      `json:"is_past"`
	IsFuture   bool      `json:"is_future"`
}
