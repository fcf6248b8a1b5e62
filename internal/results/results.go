package results

import (
	"context"
	"log/slog"
)

// Entry records what an existing or skipped outcome referred to.
type Entry struct {
	Info   string `json:"info"`
	Reason string `json:"reason,omitempty"`
}

// Results accumulates per-record outcomes for one import run. Not safe for concurrent use.
type Results struct {
	created  int
	existing []Entry
	failed   int
	skipped  []Entry
}

func New() *Results {
	return &Results{}
}

func (r *Results) AddCreated() {
	r.created++
}

func (r *Results) AddExisting(info string) {
	r.existing = append(r.existing, Entry{Info: info})
}

func (r *Results) AddFailed() {
	r.failed++
}

func (r *Results) AddSkipped(info, reason string) {
	r.skipped = append(r.skipped, Entry{Info: info, Reason: reason})
}

func (r *Results) Created() int  { return r.created }
func (r *Results) Existing() int { return len(r.existing) }
func (r *Results) Failed() int   { return r.failed }
func (r *Results) Skipped() int  { return len(r.skipped) }

func (r *Results) Total() int {
	return r.created + len(r.existing) + r.failed + len(r.skipped)
}

// Summary is the read-once view handed back to the caller at the end of a run.
type Summary struct {
	Total        int      `json:"total"`
	Created      int      `json:"created"`
	Existing     int      `json:"existing"`
	Failed       int      `json:"failed"`
	Skipped      int      `json:"skipped"`
	ExistingInfo []Entry  `json:"existing_info,omitempty"`
	SkippedInfo  []Entry  `json:"skipped_info,omitempty"`
	WebsiteIDs   []int    `json:"website_ids,omitempty"`
	StoreIDs     []int    `json:"store_ids,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

func (r *Results) Summary() Summary {
	return Summary{
		Total:        r.Total(),
		Created:      r.created,
		Existing:     len(r.existing),
		Failed:       r.failed,
		Skipped:      len(r.skipped),
		ExistingInfo: append([]Entry(nil), r.existing...),
		SkippedInfo:  append([]Entry(nil), r.skipped...),
	}
}

// Log writes the summary counts at info level, or warn when anything failed.
func (s Summary) Log(ctx context.Context, what string) {
	level := slog.LevelInfo
	if s.Failed > 0 {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, what+" complete",
		"total", s.Total,
		"created", s.Created,
		"existing", s.Existing,
		"failed", s.Failed,
		"skipped", s.Skipped,
	)
}
