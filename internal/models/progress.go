package models

import "time"

// JobKind distinguishes the two kinds of background jobs the
// JobRunner executes; Progress is tracked separately per kind.
type JobKind string

const (
	JobKindCrawl JobKind = "crawl"
	JobKindEmbed JobKind = "embed"
)

// JobState is the JobRunner's one-shot state machine:
// idle -> running -> completed|error, resettable by starting again.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobError     JobState = "error"
)

// Progress is the shared, process-local snapshot for one job kind.
// Writers are the job worker goroutine and the start/finish
// transitions; readers always see a complete, untorn snapshot.
type Progress struct {
	Kind         JobKind
	State        JobState
	Total        int
	Completed    int
	Success      int
	Errors       int
	CurrentItem  string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	ErrorMessage string
}

// Clone returns a value copy safe to hand to a reader without
// exposing the runner's internal pointer.
func (p Progress) Clone() Progress {
	cp := p
	if p.StartedAt != nil {
		t := *p.StartedAt
		cp.StartedAt = &t
	}
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		cp.FinishedAt = &t
	}
	return cp
}
