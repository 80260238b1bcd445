// Package model contains the analysis job and report types passed between
// the service, the queue, the workers and the report store.
package model

import (
	"encoding/json"
	"time"

	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/encounter"
	"github.com/okian/fightlog/internal/domain/results"
)

// Job is one submitted combat log awaiting analysis.
type Job struct {
	ID        string            `json:"id"`
	Profile   string            `json:"profile"`
	Encounter encounter.Spec    `json:"encounter"`
	Events    []json.RawMessage `json:"events"`
}

// Status is the lifecycle stage of a report.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Report is the stored outcome of a job.
type Report struct {
	ID          string          `json:"id"`
	Profile     string          `json:"profile"`
	FightID     int             `json:"fight_id"`
	Status      Status          `json:"status"`
	Result      *results.Result `json:"result,omitempty"`
	Stats       dispatch.Stats  `json:"stats"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	CompletedAt time.Time       `json:"completed_at,omitzero"`
}

// NewReport creates the queued report of job.
func NewReport(job Job, now time.Time) Report {
	return Report{
		ID:          job.ID,
		Profile:     job.Profile,
		FightID:     job.Encounter.FightID,
		Status:      StatusQueued,
		SubmittedAt: now,
	}
}

// Complete marks the report done with res.
func (r Report) Complete(res *results.Result, stats dispatch.Stats, now time.Time) Report {
	r.Status = StatusDone
	r.Result = res
	r.Stats = stats
	r.Error = ""
	r.CompletedAt = now
	return r
}

// Fail marks the report failed with err.
func (r Report) Fail(err error, stats dispatch.Stats, now time.Time) Report {
	r.Status = StatusFailed
	r.Result = nil
	r.Stats = stats
	r.Error = err.Error()
	r.CompletedAt = now
	return r
}
