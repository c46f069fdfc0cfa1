package cron

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry binds a job to how often it runs.
type Entry struct {
	Job   Job
	Every time.Duration
}

// Registry keeps scheduled jobs in registration order.
type Registry struct {
	entries []Entry
	names   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register schedules job every interval. Job names must be unique because they key the leases.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return errors.New("job is required")
	}
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	if _, dup := r.names[job.Name()]; dup {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	r.names[job.Name()] = struct{}{}
	r.entries = append(r.entries, Entry{Job: job, Every: every})
	return nil
}

func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
