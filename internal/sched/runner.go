// Package sched runs one repeating job per subscription key on a fixed
// cadence. Keys map to cancellable cron entries; the chat layer owns the
// key naming.
package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "arissbot/pkg/logx"
)

var ErrExists = errors.New("sched: job already exists")

type Runner struct {
	log  logx.Logger
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func New(log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		log:     log,
		cron:    cron.New(),
		entries: map[string]cron.EntryID{},
	}
}

func (r *Runner) Start() {
	r.cron.Start()
	r.log.Debug("runner started")
}

// Stop halts scheduling and waits for in-flight jobs, bounded by ctx.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn("runner stop timed out; jobs may still be running")
	}
}

// Add schedules job to run every interval under the given key. The key must
// not already be scheduled. robfig/cron's constant-delay schedule rounds
// intervals below one second up to one second.
func (r *Runner) Add(key string, every time.Duration, job func()) error {
	if job == nil {
		return errors.New("sched: nil job")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return ErrExists
	}
	id := r.cron.Schedule(cron.Every(every), cron.FuncJob(job))
	r.entries[key] = id
	r.log.Info("job scheduled", logx.String("key", key), logx.Duration("every", every))
	return nil
}

// Remove cancels the job for key. It reports whether a job was removed.
func (r *Runner) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.entries[key]
	if !ok {
		return false
	}
	r.cron.Remove(id)
	delete(r.entries, key)
	r.log.Info("job removed", logx.String("key", key))
	return true
}

// Has reports whether a job is scheduled for key.
func (r *Runner) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Len returns the number of scheduled jobs.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
