package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/brewgridgo/internal/build"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
)

// ExecutionRecord holds the start and end times of a single build.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// RecordingBuilder is a stand-in for build.Executor that sleeps instead of
// building and records when each formula ran.
type RecordingBuilder struct {
	// Fail makes the build of a formula return the given error.
	Fail map[string]error

	sleep   time.Duration
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	jobs    map[string]build.Job
	order   []string
}

// NewRecordingBuilder creates a builder whose builds take sleep.
func NewRecordingBuilder(sleep time.Duration) *RecordingBuilder {
	return &RecordingBuilder{
		Fail:    map[string]error{},
		sleep:   sleep,
		records: make(map[string]*ExecutionRecord),
		jobs:    make(map[string]build.Job),
	}
}

// Build implements the builder interface of the executor.
func (b *RecordingBuilder) Build(ctx context.Context, job build.Job) (*build.Result, error) {
	name := job.Formula.Name
	start := time.Now()
	b.mu.Lock()
	b.jobs[name] = job
	b.mu.Unlock()

	select {
	case <-time.After(b.sleep):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := b.Fail[name]; err != nil {
		return nil, err
	}
	if job.Staged != nil {
		job.Staged()
	}

	b.mu.Lock()
	b.records[name] = &ExecutionRecord{Start: start, End: time.Now()}
	b.order = append(b.order, name)
	b.mu.Unlock()
	return &build.Result{
		Prefix:  "/brew/Cellar/" + name + "/" + job.Formula.Version,
		Receipt: &receipt.Receipt{Name: name, Version: job.Formula.Version, Dependencies: job.Deps},
	}, nil
}

// Record returns the timing of a successful build of name.
func (b *RecordingBuilder) Record(name string) (*ExecutionRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[name]
	return r, ok
}

// Job returns the job the builder received for name.
func (b *RecordingBuilder) Job(name string) (build.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[name]
	return j, ok
}

// Built returns the formulas built successfully, in completion order.
func (b *RecordingBuilder) Built() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}
