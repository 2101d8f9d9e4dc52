// Package worker runs a batch of independent jobs on a fixed number of
// goroutines.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// ProcessFunc handles one job.
type ProcessFunc[T any] func(ctx context.Context, job T) error

// Failure records a job that returned an error.
type Failure[T any] struct {
	Job      T
	WorkerID int
	Err      error
}

// Summary is the outcome of a Run.
type Summary[T any] struct {
	Succeeded int
	Failures  []Failure[T]
}

// Manager distributes jobs to workers
type Manager[T any] struct {
	name        string
	workerCount int
	// progressEvery logs progress after this many successes.
	progressEvery int
}

// NewManager creates a new manager. A worker count below one runs a
// single worker.
func NewManager[T any](name string, workerCount int) *Manager[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Manager[T]{name: name, workerCount: workerCount, progressEvery: 25}
}

// Run processes every job and waits for all workers. Jobs not yet started
// when ctx is cancelled are recorded as failures with ctx.Err(). The error
// is non-nil only when every job failed.
func (m *Manager[T]) Run(ctx context.Context, jobs []T, process ProcessFunc[T]) (Summary[T], error) {
	jobChan := make(chan T, len(jobs))
	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)

	type result struct {
		job      T
		workerID int
		err      error
	}
	resultsChan := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < m.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				err := ctx.Err()
				if err == nil {
					err = process(ctx, job)
				}
				resultsChan <- result{job: job, workerID: workerID, err: err}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Single reader, so the counters need no lock.
	var summary Summary[T]
	for res := range resultsChan {
		if res.err != nil {
			summary.Failures = append(summary.Failures, Failure[T]{Job: res.job, WorkerID: res.workerID, Err: res.err})
			log.Printf("%s: worker %d: error: %v", m.name, res.workerID, res.err)
			continue
		}
		summary.Succeeded++
		if summary.Succeeded%m.progressEvery == 0 {
			log.Printf("%s: progress %d successful, %d errors", m.name, summary.Succeeded, len(summary.Failures))
		}
	}

	log.Printf("%s: completed %d successful, %d errors (total: %d)", m.name, summary.Succeeded, len(summary.Failures), len(jobs))

	if len(summary.Failures) > 0 && summary.Succeeded == 0 {
		return summary, fmt.Errorf("all %d jobs failed", len(summary.Failures))
	}
	return summary, nil
}
