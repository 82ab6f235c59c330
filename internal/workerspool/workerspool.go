// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs independent tasks in goroutines, with a limit on the number of tasks
// running at the same time.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool limits the number of tasks running in parallel.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time.
	// If 0 tasks are run inline, if negative there is no limit.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Should be signaled whenever numRunning is decreased.
	numRunning     int
}

// New returns a new Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	return NewWithParallelism(runtime.NumCPU())
}

// NewWithParallelism returns a new Pool that runs at most maxParallelism tasks at the same time.
// If maxParallelism is 0 tasks are run inline, and if it is negative there is no limit.
func NewWithParallelism(maxParallelism int) *Pool {
	w := &Pool{maxParallelism: maxParallelism}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// MaxParallelism returns the limit of tasks running at the same time. See NewWithParallelism.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	return w.maxParallelism >= 0 && w.numRunning >= w.maxParallelism
}

// WaitToStart waits until there is a worker available and starts the task in a goroutine.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
func (w *Pool) WaitToStart(task func()) {
	if w.maxParallelism < 0 {
		go task()
		return
	} else if w.maxParallelism == 0 {
		task()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.lockedRunTaskInGoroutine(task)
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with Pool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Signal()
		w.mu.Unlock()
	}()
}

// Map calls fn on each of the inputs using the pool, and waits for all of them to finish.
// The outputs are in the same order as the inputs.
func Map[In, Out any](w *Pool, inputs []In, fn func(In) Out) []Out {
	outputs := make([]Out, len(inputs))
	var wg sync.WaitGroup
	for ii, input := range inputs {
		wg.Add(1)
		w.WaitToStart(func() {
			defer wg.Done()
			outputs[ii] = fn(input)
		})
	}
	wg.Wait()
	return outputs
}
