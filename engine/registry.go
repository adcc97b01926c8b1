// Copyright 2026 Paperflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package engine

import (
	"context"
	"fmt"
	"sync"
)

// handle tracks the cooperative pause state of one active run. Pausing only
// takes effect at node boundaries; a node that is already executing finishes
// first.
type handle struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// Pause requests suspension at the next node boundary. Pausing a paused run
// is a no-op.
func (h *handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.paused {
		return
	}
	h.paused = true
	h.resume = make(chan struct{})
}

// Resume releases a paused run. Resuming a running run is a no-op.
func (h *handle) Resume() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.paused {
		return
	}
	h.paused = false
	close(h.resume)
}

// pauseRequested reports whether the run should suspend at the next
// boundary.
func (h *handle) pauseRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

// awaitResume blocks until the run is resumed or the context ends.
func (h *handle) awaitResume(ctx context.Context) error {
	h.mu.Lock()
	if !h.paused {
		h.mu.Unlock()
		return nil
	}
	resume := h.resume
	h.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// registry tracks the handles of in-flight runs. A run's handle exists only
// while its event stream is open; pause and resume on anything else report
// ErrRunNotFound.
type registry struct {
	mu   sync.Mutex
	runs map[string]*handle
}

func newRegistry() *registry {
	return &registry{runs: make(map[string]*handle)}
}

func (r *registry) register(runID string) *handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &handle{}
	r.runs[runID] = h
	return h
}

func (r *registry) release(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.runs[runID]; ok {
		// Never leave a goroutine parked on a handle being discarded.
		h.Resume()
		delete(r.runs, runID)
	}
}

func (r *registry) pause(runID string) error {
	r.mu.Lock()
	h, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	h.Pause()
	return nil
}

func (r *registry) resume(runID string) error {
	r.mu.Lock()
	h, ok := r.runs[runID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	h.Resume()
	return nil
}
