// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline holds the stage registry for the validation service.
//
// A stage is a plain function rather than an interface hierarchy, so a
// future model-backed analyzer plugs in without changing the
// orchestration contract. The pipeline is built once at startup,
// treated as read-only afterwards, and passed into the orchestrator
// explicitly instead of living in ambient global state.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// StageFunc analyzes one content item and returns a stage-local
// partial payload.
//
// Description:
//
//	Implementations must honor ctx cancellation: when the per-stage or
//	overall deadline fires, the stage's goroutine is abandoned and its
//	output replaced by a timed_out sentinel. Returning an error marks
//	the stage errored; any payload returned alongside the error is
//	still folded, so partial output survives stage failure.
//
// Thread Safety:
//
//	StageFuncs run concurrently and must not share mutable state.
type StageFunc func(ctx context.Context, content datatypes.ContentItem, vctx datatypes.ValidationContext) (datatypes.StagePayload, error)

// Registration is one registered stage with its execution settings.
type Registration struct {
	// ID is the unique stage identifier (e.g. crisis_detection).
	ID string

	// Fn is the stage function.
	Fn StageFunc

	// Timeout is the per-stage budget. The effective deadline for a
	// stage run is the tighter of this and the overall deadline.
	Timeout time.Duration

	// Priority orders stages for execution dispatch. Higher runs
	// first. Priority never causes a stage to be skipped; every
	// registered stage is attempted, subject to the overall deadline.
	Priority int

	// order is the stable registration sequence used to break
	// priority ties.
	order int
}

// Pipeline is the registry of detection stages.
//
// Thread Safety:
//
//	Pipeline is not synchronized. Register all stages during startup,
//	before handing the pipeline to the orchestrator; after that it is
//	read-only and safe for concurrent reads.
type Pipeline struct {
	stages  map[string]*Registration
	ordered []*Registration
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{stages: make(map[string]*Registration)}
}

// Register adds a stage to the pipeline.
//
// Re-registering an existing id replaces the stage function and
// settings but keeps the original registration order for tie-breaking.
// A non-positive timeout falls back to 100ms.
func (p *Pipeline) Register(id string, fn StageFunc, timeout time.Duration, priority int) {
	if fn == nil {
		return
	}
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	if existing, ok := p.stages[id]; ok {
		existing.Fn = fn
		existing.Timeout = timeout
		existing.Priority = priority
		p.sortStages()
		return
	}
	reg := &Registration{
		ID:       id,
		Fn:       fn,
		Timeout:  timeout,
		Priority: priority,
		order:    len(p.ordered),
	}
	p.stages[id] = reg
	p.ordered = append(p.ordered, reg)
	p.sortStages()
}

// OrderedStages returns stage ids sorted by descending priority, ties
// broken by stable registration order.
func (p *Pipeline) OrderedStages() []string {
	ids := make([]string, len(p.ordered))
	for i, reg := range p.ordered {
		ids[i] = reg.ID
	}
	return ids
}

// Registrations returns the registered stages in execution order.
func (p *Pipeline) Registrations() []*Registration {
	out := make([]*Registration, len(p.ordered))
	copy(out, p.ordered)
	return out
}

// Len returns the number of registered stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// sortStages re-sorts after every Register so that reads never mutate
// pipeline state: once registration is done, OrderedStages and
// Registrations are pure and safe for concurrent callers.
func (p *Pipeline) sortStages() {
	sort.SliceStable(p.ordered, func(i, j int) bool {
		if p.ordered[i].Priority != p.ordered[j].Priority {
			return p.ordered[i].Priority > p.ordered[j].Priority
		}
		return p.ordered[i].order < p.ordered[j].order
	})
}

// RunStage executes one stage under its per-stage timeout.
//
// Description:
//
//	The stage runs in its own goroutine with a context bounded by the
//	tighter of the per-stage timeout and the caller's deadline. Timeout
//	is data, not an exception: an expired deadline yields a StageResult
//	with status timed_out, a stage panic yields status errored, and in
//	both cases the caller always receives a usable result value.
//
//	A cancelled stage's goroutine may keep running briefly after
//	RunStage returns; its eventual output is discarded.
func (p *Pipeline) RunStage(ctx context.Context, id string, content datatypes.ContentItem, vctx datatypes.ValidationContext) datatypes.StageResult {
	reg, ok := p.stages[id]
	if !ok {
		return datatypes.StageResult{
			StageID: id,
			Status:  datatypes.StageErrored,
			Err:     fmt.Sprintf("stage %q is not registered", id),
		}
	}

	start := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, reg.Timeout)
	defer cancel()

	type outcome struct {
		payload datatypes.StagePayload
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("stage %s panicked: %v", id, r)}
			}
		}()
		payload, err := reg.Fn(stageCtx, content, vctx)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		result := datatypes.StageResult{
			StageID: id,
			Status:  datatypes.StageOK,
			Payload: out.payload,
			Elapsed: time.Since(start),
		}
		if out.err != nil {
			result.Status = datatypes.StageErrored
			result.Err = out.err.Error()
		}
		return result
	case <-stageCtx.Done():
		return datatypes.StageResult{
			StageID: id,
			Status:  datatypes.StageTimedOut,
			Elapsed: time.Since(start),
		}
	}
}
