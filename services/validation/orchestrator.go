// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation orchestrates the content validation pipeline.
//
// # Description
//
// The orchestrator runs every registered detection stage concurrently
// under an overall deadline, folds stage results into a single verdict
// with most-severe-wins merge semantics, and resolves the final action
// by strict precedence. Timeouts are data: an expired stage contributes
// a timed_out result and whatever partial output it produced, and the
// run degrades rather than failing.
//
// # Fail-Closed Contract
//
// Validate never returns an error. A panic anywhere inside orchestration
// is recovered into a failed verdict with safety critical and action
// reject. Content is never approved by accident of infrastructure.
package validation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/EmberwellAI/emberguard/services/validation/cache"
	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
	"github.com/EmberwellAI/emberguard/services/validation/events"
	"github.com/EmberwellAI/emberguard/services/validation/observability"
	"github.com/EmberwellAI/emberguard/services/validation/pipeline"
)

const tracerName = "emberguard/validation"

// Orchestrator coordinates one validation pipeline.
//
// # Thread Safety
//
// Safe for concurrent use. The pipeline must be fully registered before
// the orchestrator is constructed; it is treated as read-only here.
type Orchestrator struct {
	pipeline *pipeline.Pipeline
	cache    *cache.Cache
	sink     events.Sink
	metrics  *observability.ValidationMetrics
	logger   *slog.Logger
	tracer   oteltrace.Tracer

	// group coalesces concurrent validations of identical
	// (content, context) fingerprints into one pipeline execution.
	group singleflight.Group
}

// OrchestratorOption configures optional orchestrator collaborators.
type OrchestratorOption func(*Orchestrator)

// WithCache enables the fingerprint verdict cache.
func WithCache(c *cache.Cache) OrchestratorOption {
	return func(o *Orchestrator) { o.cache = c }
}

// WithSink sets the event sink. Defaults to a no-op sink.
func WithSink(s events.Sink) OrchestratorOption {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithMetrics enables Prometheus metrics recording.
func WithMetrics(m *observability.ValidationMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the structured logger. Defaults to slog's default.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an orchestrator over a fully registered
// pipeline.
func NewOrchestrator(p *pipeline.Pipeline, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		pipeline: p,
		sink:     events.NewNoopSink(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate runs the full pipeline for one content item.
//
// # Description
//
// The flow is: cache lookup, then singleflight coalescing on the
// fingerprint, then concurrent stage execution under the context's
// effective timeout, folding results as they arrive. Unfinished stages
// are recorded as timed_out; a run with any unfinished stage finalizes
// with status timed_out and decides from the completed partials, never
// defaulting to approve. Completed verdicts are cached and events are
// emitted fire-and-forget.
//
// # Outputs
//
//   - *datatypes.Verdict: Always non-nil, never accompanied by an
//     error. Infrastructure failure yields a failed, fail-closed
//     verdict.
func (o *Orchestrator) Validate(ctx context.Context, content datatypes.ContentItem, vctx datatypes.ValidationContext) (verdict *datatypes.Verdict) {
	validationID := uuid.NewString()

	ctx, span := o.tracer.Start(ctx, "validation.Validate",
		oteltrace.WithAttributes(
			attribute.String("validation.id", validationID),
			attribute.String("content.id", content.ID),
			attribute.String("content.type", string(content.Type)),
			attribute.Bool("validation.strict", vctx.Strict()),
		))
	defer span.End()

	if o.metrics != nil {
		o.metrics.ActiveValidations.Inc()
		defer o.metrics.ActiveValidations.Dec()
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("validation panicked, failing closed",
				"validation_id", validationID,
				"content_id", content.ID,
				"panic", r,
			)
			v := datatypes.NewVerdict(validationID, content.ID, vctx.CarriedSafetyLevel)
			v.Finalize(datatypes.StatusFailed, vctx.Strict())
			if o.metrics != nil {
				o.metrics.ValidationsTotal.WithLabelValues(string(v.Status), string(v.Action)).Inc()
			}
			o.emit(ctx, v, vctx)
			verdict = v
		}
	}()

	var fingerprint string
	if o.cache != nil {
		var cached *datatypes.Verdict
		var hit bool
		cached, fingerprint, hit = o.cache.Get(content, vctx)
		if o.metrics != nil {
			if hit {
				o.metrics.CacheHitsTotal.Inc()
			} else {
				o.metrics.CacheMissesTotal.Inc()
			}
		}
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			o.emit(ctx, cached, vctx)
			return cached
		}
	} else {
		fingerprint = cache.Fingerprint(content, vctx)
	}

	result, _, shared := o.group.Do(fingerprint, func() (any, error) {
		return o.run(ctx, validationID, fingerprint, content, vctx), nil
	})

	v := result.(*datatypes.Verdict)
	if shared {
		// Coalesced callers get their own copy so nobody can mutate a
		// verdict out from under a sibling request.
		v = v.Clone()
	}
	return v
}

// run executes all stages for one coalesced validation.
func (o *Orchestrator) run(ctx context.Context, validationID, fingerprint string, content datatypes.ContentItem, vctx datatypes.ValidationContext) *datatypes.Verdict {
	verdict := datatypes.NewVerdict(validationID, content.ID, vctx.CarriedSafetyLevel)

	runCtx, cancel := context.WithTimeout(ctx, vctx.EffectiveTimeout())
	defer cancel()

	regs := o.pipeline.Registrations()
	results := make(chan datatypes.StageResult, len(regs))
	for _, reg := range regs {
		go func(id string) {
			results <- o.pipeline.RunStage(runCtx, id, content, vctx)
		}(reg.ID)
	}

	pending := make(map[string]struct{}, len(regs))
	for _, reg := range regs {
		pending[reg.ID] = struct{}{}
	}

	deadlineHit := false
	anyStageTimedOut := false
	for len(pending) > 0 {
		var r datatypes.StageResult
		select {
		case r = <-results:
		case <-runCtx.Done():
			deadlineHit = true
		}
		if deadlineHit {
			break
		}
		delete(pending, r.StageID)
		if r.Status == datatypes.StageTimedOut {
			anyStageTimedOut = true
		}
		verdict.Fold(r)
		o.recordStage(r)
	}

	if deadlineHit {
		// Collect results that raced the deadline, then cut off the
		// rest. Cancelled stages unwind on their own; their late
		// output is discarded.
		for len(pending) > 0 {
			select {
			case r := <-results:
				delete(pending, r.StageID)
				if r.Status != datatypes.StageOK {
					r.Status = datatypes.StageTimedOut
				}
				verdict.Fold(r)
				o.recordStage(r)
			default:
				for id := range pending {
					delete(pending, id)
					r := datatypes.StageResult{StageID: id, Status: datatypes.StageTimedOut}
					verdict.Fold(r)
					o.recordStage(r)
				}
			}
		}
	}

	status := datatypes.StatusCompleted
	if deadlineHit || anyStageTimedOut {
		status = datatypes.StatusTimedOut
	}
	verdict.Finalize(status, vctx.Strict())

	if o.metrics != nil {
		o.metrics.ValidationsTotal.WithLabelValues(string(verdict.Status), string(verdict.Action)).Inc()
	}
	if o.cache != nil {
		o.cache.Set(fingerprint, vctx.UserID, verdict)
	}
	o.emit(ctx, verdict, vctx)

	o.logger.Info("validation finished",
		"validation_id", validationID,
		"content_id", content.ID,
		"status", string(verdict.Status),
		"action", string(verdict.Action),
		"safety_level", string(verdict.SafetyLevel),
		"crisis_level", string(verdict.CrisisLevel),
		"elapsed_ms", verdict.Elapsed.Milliseconds(),
	)
	return verdict
}

// emit delivers events fire-and-forget. A slow or failing sink never
// delays the verdict; errors are logged and dropped.
//
// Crisis events fire only when detection actually ran in this call, so
// cache hits do not re-alert; completion events fire for every call,
// including hits.
func (o *Orchestrator) emit(ctx context.Context, verdict *datatypes.Verdict, vctx datatypes.ValidationContext) {
	v := verdict.Clone()
	emitCtx := context.WithoutCancel(ctx)
	userID, sessionID := vctx.UserID, vctx.SessionID

	go func() {
		now := time.Now()
		if !v.CacheHit && v.CrisisLevel.AtLeast(datatypes.CrisisModerate) {
			if o.metrics != nil {
				o.metrics.CrisisEventsTotal.WithLabelValues(string(v.CrisisLevel)).Inc()
			}
			crisisRecs := v.Recommendations
			if sr, ok := v.StageResults["crisis_detection"]; ok {
				crisisRecs = sr.Payload.Recommendations
			}
			err := o.sink.OnCrisisDetected(emitCtx, events.CrisisEvent{
				Timestamp:                   now,
				ValidationID:                v.ValidationID,
				ContentID:                   v.ContentID,
				UserID:                      userID,
				SessionID:                   sessionID,
				CrisisLevel:                 v.CrisisLevel,
				ImmediateInterventionNeeded: v.ImmediateInterventionNeeded,
				Indicators:                  v.Indicators,
				RiskFactors:                 v.RiskFactors,
				ProtectiveFactors:           v.ProtectiveFactors,
				RecommendedActions:          crisisRecs,
			})
			if err != nil {
				o.logger.Warn("crisis event sink failed", "validation_id", v.ValidationID, "error", err)
			}
		}

		err := o.sink.OnValidationCompleted(emitCtx, events.CompletionEvent{
			Timestamp:    now,
			ValidationID: v.ValidationID,
			ContentID:    v.ContentID,
			UserID:       userID,
			SessionID:    sessionID,
			Status:       v.Status,
			Action:       v.Action,
			SafetyLevel:  v.SafetyLevel,
			CrisisLevel:  v.CrisisLevel,
			Confidence:   v.Confidence,
			CacheHit:     v.CacheHit,
			Elapsed:      v.Elapsed,
		})
		if err != nil {
			o.logger.Warn("completion event sink failed", "validation_id", v.ValidationID, "error", err)
		}
	}()
}

func (o *Orchestrator) recordStage(r datatypes.StageResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.StageDurationSeconds.WithLabelValues(r.StageID, string(r.Status)).Observe(r.Elapsed.Seconds())
	if r.Status == datatypes.StageTimedOut {
		o.metrics.StageTimeoutsTotal.WithLabelValues(r.StageID).Inc()
	}
}
