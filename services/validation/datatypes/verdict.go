// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"sort"
	"time"
)

// Verdict is the final, immutable validation outcome for one content item.
//
// # Merge Semantics
//
// The orchestrator builds the verdict by folding stage results one at a
// time via Fold. Severity merges are most-severe-wins: once a safety or
// crisis level has been raised it never decreases, regardless of the
// order stage results arrive in. Indicator and factor sets are unioned
// so equal-severity matches from different categories are all preserved
// for the audit trail.
type Verdict struct {
	// ValidationID uniquely identifies this validation run.
	ValidationID string `json:"validation_id"`

	// ContentID echoes the validated content item's ID.
	ContentID string `json:"content_id"`

	// Status is completed, timed_out, or failed.
	Status VerdictStatus `json:"status"`

	// Action is the decided action, resolved by strict precedence.
	Action Action `json:"action"`

	// SafetyLevel is the merged overall safety level.
	SafetyLevel SafetyLevel `json:"safety_level"`

	// CrisisLevel is the merged crisis level.
	CrisisLevel CrisisLevel `json:"crisis_level"`

	// ImmediateInterventionNeeded forces action escalate when true.
	ImmediateInterventionNeeded bool `json:"immediate_intervention_needed"`

	// Indicators are the union of literal matched indicators across
	// stages, deduplicated, order-stable.
	Indicators []string `json:"indicators,omitempty"`

	// Violations are all content safety rule violations.
	Violations []Violation `json:"violations,omitempty"`

	// BiasCategories maps detected bias categories to scores; the
	// merge keeps the highest score per category.
	BiasCategories map[string]float64 `json:"bias_categories,omitempty"`

	// RiskFactors and ProtectiveFactors are unioned factor categories.
	RiskFactors       []string `json:"risk_factors,omitempty"`
	ProtectiveFactors []string `json:"protective_factors,omitempty"`

	// Recommendations are merged remediation suggestions.
	Recommendations []string `json:"recommendations,omitempty"`

	// Confidence is the mean confidence of stages that completed ok.
	Confidence float64 `json:"confidence"`

	// StageResults maps stage id to its result, including timed-out
	// and errored stages.
	StageResults map[string]StageResult `json:"stage_results"`

	// CacheHit marks verdicts served from the fingerprint cache.
	CacheHit bool `json:"cache_hit"`

	// StartedAt and Elapsed are timing metadata; excluded from the
	// determinism guarantee.
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`

	// okStages counts stages folded with status ok, for the running
	// confidence mean.
	okStages int
	// confidenceSum accumulates ok-stage confidences.
	confidenceSum float64
}

// NewVerdict creates an accumulating verdict for one validation run.
func NewVerdict(validationID, contentID string, carried SafetyLevel) *Verdict {
	return &Verdict{
		ValidationID: validationID,
		ContentID:    contentID,
		Status:       StatusCompleted,
		Action:       ActionApprove,
		SafetyLevel:  MaxSafety(SafetySafe, carried),
		CrisisLevel:  CrisisNone,
		StageResults: make(map[string]StageResult),
		StartedAt:    time.Now(),
	}
}

// Fold merges one stage result into the accumulating verdict.
//
// Fold is commutative over severity: applying results in any order
// yields the same final safety level, crisis level, and action, because
// every merge is a max or a set union. Timed-out and errored stages are
// recorded but their partial payloads still contribute whatever they
// carry; partial output is never discarded.
func (v *Verdict) Fold(r StageResult) {
	v.StageResults[r.StageID] = r

	p := r.Payload
	v.SafetyLevel = MaxSafety(v.SafetyLevel, p.SafetyLevel)
	v.CrisisLevel = MaxCrisis(v.CrisisLevel, p.CrisisLevel)
	if p.ImmediateInterventionNeeded {
		v.ImmediateInterventionNeeded = true
	}
	v.Action = MaxAction(v.Action, p.RecommendedAction)

	v.Indicators = unionStrings(v.Indicators, p.Indicators)
	v.RiskFactors = unionStrings(v.RiskFactors, p.RiskFactors)
	v.ProtectiveFactors = unionStrings(v.ProtectiveFactors, p.ProtectiveFactors)
	v.Recommendations = unionStrings(v.Recommendations, p.Recommendations)
	v.Violations = append(v.Violations, p.Violations...)

	for cat, score := range p.BiasCategories {
		if v.BiasCategories == nil {
			v.BiasCategories = make(map[string]float64)
		}
		if score > v.BiasCategories[cat] {
			v.BiasCategories[cat] = score
		}
	}

	if r.Status == StageOK {
		v.okStages++
		v.confidenceSum += p.Confidence
		v.Confidence = v.confidenceSum / float64(v.okStages)
	}
}

// OKStages returns how many folded stages completed ok.
func (v *Verdict) OKStages() int {
	return v.okStages
}

// Finalize resolves the terminal status and action.
//
// Rules, in order:
//  1. Crisis level >= high or ImmediateInterventionNeeded forces
//     escalate, overriding any lower-precedence stage recommendation.
//  2. The safety level independently forces a floor on the action
//     (critical -> reject, danger -> flag_for_review, warning -> warn;
//     strict mode raises danger to reject and warning to modify).
//  3. A timed-out run with zero completed stages decides
//     flag_for_review: the pipeline never defaults to approve.
//  4. A failed run is fail-closed: safety critical, action at least
//     reject.
func (v *Verdict) Finalize(status VerdictStatus, strict bool) {
	v.Status = status

	switch status {
	case StatusFailed:
		v.SafetyLevel = SafetyCritical
		v.Action = MaxAction(v.Action, ActionReject)
	case StatusTimedOut:
		if v.okStages == 0 {
			v.Action = MaxAction(v.Action, ActionFlagForReview)
		}
	}

	v.Action = MaxAction(v.Action, actionFloorForSafety(v.SafetyLevel, strict))

	if v.CrisisLevel.AtLeast(CrisisHigh) || v.ImmediateInterventionNeeded {
		v.Action = ActionEscalate
	}

	sort.Strings(v.Indicators)
	sort.Strings(v.RiskFactors)
	sort.Strings(v.ProtectiveFactors)
	sort.Strings(v.Recommendations)
	v.Elapsed = time.Since(v.StartedAt)
}

// actionFloorForSafety maps a merged safety level to the minimum
// acceptable action.
func actionFloorForSafety(level SafetyLevel, strict bool) Action {
	switch level {
	case SafetyCritical:
		return ActionReject
	case SafetyDanger:
		if strict {
			return ActionReject
		}
		return ActionFlagForReview
	case SafetyWarning:
		if strict {
			return ActionModify
		}
		return ActionWarn
	case SafetyCaution:
		return ActionWarn
	default:
		return ActionApprove
	}
}

// Clone returns an independent deep copy of the verdict.
//
// The cache stores clones so mutations of a returned verdict can never
// leak into cached state, mirroring the ownership rule that the
// orchestrator owns the verdict only until it is returned.
func (v *Verdict) Clone() *Verdict {
	if v == nil {
		return nil
	}
	out := *v
	out.Indicators = append([]string(nil), v.Indicators...)
	out.RiskFactors = append([]string(nil), v.RiskFactors...)
	out.ProtectiveFactors = append([]string(nil), v.ProtectiveFactors...)
	out.Recommendations = append([]string(nil), v.Recommendations...)
	out.Violations = append([]Violation(nil), v.Violations...)
	if v.BiasCategories != nil {
		out.BiasCategories = make(map[string]float64, len(v.BiasCategories))
		for k, val := range v.BiasCategories {
			out.BiasCategories[k] = val
		}
	}
	out.StageResults = make(map[string]StageResult, len(v.StageResults))
	for k, sr := range v.StageResults {
		srCopy := sr
		srCopy.Payload = clonePayload(sr.Payload)
		out.StageResults[k] = srCopy
	}
	return &out
}

func clonePayload(p StagePayload) StagePayload {
	out := p
	out.Indicators = append([]string(nil), p.Indicators...)
	out.RiskFactors = append([]string(nil), p.RiskFactors...)
	out.ProtectiveFactors = append([]string(nil), p.ProtectiveFactors...)
	out.Recommendations = append([]string(nil), p.Recommendations...)
	out.Violations = append([]Violation(nil), p.Violations...)
	if p.BiasCategories != nil {
		out.BiasCategories = make(map[string]float64, len(p.BiasCategories))
		for k, v := range p.BiasCategories {
			out.BiasCategories[k] = v
		}
	}
	return out
}

// unionStrings appends elements of add not already present in base,
// preserving first-seen order.
func unionStrings(base, add []string) []string {
	if len(add) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if _, ok := seen[s]; !ok {
			base = append(base, s)
			seen[s] = struct{}{}
		}
	}
	return base
}
