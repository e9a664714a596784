// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared data model for the validation
// pipeline: content items, validation contexts, stage results, and the
// final Verdict.
//
// ContentItem and ValidationContext are caller-owned and read-only to
// the pipeline. The Verdict is owned by the orchestrator invocation
// that builds it and is immutable once returned; the cache holds an
// independent copy governed by its own TTL.
package datatypes

import (
	"time"
)

// ContentType distinguishes kinds of content flowing through validation.
type ContentType string

const (
	ContentTypeNarrative ContentType = "narrative"
	ContentTypeDialogue  ContentType = "dialogue"
	ContentTypeJournal   ContentType = "journal"
	ContentTypePrompt    ContentType = "prompt"
)

// ContentSource identifies who produced a content item.
type ContentSource string

const (
	SourceUser   ContentSource = "user"
	SourceSystem ContentSource = "system"
)

// AgeGroup tags content or a user with a maturity band.
type AgeGroup string

const (
	AgeGroupChild AgeGroup = "child"
	AgeGroupTeen  AgeGroup = "teen"
	AgeGroupAdult AgeGroup = "adult"
)

// ValidationScope selects how aggressively thresholds are applied.
type ValidationScope string

const (
	ScopeStandard ValidationScope = "standard"
	ScopeStrict   ValidationScope = "strict"
)

// Overall deadline bounds in milliseconds.
const (
	MinTimeoutMS     = 50
	MaxTimeoutMS     = 5000
	DefaultTimeoutMS = 200
)

// ContentItem is one piece of text submitted for validation.
//
// # Ownership
//
// ContentItem is created once per request by the caller and never
// mutated by the pipeline. Stages receive it by value.
type ContentItem struct {
	// ID identifies the content item for audit and event correlation.
	ID string `json:"id"`

	// Text is the raw content under validation.
	Text string `json:"text"`

	// Type classifies the content (narrative, dialogue, journal, prompt).
	Type ContentType `json:"type"`

	// Source records whether a user or the system produced the text.
	Source ContentSource `json:"source"`

	// AgeGroup is the optional maturity tag for age-appropriateness
	// checks. Empty means no age restriction applies.
	AgeGroup AgeGroup `json:"age_group,omitempty"`
}

// ValidationContext carries the per-request configuration for one
// validation call. It is immutable for the duration of the call.
type ValidationContext struct {
	// UserID identifies the requesting user, used for cache
	// invalidation. Not part of the cache fingerprint.
	UserID string `json:"user_id"`

	// SessionID identifies the session. Not part of the fingerprint,
	// so sessions with identical validation-relevant context share
	// cache entries.
	SessionID string `json:"session_id"`

	// Scope selects standard or strict threshold application.
	Scope ValidationScope `json:"scope"`

	// TimeoutMS is the overall wall-clock budget. Values outside
	// [MinTimeoutMS, MaxTimeoutMS] are clamped; zero means
	// DefaultTimeoutMS.
	TimeoutMS int `json:"timeout_ms"`

	// StrictMode tightens stage thresholds by one notch.
	StrictMode bool `json:"strict_mode"`

	// TherapeuticGoals are the goals declared for the session, used
	// for alignment scoring (e.g. "emotional regulation", "grounding").
	TherapeuticGoals []string `json:"therapeutic_goals,omitempty"`

	// RiskFactors are risk factor categories already known for the
	// user (e.g. "isolation", "recent loss").
	RiskFactors []string `json:"risk_factors,omitempty"`

	// ProtectiveFactors are known protective factor categories
	// (e.g. "support network", "treatment engagement").
	ProtectiveFactors []string `json:"protective_factors,omitempty"`

	// CarriedSafetyLevel is the safety level carried over from earlier
	// in the session. The merged verdict never drops below it.
	CarriedSafetyLevel SafetyLevel `json:"carried_safety_level,omitempty"`
}

// EffectiveTimeout returns the clamped overall deadline.
func (v ValidationContext) EffectiveTimeout() time.Duration {
	ms := v.TimeoutMS
	if ms == 0 {
		ms = DefaultTimeoutMS
	}
	if ms < MinTimeoutMS {
		ms = MinTimeoutMS
	}
	if ms > MaxTimeoutMS {
		ms = MaxTimeoutMS
	}
	return time.Duration(ms) * time.Millisecond
}

// Strict reports whether strict thresholds apply, either via the
// explicit flag or the strict scope.
func (v ValidationContext) Strict() bool {
	return v.StrictMode || v.Scope == ScopeStrict
}

// StagePayload is the stage-local partial result a detector produces.
//
// Each detector fills only the fields it is responsible for; the
// orchestrator folds payloads into the accumulating verdict with
// most-severe-wins semantics.
type StagePayload struct {
	// SafetyLevel is the stage's safety assessment.
	SafetyLevel SafetyLevel `json:"safety_level,omitempty"`

	// CrisisLevel is the stage's crisis assessment.
	CrisisLevel CrisisLevel `json:"crisis_level,omitempty"`

	// Indicators are the literal matched phrases, kept verbatim as an
	// audit trail.
	Indicators []string `json:"indicators,omitempty"`

	// ImmediateInterventionNeeded is set by the crisis stage when the
	// matched tier is at or above the intervention threshold.
	ImmediateInterventionNeeded bool `json:"immediate_intervention_needed,omitempty"`

	// Violations are content safety rule violations.
	Violations []Violation `json:"violations,omitempty"`

	// BiasCategories maps detected bias categories to their scores.
	BiasCategories map[string]float64 `json:"bias_categories,omitempty"`

	// RiskFactors are matched risk factor categories.
	RiskFactors []string `json:"risk_factors,omitempty"`

	// ProtectiveFactors are matched protective factor categories.
	ProtectiveFactors []string `json:"protective_factors,omitempty"`

	// AlignmentScore is the therapeutic alignment score (0-1), or -1
	// when the stage did not compute one.
	AlignmentScore float64 `json:"alignment_score,omitempty"`

	// RecommendedAction is the stage's own recommendation. The final
	// action is resolved by precedence across all stages.
	RecommendedAction Action `json:"recommended_action,omitempty"`

	// Recommendations are human-readable remediation suggestions.
	Recommendations []string `json:"recommendations,omitempty"`

	// Confidence is the stage's confidence in its own assessment (0-1).
	Confidence float64 `json:"confidence"`
}

// Violation records one content safety rule match.
type Violation struct {
	// RuleID identifies the violated rule (e.g. CS-012).
	RuleID string `json:"rule_id"`

	// Category is the risk category of the rule.
	Category string `json:"category"`

	// Matched is the literal text that triggered the rule.
	Matched string `json:"matched"`

	// Weight is the rule's severity weight (0-1).
	Weight float64 `json:"weight"`
}

// StageResult is the uniform envelope for one stage execution.
//
// A timeout or an internal stage error is data, not an exception: the
// result carries a status and whatever partial payload the stage
// produced before failing. Partial output is never discarded.
type StageResult struct {
	// StageID identifies the stage that produced this result.
	StageID string `json:"stage_id"`

	// Status is ok, timed_out, or errored.
	Status StageStatus `json:"status"`

	// Payload is the stage-local partial result. May be partially
	// filled when Status is not ok.
	Payload StagePayload `json:"payload"`

	// Err is the error message for errored stages, empty otherwise.
	Err string `json:"error,omitempty"`

	// Elapsed is how long the stage ran.
	Elapsed time.Duration `json:"elapsed"`
}
