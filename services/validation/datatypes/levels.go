// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// SafetyLevel is the ordered content safety classification.
//
// Levels are ordered safe < caution < warning < danger < critical.
// Merging always keeps the most severe level (see MaxSafety); a level
// never decreases once raised during a validation.
type SafetyLevel string

const (
	SafetySafe     SafetyLevel = "safe"
	SafetyCaution  SafetyLevel = "caution"
	SafetyWarning  SafetyLevel = "warning"
	SafetyDanger   SafetyLevel = "danger"
	SafetyCritical SafetyLevel = "critical"
)

// safetyRank maps levels to their position in the severity ordering.
var safetyRank = map[SafetyLevel]int{
	SafetySafe:     0,
	SafetyCaution:  1,
	SafetyWarning:  2,
	SafetyDanger:   3,
	SafetyCritical: 4,
}

// Rank returns the numeric severity of the level.
//
// Unknown values rank as safe so a malformed stage payload can never
// raise the severity of a verdict by accident.
func (s SafetyLevel) Rank() int {
	return safetyRank[s]
}

// AtLeast reports whether s is at or above the given level.
func (s SafetyLevel) AtLeast(other SafetyLevel) bool {
	return s.Rank() >= other.Rank()
}

// MaxSafety returns the more severe of two safety levels.
func MaxSafety(a, b SafetyLevel) SafetyLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// CrisisLevel is the ordered crisis risk classification.
//
// Levels are ordered none < low < moderate < high < severe < critical.
type CrisisLevel string

const (
	CrisisNone     CrisisLevel = "none"
	CrisisLow      CrisisLevel = "low"
	CrisisModerate CrisisLevel = "moderate"
	CrisisHigh     CrisisLevel = "high"
	CrisisSevere   CrisisLevel = "severe"
	CrisisCritical CrisisLevel = "critical"
)

var crisisRank = map[CrisisLevel]int{
	CrisisNone:     0,
	CrisisLow:      1,
	CrisisModerate: 2,
	CrisisHigh:     3,
	CrisisSevere:   4,
	CrisisCritical: 5,
}

// Rank returns the numeric severity of the level.
func (c CrisisLevel) Rank() int {
	return crisisRank[c]
}

// AtLeast reports whether c is at or above the given level.
func (c CrisisLevel) AtLeast(other CrisisLevel) bool {
	return c.Rank() >= other.Rank()
}

// MaxCrisis returns the more severe of two crisis levels.
func MaxCrisis(a, b CrisisLevel) CrisisLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// CrisisLevels lists all crisis levels from most to least severe.
//
// Detection iterates this order so a single critical indicator is never
// masked by a co-matching low-severity pattern.
var CrisisLevels = []CrisisLevel{
	CrisisCritical,
	CrisisSevere,
	CrisisHigh,
	CrisisModerate,
	CrisisLow,
}

// Action is the final decision the pipeline takes for a content item.
//
// Actions have a strict precedence used when folding stage
// recommendations: escalate > reject > flag_for_review > modify >
// warn > approve. A higher-precedence action always wins the merge.
type Action string

const (
	ActionApprove       Action = "approve"
	ActionWarn          Action = "warn"
	ActionModify        Action = "modify"
	ActionFlagForReview Action = "flag_for_review"
	ActionReject        Action = "reject"
	ActionEscalate      Action = "escalate"
)

var actionRank = map[Action]int{
	ActionApprove:       0,
	ActionWarn:          1,
	ActionModify:        2,
	ActionFlagForReview: 3,
	ActionReject:        4,
	ActionEscalate:      5,
}

// Rank returns the precedence of the action.
func (a Action) Rank() int {
	return actionRank[a]
}

// AtLeast reports whether a is at or above the given action's precedence.
func (a Action) AtLeast(other Action) bool {
	return a.Rank() >= other.Rank()
}

// MaxAction returns the higher-precedence of two actions.
func MaxAction(a, b Action) Action {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// VerdictStatus describes how a validation run terminated.
type VerdictStatus string

const (
	// StatusCompleted means every registered stage produced a result
	// (ok or errored) before the overall deadline.
	StatusCompleted VerdictStatus = "completed"

	// StatusTimedOut means the overall deadline elapsed before all
	// stages finished. The verdict is built from completed partials.
	StatusTimedOut VerdictStatus = "timed_out"

	// StatusFailed means the orchestrator itself failed. The verdict
	// is fail-closed: safety critical, action at least flag_for_review.
	StatusFailed VerdictStatus = "failed"
)

// StageStatus describes the outcome of a single stage execution.
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageTimedOut StageStatus = "timed_out"
	StageErrored  StageStatus = "errored"
)
