// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package contentsafety

import (
	"context"
	"math"
	"strings"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// frameworkKeywords maps therapeutic frameworks and goal names to the
// weighted vocabulary that signals alignment with them. Goal names
// declared in the validation context are matched case-insensitively
// against these keys.
var frameworkKeywords = map[string]map[string]float64{
	"cbt": {
		"thought": 0.8, "thoughts": 0.8, "reframe": 1.0, "reframing": 1.0,
		"evidence": 0.7, "belief": 0.7, "beliefs": 0.7, "distortion": 1.0,
		"challenge": 0.6, "perspective": 0.6,
	},
	"dbt": {
		"distress": 0.8, "tolerance": 0.8, "mindfulness": 0.9,
		"acceptance": 0.8, "opposite action": 1.0, "wise mind": 1.0,
		"regulate": 0.7, "skill": 0.5, "skills": 0.5,
	},
	"act": {
		"values": 0.9, "acceptance": 0.8, "willingness": 0.8,
		"defusion": 1.0, "committed": 0.7, "present": 0.6,
	},
	"mindfulness": {
		"breath": 0.9, "breathing": 0.9, "present moment": 1.0,
		"notice": 0.7, "noticing": 0.7, "grounding": 1.0, "senses": 0.7,
		"body scan": 1.0, "anchor": 0.6,
	},
	"grounding": {
		"grounding": 1.0, "five senses": 1.0, "feet on the floor": 1.0,
		"breath": 0.8, "here and now": 0.9, "notice": 0.6,
	},
	"emotional regulation": {
		"feel": 0.5, "feeling": 0.6, "feelings": 0.6, "emotion": 0.8,
		"emotions": 0.8, "calm": 0.7, "soothe": 0.9, "regulate": 1.0,
		"name it": 0.8,
	},
	"self-compassion": {
		"kind": 0.7, "kindness": 0.9, "gentle": 0.8, "compassion": 1.0,
		"forgive": 0.8, "human": 0.5, "enough": 0.5,
	},
	"person-centered": {
		"listen": 0.7, "heard": 0.7, "understand": 0.6, "empathy": 1.0,
		"your pace": 0.9, "your choice": 0.9,
	},
}

// AlignmentAnalyzer scores therapeutic alignment of content against
// the goals declared in the validation context.
//
// It is registered as its own pipeline stage so alignment scoring is
// subject to the same timeout and merge discipline as the detectors.
type AlignmentAnalyzer struct{}

// NewAlignmentAnalyzer creates the alignment stage.
func NewAlignmentAnalyzer() *AlignmentAnalyzer {
	return &AlignmentAnalyzer{}
}

// Analyze computes the keyword-weighted overlap between the content
// and the declared therapeutic goals, as a 0-1 score.
//
// With no declared goals the stage has nothing to score against and
// reports a neutral payload with AlignmentScore -1. A very low score
// on system-generated content yields a modify recommendation: the
// system should be producing on-goal content.
func (a *AlignmentAnalyzer) Analyze(ctx context.Context, content datatypes.ContentItem, vctx datatypes.ValidationContext) (datatypes.StagePayload, error) {
	if len(vctx.TherapeuticGoals) == 0 {
		return datatypes.StagePayload{
			AlignmentScore:    -1,
			RecommendedAction: datatypes.ActionApprove,
			Confidence:        0.5,
		}, nil
	}

	text := strings.ToLower(content.Text)
	var total float64
	scored := 0

	for _, goal := range vctx.TherapeuticGoals {
		if err := ctx.Err(); err != nil {
			return datatypes.StagePayload{AlignmentScore: -1}, err
		}
		keywords, ok := frameworkKeywords[strings.ToLower(strings.TrimSpace(goal))]
		if !ok {
			continue
		}
		scored++
		var goalScore float64
		for kw, weight := range keywords {
			if strings.Contains(text, kw) {
				goalScore += weight * 0.34
			}
		}
		total += math.Min(goalScore, 1.0)
	}

	if scored == 0 {
		// Unknown goal vocabulary: nothing to measure against.
		return datatypes.StagePayload{
			AlignmentScore:    -1,
			RecommendedAction: datatypes.ActionApprove,
			Confidence:        0.5,
		}, nil
	}

	score := total / float64(scored)
	p := datatypes.StagePayload{
		AlignmentScore:    math.Round(score*100) / 100,
		RecommendedAction: datatypes.ActionApprove,
		Confidence:        0.75,
	}

	floor := 0.15
	if vctx.Strict() {
		floor = 0.3
	}
	if score < floor && content.Source == datatypes.SourceSystem {
		p.RecommendedAction = datatypes.ActionModify
		p.Recommendations = []string{"regenerate content to align with the declared therapeutic goals"}
	}
	return p, nil
}
