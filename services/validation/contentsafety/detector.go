// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package contentsafety implements the content safety stage: a
// weighted rule table embedded in the binary, age-appropriateness
// checks, and therapeutic-framework alignment scoring.
package contentsafety

import (
	"context"
	"math"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// StageID is the pipeline id of the safety rule stage.
const StageID = "content_safety"

// AlignmentStageID is the pipeline id of the therapeutic alignment
// stage, which shares this package's keyword tables.
const AlignmentStageID = "therapeutic_alignment"

// Weight thresholds mapping the maximum matched rule weight to an
// overall safety level. Strict mode shifts every boundary down a
// notch so lighter matches classify more severely.
const (
	criticalWeight = 0.9
	dangerWeight   = 0.7
	warningWeight  = 0.5
	cautionWeight  = 0.3
	strictShift    = 0.1
)

// Detector is the content safety stage.
//
// Thread Safety:
//
//	Detector is immutable after construction and safe for concurrent
//	use.
type Detector struct {
	rules []Rule
}

// New creates a Detector from the embedded rule table.
func New() (*Detector, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	return &Detector{rules: rules}, nil
}

// Rules returns the loaded rule count, for diagnostics.
func (d *Detector) Rules() int {
	return len(d.rules)
}

// Analyze runs the safety rule table and the age-appropriateness check
// over one content item.
//
// Description:
//
//	Every applicable rule is evaluated; each match produces a
//	Violation record with the literal matched text. The overall safety
//	level derives from the maximum matched weight via fixed
//	thresholds, tightened one notch in strict mode. Age checks can
//	raise the level further but never lower it.
func (d *Detector) Analyze(ctx context.Context, content datatypes.ContentItem, vctx datatypes.ValidationContext) (datatypes.StagePayload, error) {
	var (
		violations []datatypes.Violation
		maxWeight  float64
		recs       []string
		seenCat    = map[string]bool{}
	)

	for i := range d.rules {
		if err := ctx.Err(); err != nil {
			return payloadFor(violations, maxWeight, recs, vctx.Strict()), err
		}
		r := &d.rules[i]
		if !r.appliesTo(content.AgeGroup) {
			continue
		}
		m := r.compiled.FindString(content.Text)
		if m == "" {
			continue
		}
		violations = append(violations, datatypes.Violation{
			RuleID:   r.ID,
			Category: r.Category,
			Matched:  m,
			Weight:   r.Weight,
		})
		if r.Weight > maxWeight {
			maxWeight = r.Weight
		}
		if !seenCat[r.Category] {
			seenCat[r.Category] = true
			if rec, ok := remediation[r.Category]; ok {
				recs = append(recs, rec)
			}
		}
	}

	p := payloadFor(violations, maxWeight, recs, vctx.Strict())

	if ageLevel, ageRecs := d.checkAgeAppropriateness(content); ageLevel != datatypes.SafetySafe {
		p.SafetyLevel = datatypes.MaxSafety(p.SafetyLevel, ageLevel)
		p.Recommendations = append(p.Recommendations, ageRecs...)
		if p.RecommendedAction.Rank() < datatypes.ActionModify.Rank() {
			p.RecommendedAction = datatypes.ActionModify
		}
	}

	return p, nil
}

func payloadFor(violations []datatypes.Violation, maxWeight float64, recs []string, strict bool) datatypes.StagePayload {
	level := levelForWeight(maxWeight, strict)
	p := datatypes.StagePayload{
		SafetyLevel:     level,
		Violations:      violations,
		Recommendations: recs,
		Confidence:      confidenceFor(violations, maxWeight),
	}
	for _, v := range violations {
		p.Indicators = append(p.Indicators, v.Matched)
	}

	switch {
	case level == datatypes.SafetyCritical:
		p.RecommendedAction = datatypes.ActionReject
	case level == datatypes.SafetyDanger:
		p.RecommendedAction = datatypes.ActionFlagForReview
	case level == datatypes.SafetyWarning:
		p.RecommendedAction = datatypes.ActionModify
	case level == datatypes.SafetyCaution:
		p.RecommendedAction = datatypes.ActionWarn
	default:
		p.RecommendedAction = datatypes.ActionApprove
	}
	return p
}

// levelForWeight maps the maximum matched weight to a safety level.
func levelForWeight(w float64, strict bool) datatypes.SafetyLevel {
	if w == 0 {
		return datatypes.SafetySafe
	}
	if strict {
		w += strictShift
	}
	switch {
	case w >= criticalWeight:
		return datatypes.SafetyCritical
	case w >= dangerWeight:
		return datatypes.SafetyDanger
	case w >= warningWeight:
		return datatypes.SafetyWarning
	case w >= cautionWeight:
		return datatypes.SafetyCaution
	default:
		return datatypes.SafetySafe
	}
}

// confidenceFor derives stage confidence from the match evidence: a
// clean scan is high confidence, and matched scans gain confidence
// with violation count and weight.
func confidenceFor(violations []datatypes.Violation, maxWeight float64) float64 {
	if len(violations) == 0 {
		return 0.9
	}
	c := 0.6 + maxWeight*0.3 + math.Min(float64(len(violations)-1)*0.02, 0.08)
	return math.Round(math.Min(c, 0.99)*100) / 100
}
