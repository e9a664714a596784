// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package crisis implements the crisis detection stage.
//
// The detector scans content against ordered severity tiers, checked
// highest-first, and independently collects risk-factor and
// protective-factor matches. Detection is deterministic rule matching;
// a trained model can replace this stage later because it plugs into
// the pipeline as a plain StageFunc.
package crisis

import (
	"context"
	"math"
	"regexp"
	"sort"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// StageID is the pipeline id this detector registers under.
const StageID = "crisis_detection"

// shortContentLen is the length below which confidence is discounted:
// a fragment gives the tier match little surrounding evidence.
const shortContentLen = 20

// Detector is the crisis detection stage.
//
// Thread Safety:
//
//	Detector is immutable after construction and safe for concurrent
//	use. All patterns are compiled in New.
type Detector struct {
	tiers             []tier
	riskFactors       factorTable
	protectiveFactors factorTable
	responseActions   map[datatypes.CrisisLevel][]string

	// interventionThreshold is the crisis level at or above which
	// ImmediateInterventionNeeded is set. Default: high.
	interventionThreshold datatypes.CrisisLevel
}

// Option configures a Detector.
type Option func(*Detector)

// WithInterventionThreshold overrides the immediate-intervention
// threshold (default CrisisHigh).
func WithInterventionThreshold(level datatypes.CrisisLevel) Option {
	return func(d *Detector) {
		d.interventionThreshold = level
	}
}

// New creates a Detector with the built-in indicator tables.
func New(opts ...Option) *Detector {
	d := &Detector{
		tiers:                 defaultTiers(),
		riskFactors:           defaultRiskFactors(),
		protectiveFactors:     defaultProtectiveFactors(),
		responseActions:       defaultResponseActions(),
		interventionThreshold: datatypes.CrisisHigh,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Analyze runs crisis detection over one content item.
//
// Description:
//
//	Tiers are checked from most to least severe; the first tier with a
//	match decides the crisis level, but matching continues through the
//	remaining tiers so the indicator union is preserved for the audit
//	trail. Risk and protective factors are collected independently and
//	never change the level.
//
// Outputs:
//
//	The payload carries the winning level, all literal matched
//	indicators, matched factor categories, the intervention flag, and
//	response recommendations from the severity lookup table.
func (d *Detector) Analyze(ctx context.Context, content datatypes.ContentItem, vctx datatypes.ValidationContext) (datatypes.StagePayload, error) {
	text := content.Text

	level := datatypes.CrisisNone
	baseConfidence := 0.0
	var indicators []string

	for _, t := range d.tiers {
		if err := ctx.Err(); err != nil {
			// Cooperative cancellation: return what we have so far.
			return d.payload(level, baseConfidence, indicators, nil, nil, text), err
		}
		matched := matchLiterals(t.Patterns, text)
		if len(matched) == 0 {
			continue
		}
		if level == datatypes.CrisisNone {
			level = t.Level
			baseConfidence = t.BaseConfidence
		}
		indicators = append(indicators, matched...)
	}

	risk := matchFactors(d.riskFactors, text)
	protective := matchFactors(d.protectiveFactors, text)

	return d.payload(level, baseConfidence, indicators, risk, protective, text), nil
}

func (d *Detector) payload(level datatypes.CrisisLevel, base float64, indicators, risk, protective []string, text string) datatypes.StagePayload {
	p := datatypes.StagePayload{
		CrisisLevel:       level,
		Indicators:        indicators,
		RiskFactors:       risk,
		ProtectiveFactors: protective,
		Confidence:        d.confidence(level, base, len(indicators), len(text)),
	}

	if level != datatypes.CrisisNone {
		p.ImmediateInterventionNeeded = level.AtLeast(d.interventionThreshold)
		p.Recommendations = append([]string(nil), d.responseActions[level]...)
	}

	switch {
	case level.AtLeast(datatypes.CrisisHigh):
		p.RecommendedAction = datatypes.ActionEscalate
	case level == datatypes.CrisisModerate:
		p.RecommendedAction = datatypes.ActionWarn
	default:
		p.RecommendedAction = datatypes.ActionApprove
	}
	return p
}

// confidence calculates the stage confidence.
//
// Confidence starts at the winning tier's base, rises with every extra
// indicator and with content length, and is discounted for very short
// input where a single phrase carries little context.
func (d *Detector) confidence(level datatypes.CrisisLevel, base float64, indicatorCount, textLen int) float64 {
	if level == datatypes.CrisisNone {
		// Clean content: confidence grows with how much text we saw.
		c := 0.7 + math.Min(float64(textLen)/1000.0, 0.25)
		if textLen < shortContentLen {
			c = 0.5
		}
		return round2(c)
	}

	c := base
	if indicatorCount > 1 {
		c += math.Min(float64(indicatorCount-1)*0.03, 0.12)
	}
	c += math.Min(float64(textLen)/2000.0, 0.05)
	if textLen < shortContentLen {
		c *= 0.7
	}
	return round2(math.Min(c, 0.99))
}

func matchLiterals(patterns []*regexp.Regexp, text string) []string {
	var out []string
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// matchFactors walks categories in sorted order so the matched factor
// list is identical across runs.
func matchFactors(table factorTable, text string) []string {
	categories := make([]string, 0, len(table))
	for category := range table {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var out []string
	for _, category := range categories {
		for _, re := range table[category] {
			if re.MatchString(text) {
				out = append(out, category)
				break
			}
		}
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
