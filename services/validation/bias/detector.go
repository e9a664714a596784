// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bias implements the bias detection stage: per-category
// pattern scoring plus inclusive-language substitution suggestions.
package bias

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// StageID is the pipeline id this detector registers under.
const StageID = "bias_detection"

// Detector is the bias detection stage.
//
// Thread Safety:
//
//	Detector is immutable after construction and safe for concurrent
//	use.
type Detector struct {
	categories map[string]categoryPatterns
	substRe    map[string]*regexp.Regexp
}

// New creates a Detector with the built-in category tables.
func New() *Detector {
	d := &Detector{
		categories: defaultCategories(),
		substRe:    make(map[string]*regexp.Regexp, len(substitutions)),
	}
	for term := range substitutions {
		d.substRe[term] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	}
	return d
}

// Analyze scores the content against every bias category.
//
// Description:
//
//	Per-category score is matches x weight, capped at 1.0; the overall
//	score is the mean of non-zero category scores. Substitution
//	suggestions come from the non-inclusive-language table. Bias never
//	raises the safety or crisis level on its own; a pronounced overall
//	score recommends modify.
func (d *Detector) Analyze(ctx context.Context, content datatypes.ContentItem, vctx datatypes.ValidationContext) (datatypes.StagePayload, error) {
	scores := make(map[string]float64)
	var indicators []string

	// Sorted category order keeps the indicator list stable across runs.
	names := make([]string, 0, len(d.categories))
	for category := range d.categories {
		names = append(names, category)
	}
	sort.Strings(names)

	for _, category := range names {
		cp := d.categories[category]
		if err := ctx.Err(); err != nil {
			return datatypes.StagePayload{BiasCategories: scores, Indicators: indicators}, err
		}
		matches := 0
		for _, re := range cp.Patterns {
			found := re.FindAllString(content.Text, -1)
			matches += len(found)
			indicators = append(indicators, found...)
		}
		if matches > 0 {
			scores[category] = math.Min(float64(matches)*cp.Weight, 1.0)
		}
	}

	overall := overallScore(scores)
	recs := d.suggestions(content.Text)

	p := datatypes.StagePayload{
		BiasCategories:    scores,
		Indicators:        indicators,
		Recommendations:   recs,
		RecommendedAction: datatypes.ActionApprove,
		Confidence:        confidenceFor(overall, len(content.Text)),
	}

	threshold := 0.5
	if vctx.Strict() {
		threshold = 0.3
	}
	if overall >= threshold {
		p.RecommendedAction = datatypes.ActionModify
	}
	return p, nil
}

// overallScore is the mean of non-zero category scores.
func overallScore(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// suggestions returns substitution recommendations for every
// non-inclusive term present in the text, in stable order.
func (d *Detector) suggestions(text string) []string {
	var terms []string
	for term, re := range d.substRe {
		if re.MatchString(text) {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	out := make([]string, 0, len(terms))
	for _, term := range terms {
		out = append(out, fmt.Sprintf("replace %q with %q", term, substitutions[strings.ToLower(term)]))
	}
	return out
}

func confidenceFor(overall float64, textLen int) float64 {
	c := 0.7 + overall*0.2
	if textLen < 20 {
		c *= 0.7
	}
	return math.Round(math.Min(c, 0.95)*100) / 100
}
