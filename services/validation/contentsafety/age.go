// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package contentsafety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// prohibitedTopics maps an age group to topic patterns that are not
// appropriate for it regardless of rule weights.
var prohibitedTopics = map[datatypes.AgeGroup]map[string]*regexp.Regexp{
	datatypes.AgeGroupChild: {
		"death_detail":  regexp.MustCompile(`(?i)\b(?:corpse|dead\s+body|dying\s+in\s+agony)\b`),
		"romance_adult": regexp.MustCompile(`(?i)\b(?:affair|one\s+night\s+stand)\b`),
		"gambling":      regexp.MustCompile(`(?i)\b(?:casino|betting|poker\s+for\s+money)\b`),
		"horror":        regexp.MustCompile(`(?i)\b(?:demonic|possession|slasher)\b`),
	},
	datatypes.AgeGroupTeen: {
		"gambling": regexp.MustCompile(`(?i)\b(?:casino|betting\s+money)\b`),
	},
}

// complexityCeiling is the maximum acceptable complexity score per age
// group. Adult content has no ceiling.
var complexityCeiling = map[datatypes.AgeGroup]float64{
	datatypes.AgeGroupChild: 0.45,
	datatypes.AgeGroupTeen:  0.7,
}

// checkAgeAppropriateness checks prohibited topics and estimated
// complexity against the content's age group.
//
// Returns the safety level the findings justify (safe when nothing is
// found) and remediation recommendations. Untagged content skips the
// check entirely; age gating is opt-in via the content tag.
func (d *Detector) checkAgeAppropriateness(content datatypes.ContentItem) (datatypes.SafetyLevel, []string) {
	if content.AgeGroup == "" || content.AgeGroup == datatypes.AgeGroupAdult {
		return datatypes.SafetySafe, nil
	}

	level := datatypes.SafetySafe
	var recs []string

	for topic, re := range prohibitedTopics[content.AgeGroup] {
		if re.MatchString(content.Text) {
			level = datatypes.MaxSafety(level, datatypes.SafetyWarning)
			recs = append(recs, fmt.Sprintf("topic %q is not appropriate for age group %s", topic, content.AgeGroup))
		}
	}

	if ceiling, ok := complexityCeiling[content.AgeGroup]; ok {
		if score := EstimateComplexity(content.Text); score > ceiling {
			level = datatypes.MaxSafety(level, datatypes.SafetyCaution)
			recs = append(recs, fmt.Sprintf("reading complexity %.2f exceeds the %s ceiling of %.2f", score, content.AgeGroup, ceiling))
		}
	}

	return level, recs
}

// EstimateComplexity estimates reading complexity on a 0-1 scale from
// average sentence length and the share of long words.
//
// This is a cheap heuristic, not a readability formula: it only has to
// rank "clearly too dense for a child" above the ceiling, not grade
// text precisely.
func EstimateComplexity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	longWords := 0
	for _, w := range words {
		if len(strings.Trim(w, ".,;:!?\"'")) >= 9 {
			longWords++
		}
	}

	avgSentenceLen := float64(len(words)) / float64(sentences)
	sentenceFactor := avgSentenceLen / 35.0
	if sentenceFactor > 1 {
		sentenceFactor = 1
	}
	wordFactor := float64(longWords) / float64(len(words)) * 2.5
	if wordFactor > 1 {
		wordFactor = 1
	}

	return sentenceFactor*0.5 + wordFactor*0.5
}
