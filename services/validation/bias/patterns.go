// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bias

import "regexp"

// categoryPatterns is one bias category's pattern set and weight.
type categoryPatterns struct {
	// Weight scales the per-category score: score = matches * weight,
	// capped at 1.0.
	Weight float64

	// Patterns are the compiled expressions for the category.
	Patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// defaultCategories returns the built-in bias category table.
func defaultCategories() map[string]categoryPatterns {
	return map[string]categoryPatterns{
		"gender": {
			Weight: 0.35,
			Patterns: compileAll(
				`(?i)\b(?:chairman|policeman|fireman|stewardess|mankind)\b`,
				`(?i)\b(?:like\s+a\s+girl|man\s+up|boys\s+don'?t\s+cry)\b`,
				`(?i)\b(?:hysterical\s+woman|bossy\s+for\s+a\s+woman)\b`,
			),
		},
		"cultural": {
			Weight: 0.4,
			Patterns: compileAll(
				`(?i)\b(?:exotic\s+(?:people|culture)|primitive\s+(?:culture|people|tribe))\b`,
				`(?i)\b(?:those\s+people\s+always|their\s+kind)\b`,
				`(?i)\b(?:normal\s+american|real\s+american)\b`,
			),
		},
		"age_framing": {
			Weight: 0.3,
			Patterns: compileAll(
				`(?i)\b(?:too\s+old\s+to|past\s+(?:his|her|their)\s+prime)\b`,
				`(?i)\b(?:senile|geezer|old\s+hag)\b`,
				`(?i)\b(?:kids\s+these\s+days|typical\s+millennial|ok\s+boomer)\b`,
			),
		},
		"disability": {
			Weight: 0.4,
			Patterns: compileAll(
				`(?i)\b(?:crippled\s+by|wheelchair[-\s]bound|suffers?\s+from\s+autism)\b`,
				`(?i)\b(?:crazy|insane|psycho|lunatic)\b`,
				`(?i)\b(?:normal\s+people\s+(?:do|can|would))\b`,
			),
		},
		"socioeconomic": {
			Weight: 0.35,
			Patterns: compileAll(
				`(?i)\b(?:white\s+trash|ghetto|low[-\s]class\s+people)\b`,
				`(?i)\b(?:lazy\s+poor|poor\s+people\s+(?:are|just))\b`,
			),
		},
		"appearance": {
			Weight: 0.3,
			Patterns: compileAll(
				`(?i)\b(?:fat\s+and\s+lazy|ugly\s+people)\b`,
				`(?i)\b(?:real\s+women\s+have|beach\s+body)\b`,
			),
		},
	}
}

// substitutions maps non-inclusive terms to suggested replacements.
// Keys are matched case-insensitively as whole words.
var substitutions = map[string]string{
	"chairman":         "chairperson",
	"policeman":        "police officer",
	"fireman":          "firefighter",
	"stewardess":       "flight attendant",
	"mankind":          "humanity",
	"crazy":            "surprising",
	"insane":           "extreme",
	"wheelchair-bound": "wheelchair user",
	"senile":           "living with dementia",
	"ghetto":           "under-resourced neighborhood",
}
