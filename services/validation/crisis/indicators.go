// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package crisis

import (
	"regexp"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// IndicatorVersion tracks the indicator table version.
const IndicatorVersion = "2026.08"

// tier is one severity band of crisis indicators.
//
// Tiers are evaluated highest-first so a single critical indicator is
// never masked by a co-matching low-severity pattern.
type tier struct {
	// Level is the crisis level this tier assigns when matched.
	Level datatypes.CrisisLevel

	// Patterns are the compiled indicator expressions for this tier.
	Patterns []*regexp.Regexp

	// BaseConfidence is the starting confidence when this tier wins.
	BaseConfidence float64
}

// factorTable maps a factor category to its indicator expressions.
type factorTable map[string][]*regexp.Regexp

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// defaultTiers returns the built-in severity tiers, most severe first.
//
// The critical tier targets stated intent with a plan or timeframe;
// severe targets explicit ideation; high targets self-harm and loss of
// will; moderate and low capture escalating distress language.
func defaultTiers() []tier {
	return []tier{
		{
			Level:          datatypes.CrisisCritical,
			BaseConfidence: 0.92,
			Patterns: compileAll(
				`(?i)\b(?:i\s*am|i'm|im)\s+going\s+to\s+(?:kill\s+myself|end\s+my\s+life|end\s+it\s+all)\b`,
				`(?i)\bend\s+my\s+life\b[^.!?]*\b(?:tonight|today|tomorrow|right\s+now)\b`,
				`(?i)\b(?:tonight|today|tomorrow|right\s+now)\b[^.!?]*\bend\s+my\s+life\b`,
				`(?i)\bkill\s+myself\b[^.!?]*\b(?:tonight|today|tomorrow|right\s+now)\b`,
				`(?i)\b(?:my|a|the)\s+plan\b[^.!?]*\b(?:kill\s+myself|end\s+my\s+life|suicide)\b`,
				`(?i)\b(?:kill\s+myself|end\s+my\s+life|suicide)\b[^.!?]*\bplan(?:ned)?\b`,
				`(?i)\b(?:wrote|writing|written)\s+(?:a\s+|my\s+)?(?:suicide|goodbye|final)\s+(?:note|letter)\b`,
				`(?i)\bsaying\s+goodbye\s+for(?:ever|\s+good)\b`,
			),
		},
		{
			Level:          datatypes.CrisisSevere,
			BaseConfidence: 0.85,
			Patterns: compileAll(
				`(?i)\bkill\s+myself\b`,
				`(?i)\bend\s+my\s+life\b`,
				`(?i)\bi\s+want\s+to\s+die\b`,
				`(?i)\bwish\s+i\s+(?:was|were)\s+dead\b`,
				`(?i)\bbetter\s+off\s+dead\b`,
				`(?i)\bbetter\s+off\s+without\s+me\b`,
				`(?i)\bsuicid(?:e|al)\b`,
				`(?i)\bdon'?t\s+want\s+to\s+(?:be\s+alive|live|wake\s+up)\b`,
			),
		},
		{
			Level:          datatypes.CrisisHigh,
			BaseConfidence: 0.78,
			Patterns: compileAll(
				`(?i)\bself[-\s]?harm(?:ing)?\b`,
				`(?i)\bhurt(?:ing)?\s+myself\b`,
				`(?i)\bcut(?:ting)?\s+myself\b`,
				`(?i)\bno\s+reason\s+to\s+(?:live|go\s+on)\b`,
				`(?i)\bcan'?t\s+(?:go\s+on|do\s+this\s+anymore|take\s+it\s+anymore)\b`,
				`(?i)\bnothing\s+left\s+to\s+live\s+for\b`,
				`(?i)\beveryone\s+would\s+be\s+better\s+off\b`,
			),
		},
		{
			Level:          datatypes.CrisisModerate,
			BaseConfidence: 0.68,
			Patterns: compileAll(
				`(?i)\bhopeless\b`,
				`(?i)\bworthless\b`,
				`(?i)\bno\s+way\s+out\b`,
				`(?i)\btrapped\b`,
				`(?i)\bunbearable\b`,
				`(?i)\bwant\s+to\s+give\s+up\b`,
				`(?i)\bwhat'?s\s+the\s+point\b`,
				`(?i)\bburden\s+(?:to|on)\s+everyone\b`,
			),
		},
		{
			Level:          datatypes.CrisisLow,
			BaseConfidence: 0.55,
			Patterns: compileAll(
				`(?i)\bstruggling\b`,
				`(?i)\boverwhelmed\b`,
				`(?i)\bso\s+alone\b`,
				`(?i)\bempty\s+inside\b`,
				`(?i)\bcompletely\s+numb\b`,
				`(?i)\bcan'?t\s+cope\b`,
				`(?i)\bfalling\s+apart\b`,
			),
		},
	}
}

// defaultRiskFactors returns the risk-factor category table.
//
// Risk factors are collected independently of the severity tiers: they
// do not raise the crisis level on their own but sharpen the audit
// trail and feed the recommended response.
func defaultRiskFactors() factorTable {
	return factorTable{
		"isolation": compileAll(
			`(?i)\bno\s+one\s+(?:cares|would\s+notice|to\s+talk\s+to|understands)\b`,
			`(?i)\ball\s+alone\b`,
			`(?i)\bcut\s+off\s+from\s+everyone\b`,
		),
		"substance_use": compileAll(
			`(?i)\bdrinking\s+to\s+(?:cope|forget|numb)\b`,
			`(?i)\b(?:drunk|wasted|high)\s+again\b`,
			`(?i)\btook\s+(?:too\s+many|extra)\s+pills\b`,
		),
		"recent_loss": compileAll(
			`(?i)\b(?:passed\s+away|funeral|lost\s+my\s+(?:job|mom|dad|partner|husband|wife|friend))\b`,
			`(?i)\b(?:broke\s+up|divorce|left\s+me)\b`,
		),
		"sleep_disruption": compileAll(
			`(?i)\bcan'?t\s+sleep\b`,
			`(?i)\bhaven'?t\s+slept\b`,
			`(?i)\binsomnia\b`,
		),
		"prior_attempt": compileAll(
			`(?i)\blast\s+time\s+i\s+tried\b`,
			`(?i)\btried\s+(?:it\s+)?before\b`,
			`(?i)\bprevious\s+attempt\b`,
		),
	}
}

// defaultProtectiveFactors returns the protective-factor category table.
func defaultProtectiveFactors() factorTable {
	return factorTable{
		"support_network": compileAll(
			`(?i)\bmy\s+(?:therapist|counselor|friend|family|mom|dad|partner|sister|brother)\b`,
			`(?i)\btalk(?:ed|ing)?\s+(?:to|with)\s+(?:someone|my)\b`,
		),
		"treatment_engagement": compileAll(
			`(?i)\b(?:therapy|counseling|medication|treatment)\s+(?:session|appointment|is\s+helping)\b`,
			`(?i)\bstarted\s+(?:therapy|counseling|medication)\b`,
		),
		"coping_skills": compileAll(
			`(?i)\bbreathing\s+exercises?\b`,
			`(?i)\bgrounding\b`,
			`(?i)\bjournal(?:ing)?\b`,
			`(?i)\bmeditat(?:e|ion|ing)\b`,
			`(?i)\bwent\s+for\s+a\s+(?:walk|run)\b`,
		),
		"future_orientation": compileAll(
			`(?i)\blooking\s+forward\s+to\b`,
			`(?i)\bexcited\s+(?:about|for)\b`,
			`(?i)\bnext\s+(?:week|month)\s+i\b`,
		),
		"reasons_for_living": compileAll(
			`(?i)\bmy\s+(?:kids?|children|son|daughter|dog|cat|pet)\b`,
			`(?i)\bcouldn'?t\s+do\s+that\s+to\s+(?:them|my)\b`,
		),
	}
}

// defaultResponseActions maps a crisis level to the response actions the
// downstream crisis-response collaborator should take.
func defaultResponseActions() map[datatypes.CrisisLevel][]string {
	return map[datatypes.CrisisLevel][]string{
		datatypes.CrisisCritical: {
			"display crisis hotline immediately",
			"notify on-call clinician",
			"keep the user engaged until handoff",
			"surface emergency services guidance",
		},
		datatypes.CrisisSevere: {
			"display crisis hotline",
			"notify on-call clinician",
			"prompt safety plan review",
		},
		datatypes.CrisisHigh: {
			"surface coping resources",
			"suggest contacting a support person",
			"schedule a follow-up check-in",
		},
		datatypes.CrisisModerate: {
			"offer a grounding exercise",
			"gentle check-in on current feelings",
		},
		datatypes.CrisisLow: {
			"continue with supportive framing",
		},
	}
}
