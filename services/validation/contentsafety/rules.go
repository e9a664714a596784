// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package contentsafety

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// embeddedRules holds the raw bytes of safety_rules.yaml, baked into
// the binary at compile time so the rule set cannot be tampered with on
// the host filesystem without recompiling.
//
//go:embed safety_rules.yaml
var embeddedRules []byte

// Rule is one content safety rule from the rule table.
type Rule struct {
	ID          string  `yaml:"id"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Pattern     string  `yaml:"pattern"`
	Weight      float64 `yaml:"weight"`

	// AgeGroups restricts the rule to specific age groups. Empty means
	// the rule applies to all content. A restricted rule also applies
	// to content with no age tag: unknown age is treated
	// conservatively.
	AgeGroups []datatypes.AgeGroup `yaml:"age_groups,omitempty"`

	compiled *regexp.Regexp
}

// ruleFile is the YAML envelope of the embedded rule table.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// loadRules parses and compiles the embedded rule table, sorted by
// descending weight so the heaviest violations are reported first.
func loadRules() ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(embeddedRules, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded safety rules: %w", err)
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Weight < 0 || r.Weight > 1 {
			return nil, fmt.Errorf("rule %s has weight %v outside [0,1]", r.ID, r.Weight)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern for rule %s: %w", r.ID, err)
		}
		r.compiled = re
	}
	sort.SliceStable(f.Rules, func(i, j int) bool {
		return f.Rules[i].Weight > f.Rules[j].Weight
	})
	return f.Rules, nil
}

// appliesTo reports whether the rule applies to the given age group.
func (r *Rule) appliesTo(group datatypes.AgeGroup) bool {
	if len(r.AgeGroups) == 0 || group == "" {
		return true
	}
	for _, g := range r.AgeGroups {
		if g == group {
			return true
		}
	}
	return false
}

// remediation maps a violated category to its recommendation text.
var remediation = map[string]string{
	"self_harm":              "remove or soften self-harm references and surface support resources",
	"graphic_violence":       "reduce graphic detail; keep conflict off-page",
	"violence":               "reframe violent content with less explicit language",
	"hate_speech":            "remove dehumanizing language entirely",
	"harassment":             "remove targeted insults; restate feedback neutrally",
	"abuse":                  "route abuse disclosure to the appropriate support flow",
	"substance":              "avoid normalizing substance misuse; add harm-reduction framing",
	"sexual_content":         "remove sexual content for this audience",
	"dangerous_instructions": "never include operational harm instructions",
	"eating_disorder":        "remove disordered-eating encouragement and add support framing",
	"trauma_detail":          "summarize rather than relive traumatic detail",
	"profanity":              "replace strong profanity for this audience",
}
