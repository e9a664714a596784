// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bias

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

func analyze(t *testing.T, text string, vctx datatypes.ValidationContext) datatypes.StagePayload {
	t.Helper()
	p, err := New().Analyze(context.Background(), datatypes.ContentItem{ID: "c", Text: text}, vctx)
	require.NoError(t, err)
	return p
}

func TestCleanContentHasNoCategories(t *testing.T) {
	p := analyze(t, "The firefighter carried the hose up the hill while the crowd cheered.", datatypes.ValidationContext{})
	assert.Empty(t, p.BiasCategories)
	assert.Equal(t, datatypes.ActionApprove, p.RecommendedAction)
}

func TestCategoryScoring(t *testing.T) {
	p := analyze(t, "The chairman told the stewardess to man up.", datatypes.ValidationContext{})

	require.Contains(t, p.BiasCategories, "gender")
	// Three gender matches at weight 0.35, capped at 1.0.
	assert.InDelta(t, 1.0, p.BiasCategories["gender"], 1e-9)
	assert.NotEmpty(t, p.Indicators)
}

func TestScoreCap(t *testing.T) {
	p := analyze(t, "chairman chairman chairman chairman chairman", datatypes.ValidationContext{})
	assert.LessOrEqual(t, p.BiasCategories["gender"], 1.0)
}

func TestOverallIsMeanOfNonZero(t *testing.T) {
	// One gender match (0.35) and one age_framing match (0.3):
	// overall = (0.35+0.3)/2, below the default modify threshold.
	p := analyze(t, "The policeman said she was too old to retrain.", datatypes.ValidationContext{})
	require.Len(t, p.BiasCategories, 2)
	assert.Equal(t, datatypes.ActionApprove, p.RecommendedAction)
}

func TestPronouncedBiasRecommendsModify(t *testing.T) {
	p := analyze(t, "The chairman called the stewardess a hysterical woman and told the policeman to man up.", datatypes.ValidationContext{})
	assert.Equal(t, datatypes.ActionModify, p.RecommendedAction)
}

func TestStrictModeLowersThreshold(t *testing.T) {
	text := "The policeman said she was too old to retrain."
	relaxed := analyze(t, text, datatypes.ValidationContext{})
	strict := analyze(t, text, datatypes.ValidationContext{StrictMode: true})

	assert.Equal(t, datatypes.ActionApprove, relaxed.RecommendedAction)
	assert.Equal(t, datatypes.ActionModify, strict.RecommendedAction)
}

func TestSubstitutionSuggestions(t *testing.T) {
	p := analyze(t, "The chairman thanked mankind.", datatypes.ValidationContext{})
	require.Len(t, p.Recommendations, 2)
	assert.Contains(t, p.Recommendations[0], "chairperson")
	assert.Contains(t, p.Recommendations[1], "humanity")
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Analyze(ctx, datatypes.ContentItem{Text: "anything"}, datatypes.ValidationContext{})
	assert.Error(t, err)
}

func TestIndicatorsAreDeterministic(t *testing.T) {
	text := "The senile chairman went crazy when the stewardess said ok boomer."

	first := analyze(t, text, datatypes.ValidationContext{})
	require.Greater(t, len(first.BiasCategories), 1,
		"text must trip more than one category to exercise ordering")

	for i := 0; i < 20; i++ {
		p := analyze(t, text, datatypes.ValidationContext{})
		assert.Equal(t, first.Indicators, p.Indicators,
			"indicator order must not vary between runs")
		assert.Equal(t, first.Recommendations, p.Recommendations)
	}
}
