// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/EmberwellAI/emberguard/services/validation/bias"
	"github.com/EmberwellAI/emberguard/services/validation/cache"
	"github.com/EmberwellAI/emberguard/services/validation/contentsafety"
	"github.com/EmberwellAI/emberguard/services/validation/crisis"
	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
	"github.com/EmberwellAI/emberguard/services/validation/pipeline"
)

// Default per-stage budgets. Crisis detection gets the highest
// priority so its result is dispatched first when the deadline is
// tight.
const (
	defaultCrisisTimeout    = 80 * time.Millisecond
	defaultSafetyTimeout    = 100 * time.Millisecond
	defaultAlignmentTimeout = 60 * time.Millisecond
	defaultBiasTimeout      = 60 * time.Millisecond
)

// BuildPipeline constructs the standard four-stage pipeline from
// configuration, applying any per-stage overrides.
func BuildPipeline(cfg Config) (*pipeline.Pipeline, error) {
	var crisisOpts []crisis.Option
	if cfg.InterventionThreshold != "" {
		crisisOpts = append(crisisOpts,
			crisis.WithInterventionThreshold(datatypes.CrisisLevel(cfg.InterventionThreshold)))
	}
	crisisDetector := crisis.New(crisisOpts...)

	safetyDetector, err := contentsafety.New()
	if err != nil {
		return nil, fmt.Errorf("build content safety stage: %w", err)
	}

	alignment := contentsafety.NewAlignmentAnalyzer()
	biasDetector := bias.New()

	p := pipeline.New()
	p.Register(crisis.StageID, crisisDetector.Analyze, defaultCrisisTimeout, 40)
	p.Register(contentsafety.StageID, safetyDetector.Analyze, defaultSafetyTimeout, 30)
	p.Register(contentsafety.AlignmentStageID, alignment.Analyze, defaultAlignmentTimeout, 20)
	p.Register(bias.StageID, biasDetector.Analyze, defaultBiasTimeout, 10)

	for id, override := range cfg.Stages {
		reg := findRegistration(p, id)
		if reg == nil {
			return nil, fmt.Errorf("stage override for unknown stage %q", id)
		}
		timeout := reg.Timeout
		if override.TimeoutMS > 0 {
			timeout = time.Duration(override.TimeoutMS) * time.Millisecond
		}
		priority := reg.Priority
		if override.Priority != 0 {
			priority = override.Priority
		}
		p.Register(id, reg.Fn, timeout, priority)
	}

	return p, nil
}

func findRegistration(p *pipeline.Pipeline, id string) *pipeline.Registration {
	for _, reg := range p.Registrations() {
		if reg.ID == id {
			return reg
		}
	}
	return nil
}

// BuildCache constructs the verdict cache from configuration. Returns
// nil when caching is disabled.
func BuildCache(cfg Config, logger *slog.Logger, opts ...cache.Option) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "", "memory":
		store = cache.NewMemoryStore(cfg.Cache.MaxEntries)
	case "badger":
		badgerCfg := cache.DefaultBadgerConfig(cfg.Cache.Path)
		badgerCfg.Logger = logger
		badgerStore, err := cache.NewBadgerStore(badgerCfg)
		if err != nil {
			return nil, fmt.Errorf("build badger cache store: %w", err)
		}
		store = badgerStore
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	return cache.New(store, cfg.Cache.TTL.Std(), logger, opts...), nil
}
