// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/EmberwellAI/emberguard/pkg/logging"
	"github.com/EmberwellAI/emberguard/services/validation"
	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// runCheck validates a single piece of content from a file or stdin and
// prints the verdict as JSON. It runs the same pipeline as serve mode
// but without caching, tracing, or event delivery.
func runCheck(cmd *cobra.Command, args []string) error {
	text, err := readCheckInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no content to validate")
	}

	cfg, err := validation.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	p, err := validation.BuildPipeline(cfg)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	logger := logging.New(logging.Config{Level: logging.LevelWarn})
	orchestrator := validation.NewOrchestrator(p, validation.WithLogger(logger.Slog()))

	content := checkContent(text)
	vctx := datatypes.ValidationContext{
		UserID:     checkUserID,
		Scope:      datatypes.ValidationScope(checkScope),
		StrictMode: checkStrict || cfg.StrictMode,
		TimeoutMS:  checkTimeout,
	}
	if vctx.TimeoutMS == 0 {
		vctx.TimeoutMS = cfg.TimeoutMS
	}

	verdict := orchestrator.Validate(cmd.Context(), content, vctx)

	enc := json.NewEncoder(os.Stdout)
	if checkPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(verdict); err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}

	// A rejecting or escalating verdict exits non-zero so shell
	// pipelines can gate on the outcome.
	if verdict.Action.AtLeast(datatypes.ActionReject) {
		os.Exit(2)
	}
	return nil
}

// checkContent wraps raw CLI text as a content item. Content entered at
// the terminal is treated as user-produced.
func checkContent(text string) datatypes.ContentItem {
	return datatypes.ContentItem{
		ID:     uuid.NewString(),
		Text:   text,
		Source: datatypes.SourceUser,
	}
}

func readCheckInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}
