// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// ===== Global Command Variables =====

var (
	configPath string

	// serve flags
	listenAddr string

	// check flags
	checkUserID  string
	checkScope   string
	checkStrict  bool
	checkTimeout int
	checkPretty  bool

	rootCmd = &cobra.Command{
		Use:   "emberguard",
		Short: "Content validation service for therapeutic applications",
		Long: `Emberguard validates user-facing content before it is shown to
people in sensitive therapeutic contexts. Every piece of content runs
through a multi-stage pipeline (crisis detection, content safety,
therapeutic alignment, bias detection) and receives a single merged
verdict within a bounded deadline.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the validation HTTP service",
		Long: `Starts the Emberguard validation service.

The service exposes:
  POST /v1/validate   validate a piece of content
  GET  /healthz       liveness probe
  GET  /metrics       Prometheus metrics

Configuration is read from the file given with --config; missing
settings fall back to built-in defaults.`,
		RunE: runServe, // Defined in cmd_serve.go
	}

	checkCmd = &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a single piece of content and print the verdict",
		Long: `Runs one piece of content through the full validation pipeline
and prints the verdict as JSON.

The content text is read from the given file, or from stdin when the
argument is "-" or omitted:

  emberguard check draft.txt
  echo "How are you feeling today?" | emberguard check`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheck, // Defined in cmd_check.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")

	checkCmd.Flags().StringVar(&checkUserID, "user", "", "User ID for the validation context")
	checkCmd.Flags().StringVar(&checkScope, "scope", "", "Validation scope (standard or strict)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Enable strict mode")
	checkCmd.Flags().IntVar(&checkTimeout, "timeout-ms", 0, "Per-validation deadline in milliseconds")
	checkCmd.Flags().BoolVar(&checkPretty, "pretty", true, "Indent the JSON output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}
