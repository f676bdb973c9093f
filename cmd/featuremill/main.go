// Featuremill - Behavioral Feature Engineering Pipeline
// Copyright 2026 Featuremill Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/featuremill/featuremill

// Command featuremill runs one batch feature-engineering pass: raw event
// CSVs in, Parquet feature tables and a metrics snapshot out.
//
//	featuremill --input-dir /data/raw --output-dir /data/features
//
// Exit code 0 on full success; non-zero on any failure, with the error
// logged before exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/featuremill/featuremill/internal/config"
	"github.com/featuremill/featuremill/internal/logging"
	"github.com/featuremill/featuremill/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	inputDir := flag.String("input-dir", "", "directory containing the raw event CSV files (required)")
	outputDir := flag.String("output-dir", "", "directory for feature tables and the metrics snapshot (required)")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "featuremill: %v\n", err)
		return 1
	}

	// Flags override anything the config layers produced.
	if *inputDir != "" {
		cfg.Input.Dir = *inputDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if cfg.Input.Dir == "" || cfg.Output.Dir == "" {
		fmt.Fprintln(os.Stderr, "featuremill: --input-dir and --output-dir are required")
		flag.Usage()
		return 2
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Single top-level error boundary: anything a stage could not handle
	// ends up here, logged with run context, and the process exits
	// non-zero. Retries belong to the external scheduler.
	if _, err := pipeline.New(cfg).Run(ctx); err != nil {
		return 1
	}
	return 0
}
