// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/EmberwellAI/emberguard/pkg/logging"
	"github.com/EmberwellAI/emberguard/services/validation"
	"github.com/EmberwellAI/emberguard/services/validation/cache"
	"github.com/EmberwellAI/emberguard/services/validation/events"
	"github.com/EmberwellAI/emberguard/services/validation/observability"
	"github.com/EmberwellAI/emberguard/services/validation/routes"
)

const serviceName = "emberguard-validation"

// runServe wires the full service: config, logging, metrics, pipeline,
// cache, event sink, tracing, and the HTTP router.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := validation.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Service: serviceName,
		JSON:    cfg.LogJSON,
	})
	defer logger.Close()

	metrics := observability.InitMetrics()

	p, err := validation.BuildPipeline(cfg)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	store, err := validation.BuildCache(cfg, logger.Slog(),
		cache.WithStoreErrorHook(func() { metrics.CacheStoreErrorsTotal.Inc() }))
	if err != nil {
		return fmt.Errorf("building cache: %w", err)
	}

	opts := []validation.OrchestratorOption{
		validation.WithSink(events.NewLoggingSink(logger.Slog())),
		validation.WithMetrics(metrics),
		validation.WithLogger(logger.Slog()),
	}
	if store != nil {
		opts = append(opts, validation.WithCache(store))
		defer store.Close()
	}
	orchestrator := validation.NewOrchestrator(p, opts...)

	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint, logger)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		defer cleanup(context.Background())
	}

	router := routes.NewRouter(serviceName, logger.Slog())
	routes.SetupRoutes(router, orchestrator)

	logger.Info("starting validation service",
		"listen_addr", cfg.ListenAddr,
		"stages", len(p.Registrations()),
		"cache_enabled", store != nil,
		"strict_mode", cfg.StrictMode)

	return router.Run(cfg.ListenAddr)
}

// initTracer sets up OTLP trace export over gRPC.
//
// # Limitations
//
//   - Uses an insecure gRPC connection (appropriate for internal networks)
func initTracer(endpoint string, logger *logging.Logger) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}
