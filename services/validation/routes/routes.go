// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the HTTP surface for the validation service.
//
// The HTTP layer is a thin harness over the orchestrator: the verdict
// is the product, so POST /v1/validate always answers 200 with the
// verdict body and only malformed requests get a 4xx.
package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	inputval "github.com/EmberwellAI/emberguard/pkg/validation"
	"github.com/EmberwellAI/emberguard/services/validation"
	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// ValidateRequest is the POST /v1/validate body.
type ValidateRequest struct {
	Content datatypes.ContentItem       `json:"content" binding:"required"`
	Context datatypes.ValidationContext `json:"context"`
}

// SetupRoutes registers all endpoints on router.
func SetupRoutes(router *gin.Engine, orchestrator *validation.Orchestrator) {
	router.GET("/healthz", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/validate", HandleValidate(orchestrator))
	}
}

// NewRouter builds a gin engine with the standard middleware stack.
func NewRouter(serviceName string, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(RequestLogger(logger))
	return router
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleValidate runs one validation and returns the verdict.
//
// # Description
//
// Binds {content, context} JSON and calls Validate. The response is
// always 200 with the verdict body when the request parses: a rejected
// or escalated verdict is a successful validation, not an HTTP error.
func HandleValidate(orchestrator *validation.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Content.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content.text is required"})
			return
		}
		// User and session ids end up in cache keys and log records,
		// so malformed ones are rejected before any stage runs.
		if err := inputval.ValidateOptionalIdentifier("context.user_id", req.Context.UserID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := inputval.ValidateOptionalIdentifier("context.session_id", req.Context.SessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		verdict := orchestrator.Validate(c.Request.Context(), req.Content, req.Context)
		c.JSON(http.StatusOK, verdict)
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
