// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmberwellAI/emberguard/services/validation"
	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	p, err := validation.BuildPipeline(validation.DefaultConfig())
	require.NoError(t, err)
	orchestrator := validation.NewOrchestrator(p)

	router := gin.New()
	SetupRoutes(router, orchestrator)
	return router
}

func postValidate(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateEndpointReturnsVerdict(t *testing.T) {
	router := testRouter(t)

	w := postValidate(t, router, gin.H{
		"content": gin.H{"id": "c1", "text": "The garden looks lovely today."},
		"context": gin.H{"user_id": "user-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var verdict datatypes.Verdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.Equal(t, datatypes.StatusCompleted, verdict.Status)
	assert.Equal(t, datatypes.ActionApprove, verdict.Action)
	assert.NotEmpty(t, verdict.ValidationID)
}

func TestValidateEndpointRejectedVerdictIsStill200(t *testing.T) {
	router := testRouter(t)

	w := postValidate(t, router, gin.H{
		"content": gin.H{"id": "c2", "text": "I keep thinking about the razor in my drawer."},
	})
	require.Equal(t, http.StatusOK, w.Code,
		"a rejecting verdict is a successful validation")

	var verdict datatypes.Verdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.NotEqual(t, datatypes.ActionApprove, verdict.Action)
}

func TestValidateEndpointRejectsMalformedBody(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateEndpointRequiresContentText(t *testing.T) {
	router := testRouter(t)

	w := postValidate(t, router, gin.H{
		"content": gin.H{"id": "c3"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "content.text")
}

func TestValidateEndpointRejectsMalformedUserID(t *testing.T) {
	router := testRouter(t)

	w := postValidate(t, router, gin.H{
		"content": gin.H{"id": "c4", "text": "Just checking in."},
		"context": gin.H{"user_id": "users/../admin"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user_id")
}
