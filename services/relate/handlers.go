// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package relate

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/RelateFOSS/services/relate/dataset"
	"github.com/AleutianAI/RelateFOSS/services/relate/match"
)

// Handlers holds the HTTP handlers for the Relate service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers backed by the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleResolve handles POST /v1/relate/resolve.
//
// Description:
//
//	Resolves a raw name against the active dataset snapshot. A miss is a
//	successful 200 with strategy "none", not an error.
//
// Request Body:
//
//	ResolveRequest{name}
//
// Response:
//
//	200 OK: workflow.Resolution
//	400 Bad Request: Missing name, or name empty after normalization
//	503 Service Unavailable: Dataset not loaded
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleResolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleResolve")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "name is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	resolution, err := h.svc.Resolve(c.Request.Context(), req.Name)
	if err != nil {
		writeResolveError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

// HandleReload handles POST /v1/relate/reload.
//
// Description:
//
//	Re-reads the dataset source and atomically swaps the active snapshot.
//	On failure the previous snapshot remains active and serving, and the
//	error is surfaced to the caller.
//
// Response:
//
//	200 OK: ReloadResponse
//	500 Internal Server Error: Reload failed (old snapshot still serving)
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleReload(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReload")

	snap, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		logger.Error("reload failed; previous snapshot still active", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "dataset reload failed; previous snapshot still active",
			Code:    "RELOAD_FAILED",
			Details: err.Error(),
		})
		return
	}

	logger.Info("dataset reloaded", "rows", snap.RowCount)
	c.JSON(http.StatusOK, ReloadResponse{
		File:     snap.SourceIdentity,
		Rows:     snap.RowCount,
		LoadedAt: snap.LoadedAt,
	})
}

// HandleHealth handles GET /v1/relate/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if
//	running; the payload carries the active snapshot's provenance.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Data:    HealthData{File: h.svc.Config().DatasetPath},
	}
	if snap, err := h.svc.Snapshot(); err == nil {
		resp.Data.LastLoaded = snap.LoadedAt
		resp.Data.RowCount = snap.RowCount
	}
	c.JSON(http.StatusOK, resp)
}

// HandleReady handles GET /v1/relate/ready.
//
// Description:
//
//	Returns 503 until the initial dataset load has published a snapshot.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true)
//	503 Service Unavailable: ReadyResponse (Ready=false)
func (h *Handlers) HandleReady(c *gin.Context) {
	snap, err := h.svc.Snapshot()
	if err != nil {
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{Ready: false})
		return
	}
	c.JSON(http.StatusOK, ReadyResponse{Ready: true, Rows: snap.RowCount})
}

// writeResolveError maps resolution errors to HTTP responses.
func writeResolveError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, match.ErrInvalidName):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "name is empty after normalization",
			Code:  "INVALID_NAME",
		})
	case errors.Is(err, dataset.ErrNotLoaded):
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "dataset not loaded",
			Code:  "STORE_UNAVAILABLE",
		})
	default:
		logger.Error("resolution failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "resolution failed",
			Code:  "INTERNAL_ERROR",
		})
	}
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
