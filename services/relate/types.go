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

import "time"

// ResolveRequest is the request body for POST /v1/relate/resolve and the
// per-message request on the WebSocket stream.
type ResolveRequest struct {
	// Name is the raw query name. Required.
	Name string `json:"name" binding:"required"`
}

// ReloadResponse is the response for POST /v1/relate/reload.
type ReloadResponse struct {
	// File is the dataset source identity.
	File string `json:"file"`

	// Rows is the new snapshot's record count.
	Rows int `json:"rows"`

	// LoadedAt is when the new snapshot was built.
	LoadedAt time.Time `json:"loaded_at"`
}

// HealthData reports dataset state inside the health response.
type HealthData struct {
	// File is the dataset source identity.
	File string `json:"file"`

	// LastLoaded is when the active snapshot was built (zero if none).
	LastLoaded time.Time `json:"last_loaded,omitzero"`

	// RowCount is the active snapshot's record count.
	RowCount int `json:"row_count"`
}

// HealthResponse is the response for GET /v1/relate/health.
type HealthResponse struct {
	// Status is "healthy" whenever the process is serving.
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Data describes the active snapshot.
	Data HealthData `json:"data"`
}

// ReadyResponse is the response for GET /v1/relate/ready.
type ReadyResponse struct {
	// Ready is true once a dataset snapshot is loaded and serving.
	Ready bool `json:"ready"`

	// Rows is the active snapshot's record count (0 when not ready).
	Rows int `json:"rows"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
