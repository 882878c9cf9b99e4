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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Relate routes with the router.
//
// Description:
//
//	Registers all /v1/relate/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/relate/resolve - Resolve a name to a relationship
//	GET  /v1/relate/stream - Stream resolution steps over a WebSocket
//	POST /v1/relate/reload - Reload the dataset snapshot
//	GET  /v1/relate/health - Health check
//	GET  /v1/relate/ready - Readiness check
//
// Example:
//
//	svc, _ := relate.NewService(cfg, nil)
//	handlers := relate.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	relate.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	relate := rg.Group("/relate")
	{
		// Resolution
		relate.POST("/resolve", handlers.HandleResolve)
		relate.GET("/stream", handlers.HandleResolveStream)

		// Dataset lifecycle
		relate.POST("/reload", handlers.HandleReload)

		// Health checks
		relate.GET("/health", handlers.HandleHealth)
		relate.GET("/ready", handlers.HandleReady)
	}
}
