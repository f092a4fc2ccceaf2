// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/planexpert/services/planexpert/eval"
)

// RegisterRoutes registers the problem service routes.
//
// Description:
//
//	Registers all /problem/* endpoints under rg. The group should already
//	carry any required middleware.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	h - The handlers instance
//
// Endpoints:
//
//	GET    /v1/problem/health
//	GET    /v1/problem/state
//	POST   /v1/problem/clear
//	GET    /v1/problem/events (websocket)
//
//	GET    /v1/problem/instances
//	POST   /v1/problem/instances
//	DELETE /v1/problem/instances/:name
//
//	GET    /v1/problem/predicates
//	POST   /v1/problem/predicates
//	POST   /v1/problem/predicates/remove
//	POST   /v1/problem/predicates/exists
//
//	GET    /v1/problem/functions
//	POST   /v1/problem/functions
//	PUT    /v1/problem/functions
//	POST   /v1/problem/functions/get
//
//	GET    /v1/problem/goal
//	PUT    /v1/problem/goal
//	DELETE /v1/problem/goal
//	GET    /v1/problem/goal/satisfied
//
//	POST   /v1/problem/check
//	POST   /v1/problem/apply
//	POST   /v1/problem/value
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	p := rg.Group("/problem")

	p.GET("/health", h.HandleHealth)
	p.GET("/state", h.HandleGetState)
	p.POST("/clear", h.HandleClear)
	p.GET("/events", h.HandleEvents)

	p.GET("/instances", h.HandleListInstances)
	p.POST("/instances", h.HandleAddInstance)
	p.DELETE("/instances/:name", h.HandleRemoveInstance)

	p.GET("/predicates", h.HandleListPredicates)
	p.POST("/predicates", h.HandleAddPredicate)
	p.POST("/predicates/remove", h.HandleRemovePredicate)
	p.POST("/predicates/exists", h.HandleExistPredicate)

	p.GET("/functions", h.HandleListFunctions)
	p.POST("/functions", h.HandleAddFunction)
	p.PUT("/functions", h.HandleUpdateFunction)
	p.POST("/functions/get", h.HandleGetFunction)

	p.GET("/goal", h.HandleGetGoal)
	p.PUT("/goal", h.HandleSetGoal)
	p.DELETE("/goal", h.HandleClearGoal)
	p.GET("/goal/satisfied", h.HandleGoalSatisfied)

	p.POST("/check", h.HandleEval(eval.OpCheck))
	p.POST("/apply", h.HandleEval(eval.OpApply))
	p.POST("/value", h.HandleEval(eval.OpValue))
}
