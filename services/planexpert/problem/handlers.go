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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/planexpert/services/planexpert/eval"
	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// Handlers contains the HTTP handlers for the problem service.
type Handlers struct {
	store     *Store
	evaluator *eval.Evaluator
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewHandlers creates handlers over store. A nil logger uses
// slog.Default().
func NewHandlers(store *Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     store,
		evaluator: eval.New(eval.WithLogger(logger)),
		logger:    logger,
		validate:  validator.New(),
	}
}

// bind decodes and validates the JSON body into v. On failure it writes a
// 400 response and returns false.
func (h *Handlers) bind(c *gin.Context, logger *slog.Logger, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		logger.Warn("Request failed validation", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	return true
}

// fail writes the error response for err.
func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Info("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// HandleHealth handles GET /v1/problem/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// -----------------------------------------------------------------------------
// Instances
// -----------------------------------------------------------------------------

// HandleListInstances handles GET /v1/problem/instances.
func (h *Handlers) HandleListInstances(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListInstances")
	out, err := h.store.Instances(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleAddInstance handles POST /v1/problem/instances.
//
// Request Body:
//
//	state.Instance
//
// Response:
//
//	204 No Content
//	400 Bad Request: INVALID_REQUEST, INVALID_INSTANCE
func (h *Handlers) HandleAddInstance(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddInstance")
	var req state.Instance
	if !h.bind(c, logger, &req) {
		return
	}
	if err := h.store.AddInstance(c.Request.Context(), req); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRemoveInstance handles DELETE /v1/problem/instances/:name.
func (h *Handlers) HandleRemoveInstance(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRemoveInstance")
	if err := h.store.RemoveInstance(c.Request.Context(), c.Param("name")); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Predicates
// -----------------------------------------------------------------------------

// HandleListPredicates handles GET /v1/problem/predicates.
func (h *Handlers) HandleListPredicates(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListPredicates")
	out, err := h.store.Predicates(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleAddPredicate handles POST /v1/problem/predicates.
//
// Response:
//
//	204 No Content
//	400 Bad Request: INVALID_REQUEST, INVALID_PREDICATE
//	422 Unprocessable Entity: UNKNOWN_INSTANCE
func (h *Handlers) HandleAddPredicate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddPredicate")
	var req state.Predicate
	if !h.bind(c, logger, &req) {
		return
	}
	if err := h.store.AddPredicate(c.Request.Context(), req); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRemovePredicate handles POST /v1/problem/predicates/remove.
func (h *Handlers) HandleRemovePredicate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRemovePredicate")
	var req state.Predicate
	if !h.bind(c, logger, &req) {
		return
	}
	if err := h.store.RemovePredicate(c.Request.Context(), req); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleExistPredicate handles POST /v1/problem/predicates/exists.
func (h *Handlers) HandleExistPredicate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleExistPredicate")
	var req state.Predicate
	if !h.bind(c, logger, &req) {
		return
	}
	ok, err := h.store.ExistPredicate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, ExistsResponse{Exists: ok})
}

// -----------------------------------------------------------------------------
// Functions
// -----------------------------------------------------------------------------

// HandleListFunctions handles GET /v1/problem/functions.
func (h *Handlers) HandleListFunctions(c *gin.Context) {
	logger := h.requestLogger(c, "HandleListFunctions")
	out, err := h.store.Functions(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleAddFunction handles POST /v1/problem/functions.
func (h *Handlers) HandleAddFunction(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAddFunction")
	var req state.Function
	if !h.bind(c, logger, &req) {
		return
	}
	if err := h.store.AddFunction(c.Request.Context(), req); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleUpdateFunction handles PUT /v1/problem/functions.
//
// Response:
//
//	204 No Content
//	404 Not Found: FUNCTION_NOT_FOUND
func (h *Handlers) HandleUpdateFunction(c *gin.Context) {
	logger := h.requestLogger(c, "HandleUpdateFunction")
	var req state.Function
	if !h.bind(c, logger, &req) {
		return
	}
	if err := h.store.UpdateFunction(c.Request.Context(), req); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetFunction handles POST /v1/problem/functions/get.
func (h *Handlers) HandleGetFunction(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetFunction")
	var req FunctionQuery
	if !h.bind(c, logger, &req) {
		return
	}
	f, err := h.store.Function(c.Request.Context(), req.Name, req.Params)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// -----------------------------------------------------------------------------
// Goal and state
// -----------------------------------------------------------------------------

// HandleGetGoal handles GET /v1/problem/goal.
func (h *Handlers) HandleGetGoal(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetGoal")
	goal, err := h.store.Goal(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// HandleSetGoal handles PUT /v1/problem/goal.
func (h *Handlers) HandleSetGoal(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSetGoal")
	var req tree.Tree
	if !h.bind(c, logger, &req) {
		return
	}
	if err := h.store.SetGoal(c.Request.Context(), req); err != nil {
		h.fail(c, logger, err)
		return
	}
	logger.Info("Goal set", "goal", req.String())
	c.Status(http.StatusNoContent)
}

// HandleClearGoal handles DELETE /v1/problem/goal.
func (h *Handlers) HandleClearGoal(c *gin.Context) {
	logger := h.requestLogger(c, "HandleClearGoal")
	if err := h.store.ClearGoal(c.Request.Context()); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGoalSatisfied handles GET /v1/problem/goal/satisfied.
//
// Description:
//
//	Checks the stored goal against the stored state. Quantifiers range
//	over the registered instances.
func (h *Handlers) HandleGoalSatisfied(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGoalSatisfied")
	ctx := c.Request.Context()
	goal, err := h.store.Goal(ctx)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, GoalSatisfiedResponse{Satisfied: h.evaluator.Check(ctx, goal, h.store, 0)})
}

// HandleGetState handles GET /v1/problem/state.
func (h *Handlers) HandleGetState(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetState")
	ctx := c.Request.Context()
	instances, err := h.store.Instances(ctx)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, StateResponse{Instances: instances, Snapshot: snap})
}

// HandleClear handles POST /v1/problem/clear.
func (h *Handlers) HandleClear(c *gin.Context) {
	logger := h.requestLogger(c, "HandleClear")
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.fail(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Evaluation
// -----------------------------------------------------------------------------

// HandleEval returns a handler for POST /v1/problem/{check,apply,value}.
//
// Description:
//
//	Evaluates the request tree against the stored state, using the
//	store directly as the state accessor. apply mutates the store;
//	effects are not rolled back when part of the formula fails.
func (h *Handlers) HandleEval(op string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleEval")
		var req EvalRequest
		if !h.bind(c, logger, &req) {
			return
		}
		if err := req.Tree.Validate(); err != nil {
			h.fail(c, logger, err)
			return
		}

		ctx := c.Request.Context()
		var resp EvalResponse
		switch op {
		case eval.OpCheck:
			resp.Result = h.evaluator.Check(ctx, req.Tree, h.store, req.Node)
		case eval.OpApply:
			resp.Result = h.evaluator.Apply(ctx, req.Tree, h.store, req.Node)
		case eval.OpValue:
			resp.Value, resp.Result = h.evaluator.FunctionValue(ctx, req.Tree, h.store, req.Node)
		default:
			h.fail(c, logger, errors.New("unsupported evaluation "+op))
			return
		}
		logger.Debug("Evaluated", "op", op, "expression", req.Tree.Render(req.Node), "result", resp.Result)
		c.JSON(http.StatusOK, resp)
	}
}

// -----------------------------------------------------------------------------
// Update stream
// -----------------------------------------------------------------------------

const (
	eventBuffer    = 64
	eventWriteWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleEvents handles GET /v1/problem/events.
//
// Description:
//
//	Upgrades to a websocket and writes one JSON Event per committed
//	change until the client disconnects. The subscription is taken before
//	the upgrade completes, so every change made after the handshake is
//	delivered unless the client falls behind by more than the buffer.
//	Messages from the client are ignored.
func (h *Handlers) HandleEvents(c *gin.Context) {
	logger := h.requestLogger(c, "HandleEvents")

	events, cancel := h.store.Events().Subscribe(eventBuffer)
	defer cancel()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()
	logger.Info("Event subscriber connected")

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			logger.Info("Event subscriber disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := ws.WriteJSON(ev); err != nil {
				logger.Info("Failed to write event", "error", err)
				return
			}
		}
	}
}

// getOrCreateRequestID returns the request's X-Request-ID, generating one
// when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
