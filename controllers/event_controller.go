package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hello-kubecon/internal/framework"
	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/models"
	"hello-kubecon/services"
)

type EventController struct {
	server *services.Server
}

func NewEventController(server *services.Server) *EventController {
	return &EventController{server: server}
}

/**
 * Register hook, action and config routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - POST /api/v1/hooks/:name runs install or config-changed
 * - POST /api/v1/actions/:name runs an action
 * - GET/PUT /api/v1/config reads or updates the charm options
 */
func (e *EventController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.POST("/hooks/:name", e.RunHook)
	api.POST("/actions/:name", e.RunAction)
	api.GET("/config", e.GetConfig)
	api.PUT("/config", e.UpdateConfig)
}

// HookResponse is returned by POST /api/v1/hooks/:name
type HookResponse struct {
	Event  string `json:"event"`
	Status string `json:"status"`
}

// ActionResponse is returned by POST /api/v1/actions/:name
type ActionResponse struct {
	Action  string            `json:"action"`
	Results map[string]string `json:"results"`
}

// RunHook dispatches a lifecycle hook
//
//	@Summary		Run hook
//	@Tags			Events
//	@Produce		json
//	@Param			name	path		string					true	"install or config-changed"
//	@Success		200		{object}	HookResponse
//	@Failure		404		{object}	models.ErrorResponse	"Unknown hook"
//	@Failure		500		{object}	models.ErrorResponse	"Hook failed"
//	@Router			/api/v1/hooks/{name} [post]
func (e *EventController) RunHook(c *gin.Context) {
	ev, err := framework.ParseHook(c.Param("name"))
	if err != nil {
		respondError(c, "event.unknown", err)
		return
	}
	if _, err := e.server.Dispatch(c.Request.Context(), ev); err != nil {
		respondError(c, "hook.failed", err)
		return
	}
	c.JSON(http.StatusOK, HookResponse{Event: ev.Name(), Status: e.server.Unit().Status().String()})
}

// RunAction dispatches an operator action, the request body holds the action params
//
//	@Summary		Run action
//	@Tags			Events
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string					true	"Action name"
//	@Success		200		{object}	ActionResponse
//	@Failure		404		{object}	models.ErrorResponse	"Unknown action"
//	@Failure		500		{object}	models.ErrorResponse	"Action failed"
//	@Router			/api/v1/actions/{name} [post]
func (e *EventController) RunAction(c *gin.Context) {
	var params map[string]string
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: "action.params", Error: err.Error()})
			return
		}
	}
	ev, err := framework.ParseAction(c.Param("name"), params)
	if err != nil {
		respondError(c, "event.unknown", err)
		return
	}
	out, err := e.server.Dispatch(c.Request.Context(), ev)
	if err != nil {
		if errors.Is(err, framework.ErrActionFailed) {
			c.JSON(http.StatusInternalServerError, &models.ErrorResponse{Code: "action.failed", Error: out.Message})
			return
		}
		respondError(c, "action.failed", err)
		return
	}
	c.JSON(http.StatusOK, ActionResponse{Action: ev.Action, Results: out.Results})
}

// GetConfig returns the current charm options
//
//	@Summary		Get options
//	@Tags			Config
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/api/v1/config [get]
func (e *EventController) GetConfig(c *gin.Context) {
	opts, err := e.server.Options().Load()
	if err != nil {
		respondError(c, "config.load", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// UpdateConfig stores options and dispatches config-changed
//
//	@Summary		Update options
//	@Tags			Config
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		400	{object}	models.ErrorResponse	"Unknown option"
//	@Failure		500	{object}	models.ErrorResponse	"config-changed failed"
//	@Router			/api/v1/config [put]
func (e *EventController) UpdateConfig(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: "config.invalid", Error: err.Error()})
		return
	}
	opts, err := e.server.Options().Update(values)
	if err != nil {
		respondError(c, "config.update", err)
		return
	}
	logger.Infof("Options updated: %v", values)
	if _, err := e.server.Dispatch(c.Request.Context(), framework.Event{Kind: framework.EventConfigChanged}); err != nil {
		respondError(c, "hook.failed", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
