package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hello-kubecon/internal/config"
	"hello-kubecon/internal/framework"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/supervisor"
	"hello-kubecon/services"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Server holding the unit and its collaborators
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register health, metrics and status routes
 * @param {*gin.Engine} r - Gin router instance
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/v1/status", a.Status)
}

// @Summary 业务就绪探针
// @Description 返回服务版本、启动时间、单元状态和关键指标统计结果
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.GetHealthz(c.Request.Context()))
}

// @Summary 单元状态
// @Tags Unit
// @Produce json
// @Success 200 {object} models.UnitStatus
// @Router /api/v1/status [get]
func (a *APIController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.Unit().Status())
}

// respondError maps sentinel errors to HTTP status codes
func respondError(c *gin.Context, code string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, framework.ErrUnknownEvent), errors.Is(err, supervisor.ErrServiceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, config.ErrUnknownOption):
		status = http.StatusBadRequest
	}
	c.JSON(status, &models.ErrorResponse{
		Code:  code,
		Error: err.Error(),
	})
}
