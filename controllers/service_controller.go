package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hello-kubecon/services"
)

type ServiceController struct {
	server *services.Server
}

/**
 * Create new Service controller instance
 * @param {*services.Server} server - Server holding the supervisor
 * @returns {*ServiceController} New Service controller instance
 */
func NewServiceController(server *services.Server) *ServiceController {
	return &ServiceController{
		server: server,
	}
}

/**
 * Register supervisor routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Plan (yaml or json)
 *   - Service management (list/start/stop/restart)
 *   - Published ingress params
 */
func (s *ServiceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.GET("/plan", s.GetPlan)
	api.GET("/services", s.ListServices)
	api.POST("/services/:name/start", s.StartService)
	api.POST("/services/:name/stop", s.StopService)
	api.POST("/services/:name/restart", s.RestartService)
	api.GET("/ingress", s.GetIngress)
}

// GetPlan returns the combined supervisor plan
//
//	@Summary		Get plan
//	@Tags			Services
//	@Produce		plain,json
//	@Param			format	query		string	false	"yaml (default) or json"
//	@Success		200		{object}	models.Plan
//	@Router			/api/v1/plan [get]
func (s *ServiceController) GetPlan(c *gin.Context) {
	plan, err := s.server.Supervisor().GetPlan(c.Request.Context())
	if err != nil {
		respondError(c, "plan.get", err)
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, plan)
		return
	}
	out, err := plan.ToYAML()
	if err != nil {
		respondError(c, "plan.encode", err)
		return
	}
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", []byte(out))
}

// ListServices lists plan services with their run state
//
//	@Summary		List all services
//	@Tags			Services
//	@Produce		json
//	@Success		200	{array}		models.ServiceInfo
//	@Failure		500	{object}	models.ErrorResponse
//	@Router			/api/v1/services [get]
func (s *ServiceController) ListServices(c *gin.Context) {
	infos, err := s.server.Supervisor().Services(c.Request.Context())
	if err != nil {
		respondError(c, "service.list", err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

// StartService starts a plan service
//
//	@Summary		Start service
//	@Tags			Services
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceInfo
//	@Failure		404		{object}	models.ErrorResponse	"Service not found"
//	@Failure		409		{object}	models.ErrorResponse	"Service already running"
//	@Router			/api/v1/services/{name}/start [post]
func (s *ServiceController) StartService(c *gin.Context) {
	s.control(c, services.ServiceStart)
}

// StopService stops a plan service
//
//	@Summary		Stop service
//	@Tags			Services
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceInfo
//	@Failure		404		{object}	models.ErrorResponse	"Service not found"
//	@Router			/api/v1/services/{name}/stop [post]
func (s *ServiceController) StopService(c *gin.Context) {
	s.control(c, services.ServiceStop)
}

// RestartService stops the service when running, then starts it
//
//	@Summary		Restart service
//	@Tags			Services
//	@Param			name	path		string					true	"Service name"
//	@Success		200		{object}	models.ServiceInfo
//	@Failure		404		{object}	models.ErrorResponse	"Service not found"
//	@Router			/api/v1/services/{name}/restart [post]
func (s *ServiceController) RestartService(c *gin.Context) {
	s.control(c, services.ServiceRestart)
}

func (s *ServiceController) control(c *gin.Context, op string) {
	info, err := s.server.ControlService(c.Request.Context(), op, c.Param("name"))
	if err != nil {
		respondError(c, "service."+op, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetIngress returns the params published over the ingress relation
//
//	@Summary		Ingress params
//	@Tags			Ingress
//	@Produce		json
//	@Success		200	{object}	ingress.Params
//	@Router			/api/v1/ingress [get]
func (s *ServiceController) GetIngress(c *gin.Context) {
	c.JSON(http.StatusOK, s.server.Ingress().Params())
}
