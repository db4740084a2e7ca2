package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hello-kubecon/internal/charm"
	"hello-kubecon/internal/config"
	"hello-kubecon/internal/env"
	"hello-kubecon/internal/framework"
	"hello-kubecon/internal/ingress"
	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/metrics"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/site"
	"hello-kubecon/internal/supervisor"
)

var Version = "dev"

// Service operations accepted by ControlService
const (
	ServiceStart   = "start"
	ServiceStop    = "stop"
	ServiceRestart = "restart"
)

/**
 * Collaborators of the server, replaced in tests
 * @property {supervisor.Supervisor} supervisor - Supervisor of the gosherve container
 * @property {charm.SiteFetcher} fetcher - Site archive fetcher
 * @property {config.OptionStore} options - Charm option store
 * @property {ingress.Publisher} publisher - Ingress relation publisher
 */
type Deps struct {
	Supervisor supervisor.Supervisor
	Fetcher    charm.SiteFetcher
	Options    config.OptionStore
	Publisher  ingress.Publisher
}

type Server struct {
	cfg        *config.AppConfig
	deps       Deps
	unit       *charm.Unit
	charm      *charm.HelloKubecon
	dispatcher *framework.Dispatcher
	startTime  time.Time
}

// DefaultDeps builds the on-disk collaborators described by cfg
func DefaultDeps(cfg *config.AppConfig) Deps {
	return Deps{
		Supervisor: supervisor.NewLocalSupervisor(),
		Fetcher: &site.Fetcher{
			URL:         cfg.Site.URL,
			StorageDir:  cfg.Site.StorageDir,
			ArchiveRoot: cfg.Site.ArchiveRoot,
			TargetName:  cfg.Site.TargetName,
			Client:      http.DefaultClient,
		},
		Options:   config.NewFileOptionStore(cfg.OptionsFile),
		Publisher: ingress.NewRelationPublisher(env.StateDir),
	}
}

/**
 * Create new server instance
 * @param {context.Context} ctx - Used for the ingress registration
 * @param {config.AppConfig} cfg - Application configuration
 * @param {Deps} deps - Collaborators, see DefaultDeps
 * @returns {*Server} Server with unit, charm and dispatcher wired
 * @returns {error} Ingress registration error
 */
func NewServer(ctx context.Context, cfg *config.AppConfig, deps Deps) (*Server, error) {
	unit := charm.NewUnit(cfg.App.Name + "/0")
	unit.AddContainer(charm.ContainerName, deps.Supervisor)

	c, err := charm.NewHelloKubecon(ctx, unit, deps.Options, deps.Fetcher, deps.Publisher,
		charm.IngressParams(cfg.App.Name, cfg.Ingress))
	if err != nil {
		return nil, fmt.Errorf("create charm: %w", err)
	}
	return &Server{
		cfg:        cfg,
		deps:       deps,
		unit:       unit,
		charm:      c,
		dispatcher: framework.NewDispatcher(c),
		startTime:  time.Now(),
	}, nil
}

func (s *Server) Unit() *charm.Unit {
	return s.unit
}

func (s *Server) Supervisor() supervisor.Supervisor {
	return s.deps.Supervisor
}

func (s *Server) Options() config.OptionStore {
	return s.deps.Options
}

func (s *Server) Ingress() *ingress.Requirer {
	return s.charm.Ingress()
}

func (s *Server) Dispatch(ctx context.Context, ev framework.Event) (*framework.Outcome, error) {
	return s.dispatcher.Dispatch(ctx, ev)
}

/**
 * Start, stop or restart a plan service
 * @param {context.Context} ctx - Passed to the supervisor
 * @param {string} op - ServiceStart, ServiceStop or ServiceRestart
 * @param {string} name - Service name
 * @returns {models.ServiceInfo} Run state after the operation
 * @returns {error} Supervisor error or unknown operation
 * @description
 * - 与事件分发共用一把锁，不会插入到 config-changed 中间
 */
func (s *Server) ControlService(ctx context.Context, op string, name string) (models.ServiceInfo, error) {
	sv := s.deps.Supervisor
	err := s.dispatcher.Exclusive(func() error {
		switch op {
		case ServiceStart:
			return sv.Start(ctx, name)
		case ServiceStop:
			return sv.Stop(ctx, name)
		case ServiceRestart:
			return sv.Restart(ctx, name)
		default:
			return fmt.Errorf("unknown service operation %q", op)
		}
	})
	if err != nil {
		return models.ServiceInfo{}, err
	}
	logger.Infof("Service '%s' %s done", name, op)
	return s.ServiceInfo(ctx, name)
}

// ServiceInfo returns the run state of one service, only the name is set when the plan lacks it
func (s *Server) ServiceInfo(ctx context.Context, name string) (models.ServiceInfo, error) {
	infos, err := s.deps.Supervisor.Services(ctx)
	if err != nil {
		return models.ServiceInfo{}, err
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return models.ServiceInfo{Name: name}, nil
}

/**
 * Bring the unit up after the daemon starts
 * @param {context.Context} ctx - Cancels the install download
 * @description
 * - Runs install when the site has not been fetched yet
 * - Runs config-changed so the plan matches the stored options
 * - Failures are logged, the server keeps running so the operator can retry
 */
func (s *Server) Init(ctx context.Context) {
	if f, ok := s.deps.Fetcher.(*site.Fetcher); !ok || !f.Exists() {
		if _, err := s.Dispatch(ctx, framework.Event{Kind: framework.EventInstall}); err != nil {
			logger.Errorf("Install failed: %v", err)
		}
	}
	if _, err := s.Dispatch(ctx, framework.Event{Kind: framework.EventConfigChanged}); err != nil {
		logger.Errorf("Initial config-changed failed: %v", err)
	}
}

// StartAllService starts enabled services that config-changed did not start
func (s *Server) StartAllService(ctx context.Context) {
	local, ok := s.deps.Supervisor.(*supervisor.LocalSupervisor)
	if !ok {
		return
	}
	if err := local.AutoStart(ctx); err != nil {
		logger.Errorf("Auto start failed: %v", err)
	}
}

func (s *Server) StopAllService(ctx context.Context) {
	if local, ok := s.deps.Supervisor.(*supervisor.LocalSupervisor); ok {
		local.StopAll(ctx)
	}
}

/**
 * Health check response
 * @returns {models.HealthResponse} Version, uptime, unit status, containers and request metrics
 */
func (s *Server) GetHealthz(ctx context.Context) models.HealthResponse {
	active := 0
	if infos, err := s.deps.Supervisor.Services(ctx); err == nil {
		for _, info := range infos {
			if info.IsRunning() {
				active++
			}
		}
	}
	unit := s.unit.Status()
	status := "UP"
	if unit.Name == models.UnitBlocked {
		status = "BLOCKED"
	}
	return models.HealthResponse{
		Version:    Version,
		StartTime:  s.startTime.Format(time.RFC3339),
		Status:     status,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Unit:       unit,
		Containers: s.unit.ContainerNames(),
		Metrics: models.Metrics{
			TotalRequests:  metrics.TotalRequests(),
			ErrorRequests:  metrics.ErrorRequests(),
			ActiveServices: active,
		},
	}
}
