package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/utils"
)

const DefaultStopGrace = 5 * time.Second

type labelledLayer struct {
	label string
	layer models.Layer
}

// LocalSupervisor runs plan services as child processes of the keeper.
type LocalSupervisor struct {
	StopGrace time.Duration
	WorkDir   string

	mu     sync.Mutex
	layers []labelledLayer
	procs  map[string]*ProcessInstance
}

func NewLocalSupervisor() *LocalSupervisor {
	return &LocalSupervisor{
		StopGrace: DefaultStopGrace,
		procs:     make(map[string]*ProcessInstance),
	}
}

func (s *LocalSupervisor) plan() (models.Plan, error) {
	layers := make([]models.Layer, 0, len(s.layers))
	for _, l := range s.layers {
		layers = append(layers, l.layer)
	}
	return models.CombineLayers(layers...)
}

func (s *LocalSupervisor) GetPlan(ctx context.Context) (models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan()
}

/**
 * Add a layer to the plan
 * @param {string} label - Layer label, unique per supervisor
 * @param {models.Layer} layer - Layer to add
 * @param {bool} combine - Merge into an existing layer with the same label
 * @returns {error} ErrLayerExists, ErrInvalidOverride or nil
 * @description
 * - A new label is appended after every existing layer
 * - Running processes are not touched, callers restart services themselves
 */
func (s *LocalSupervisor) AddLayer(ctx context.Context, label string, layer models.Layer, combine bool) error {
	if label == "" {
		return fmt.Errorf("layer label must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.layers {
		if existing.label != label {
			continue
		}
		if !combine {
			return fmt.Errorf("%w: %q", ErrLayerExists, label)
		}
		combined, err := models.CombineLayer(existing.layer, layer)
		if err != nil {
			return err
		}
		s.layers[i].layer = combined
		logger.Infof("Layer '%s' combined into plan", label)
		return nil
	}

	normalized, err := models.CombineLayer(models.Layer{}, layer)
	if err != nil {
		return err
	}
	s.layers = append(s.layers, labelledLayer{label: label, layer: normalized})
	logger.Infof("Layer '%s' added to plan", label)
	return nil
}

func (s *LocalSupervisor) lookup(plan models.Plan, name string) (models.Service, error) {
	svc, ok := plan.Services[name]
	if !ok {
		return models.Service{}, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}
	return svc, nil
}

func (s *LocalSupervisor) running(name string) bool {
	proc := s.procs[name]
	return proc != nil && proc.IsRunning()
}

func (s *LocalSupervisor) start(plan models.Plan, name string) error {
	svc, err := s.lookup(plan, name)
	if err != nil {
		return err
	}
	if s.running(name) {
		return fmt.Errorf("%w: %q", ErrAlreadyRunning, name)
	}
	command, args, err := utils.SplitCommand(svc.Command)
	if err != nil {
		return fmt.Errorf("service %q: %w", name, err)
	}
	proc := NewProcessInstance("service "+name, command, args, svc.Environment)
	proc.WorkDir = s.WorkDir
	if err := proc.StartProcess(); err != nil {
		return fmt.Errorf("start service %q: %w", name, err)
	}
	s.procs[name] = proc
	return nil
}

func (s *LocalSupervisor) stop(plan models.Plan, name string) error {
	if _, err := s.lookup(plan, name); err != nil {
		return err
	}
	proc := s.procs[name]
	if proc == nil {
		return nil
	}
	if err := proc.StopProcess(s.StopGrace); err != nil {
		return fmt.Errorf("stop service %q: %w", name, err)
	}
	return nil
}

// Start launches the named services with the current plan's command and environment
func (s *LocalSupervisor) Start(ctx context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plan()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.start(plan, name); err != nil {
			return err
		}
	}
	return nil
}

// Stop terminates the named services, services that are not running are skipped
func (s *LocalSupervisor) Stop(ctx context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plan()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.stop(plan, name); err != nil {
			return err
		}
	}
	return nil
}

/**
 * Restart services
 * @description
 * - Running services are stopped first
 * - Every named service is then started from the current plan
 */
func (s *LocalSupervisor) Restart(ctx context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plan()
	if err != nil {
		return err
	}
	for _, name := range names {
		if s.running(name) {
			if err := s.stop(plan, name); err != nil {
				return err
			}
		}
		if err := s.start(plan, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *LocalSupervisor) IsRunning(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plan()
	if err != nil {
		return false, err
	}
	if _, err := s.lookup(plan, name); err != nil {
		return false, err
	}
	return s.running(name), nil
}

func (s *LocalSupervisor) Services(ctx context.Context) ([]models.ServiceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plan()
	if err != nil {
		return nil, err
	}
	infos := make([]models.ServiceInfo, 0, len(plan.Services))
	for _, name := range plan.ServiceNames() {
		info := models.ServiceInfo{
			Name:    name,
			Startup: plan.Services[name].Startup,
			Current: models.StatusExited,
		}
		if proc := s.procs[name]; proc != nil {
			detail := proc.GetDetail()
			info.Current = detail.Status
			info.Pid = detail.Pid
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Process returns the process detail of a started service
func (s *LocalSupervisor) Process(name string) (models.ProcessDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proc := s.procs[name]
	if proc == nil {
		return models.ProcessDetail{}, false
	}
	return proc.GetDetail(), true
}

// AutoStart starts every enabled service that is not running yet
func (s *LocalSupervisor) AutoStart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.plan()
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range plan.ServiceNames() {
		if plan.Services[name].Startup != models.StartupEnabled || s.running(name) {
			continue
		}
		if err := s.start(plan, name); err != nil {
			logger.Errorf("Auto start service '%s' failed: %v", name, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every started service, used on shutdown
func (s *LocalSupervisor) StopAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.procs[name].StopProcess(s.StopGrace); err != nil {
			logger.Errorf("Failed to stop the service %s: %v", name, err)
		} else {
			logger.Infof("Successfully stopped the service %s", name)
		}
	}
}
