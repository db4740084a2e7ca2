package charm

import (
	"context"
	"errors"
	"fmt"

	"hello-kubecon/internal/models"
	"hello-kubecon/internal/supervisor"
)

// fakeSupervisor keeps the plan in memory and records every mutation.
type fakeSupervisor struct {
	labels  []string
	layers  map[string]models.Layer
	running map[string]bool
	calls   []string
	failOn  string
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{
		layers:  make(map[string]models.Layer),
		running: make(map[string]bool),
	}
}

func (f *fakeSupervisor) fail(op string) error {
	if f.failOn == op {
		return fmt.Errorf("%s: injected failure", op)
	}
	return nil
}

func (f *fakeSupervisor) GetPlan(ctx context.Context) (models.Plan, error) {
	if err := f.fail("get-plan"); err != nil {
		return models.Plan{}, err
	}
	layers := make([]models.Layer, 0, len(f.labels))
	for _, label := range f.labels {
		layers = append(layers, f.layers[label])
	}
	return models.CombineLayers(layers...)
}

func (f *fakeSupervisor) AddLayer(ctx context.Context, label string, layer models.Layer, combine bool) error {
	if err := f.fail("add-layer"); err != nil {
		return err
	}
	f.calls = append(f.calls, "add-layer:"+label)
	existing, ok := f.layers[label]
	if ok && !combine {
		return supervisor.ErrLayerExists
	}
	if !ok {
		f.labels = append(f.labels, label)
	}
	combined, err := models.CombineLayer(existing, layer)
	if err != nil {
		return err
	}
	f.layers[label] = combined
	return nil
}

func (f *fakeSupervisor) Start(ctx context.Context, names ...string) error {
	if err := f.fail("start"); err != nil {
		return err
	}
	for _, name := range names {
		f.calls = append(f.calls, "start:"+name)
		if f.running[name] {
			return supervisor.ErrAlreadyRunning
		}
		f.running[name] = true
	}
	return nil
}

func (f *fakeSupervisor) Stop(ctx context.Context, names ...string) error {
	if err := f.fail("stop"); err != nil {
		return err
	}
	for _, name := range names {
		f.calls = append(f.calls, "stop:"+name)
		f.running[name] = false
	}
	return nil
}

func (f *fakeSupervisor) Restart(ctx context.Context, names ...string) error {
	if err := f.fail("restart"); err != nil {
		return err
	}
	for _, name := range names {
		f.calls = append(f.calls, "restart:"+name)
		f.running[name] = true
	}
	return nil
}

func (f *fakeSupervisor) IsRunning(ctx context.Context, name string) (bool, error) {
	return f.running[name], nil
}

func (f *fakeSupervisor) Services(ctx context.Context) ([]models.ServiceInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSupervisor) resetCalls() {
	f.calls = nil
}

type fakeFetcher struct {
	err   error
	count int
}

func (f *fakeFetcher) Fetch(ctx context.Context) error {
	f.count++
	return f.err
}

func (f *fakeFetcher) Source() string {
	return "https://example.com/site.zip"
}
