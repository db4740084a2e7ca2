package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hello-kubecon/internal/config"
	"hello-kubecon/internal/ingress"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/supervisor"
	"hello-kubecon/services"
)

// memorySupervisor keeps one layer per label and pretends to run processes
type memorySupervisor struct {
	labels  []string
	layers  map[string]models.Layer
	running map[string]bool
	// onIsRunning runs inside IsRunning, before the state is read
	onIsRunning func()
}

func newMemorySupervisor() *memorySupervisor {
	return &memorySupervisor{layers: map[string]models.Layer{}, running: map[string]bool{}}
}

func (m *memorySupervisor) GetPlan(ctx context.Context) (models.Plan, error) {
	var layers []models.Layer
	for _, l := range m.labels {
		layers = append(layers, m.layers[l])
	}
	return models.CombineLayers(layers...)
}

func (m *memorySupervisor) AddLayer(ctx context.Context, label string, layer models.Layer, combine bool) error {
	existing, ok := m.layers[label]
	if ok && !combine {
		return supervisor.ErrLayerExists
	}
	if !ok {
		m.labels = append(m.labels, label)
	}
	combined, err := models.CombineLayer(existing, layer)
	if err != nil {
		return err
	}
	m.layers[label] = combined
	return nil
}

func (m *memorySupervisor) check(name string) error {
	plan, _ := m.GetPlan(context.Background())
	if _, ok := plan.Services[name]; !ok {
		return supervisor.ErrServiceNotFound
	}
	return nil
}

func (m *memorySupervisor) Start(ctx context.Context, names ...string) error {
	for _, n := range names {
		if err := m.check(n); err != nil {
			return err
		}
		if m.running[n] {
			return supervisor.ErrAlreadyRunning
		}
		m.running[n] = true
	}
	return nil
}

func (m *memorySupervisor) Stop(ctx context.Context, names ...string) error {
	for _, n := range names {
		if err := m.check(n); err != nil {
			return err
		}
		m.running[n] = false
	}
	return nil
}

func (m *memorySupervisor) Restart(ctx context.Context, names ...string) error {
	for _, n := range names {
		if err := m.check(n); err != nil {
			return err
		}
		m.running[n] = true
	}
	return nil
}

func (m *memorySupervisor) IsRunning(ctx context.Context, name string) (bool, error) {
	if m.onIsRunning != nil {
		m.onIsRunning()
	}
	if err := m.check(name); err != nil {
		return false, err
	}
	return m.running[name], nil
}

func (m *memorySupervisor) Services(ctx context.Context) ([]models.ServiceInfo, error) {
	plan, _ := m.GetPlan(ctx)
	var infos []models.ServiceInfo
	for _, name := range plan.ServiceNames() {
		cur := models.StatusExited
		if m.running[name] {
			cur = models.StatusRunning
		}
		infos = append(infos, models.ServiceInfo{Name: name, Startup: plan.Services[name].Startup, Current: cur})
	}
	return infos, nil
}

type stubFetcher struct{ err error }

func (f *stubFetcher) Fetch(ctx context.Context) error { return f.err }
func (f *stubFetcher) Source() string                  { return "https://example.com/site.zip" }

type testEnv struct {
	router  *gin.Engine
	sv      *memorySupervisor
	fetcher *stubFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		App:     config.AppInfoConfig{Name: "hello-kubecon"},
		Ingress: config.IngressConfig{Hostname: "hellokubecon.juju", Class: "public", Port: 8080},
	}
	env := &testEnv{sv: newMemorySupervisor(), fetcher: &stubFetcher{}}
	server, err := services.NewServer(context.Background(), cfg, services.Deps{
		Supervisor: env.sv,
		Fetcher:    env.fetcher,
		Options:    config.NewMemoryOptionStore(nil),
		Publisher:  &ingress.MemoryPublisher{},
	})
	require.NoError(t, err)

	env.router = gin.New()
	NewAPIController(server).RegisterRoutes(env.router)
	NewEventController(server).RegisterRoutes(env.router)
	NewServiceController(server).RegisterRoutes(env.router)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHookConfigChangedBlocked(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/hooks/config-changed", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HookResponse](t, w)
	assert.Equal(t, "config-changed", resp.Event)
	assert.Equal(t, "blocked: No 'redirect-map' config specified", resp.Status)

	w = env.do(http.MethodGet, "/api/v1/plan", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{}\n", w.Body.String())
}

func TestHookUnknown(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/hooks/upgrade-charm", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "event.unknown", decode[models.ErrorResponse](t, w).Code)
}

func TestUpdateConfigAppliesPlan(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/v1/config", `{"redirect-map": "http://example.com/map"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://example.com/map", decode[map[string]string](t, w)["redirect-map"])

	w = env.do(http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, models.ActiveStatus(), decode[models.UnitStatus](t, w))

	w = env.do(http.MethodGet, "/api/v1/plan?format=json", "")
	plan := decode[models.Plan](t, w)
	assert.Equal(t, "http://example.com/map", plan.Services["gosherve"].Environment["REDIRECT_MAP_URL"])

	w = env.do(http.MethodGet, "/api/v1/plan", "")
	assert.Contains(t, w.Body.String(), "REDIRECT_MAP_URL: http://example.com/map")

	w = env.do(http.MethodGet, "/api/v1/services", "")
	infos := decode[[]models.ServiceInfo](t, w)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].IsRunning())
}

func TestUpdateConfigUnknownOption(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/v1/config", `{"port": "80"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/config", "")
	assert.Equal(t, map[string]string{"redirect-map": ""}, decode[map[string]string](t, w))
}

func TestPullSiteAction(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/actions/pull-site", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ActionResponse](t, w)
	assert.Equal(t, "pull-site", resp.Action)
	assert.Equal(t, map[string]string{"result": "site pulled"}, resp.Results)
}

func TestPullSiteActionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.err = errors.New("network down")

	w := env.do(http.MethodPost, "/api/v1/actions/pull-site", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "action.failed", resp.Code)
	assert.Contains(t, resp.Error, "network down")

	w = env.do(http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, models.MaintenanceStatus("Fetching web site"), decode[models.UnitStatus](t, w))
}

func TestServiceControl(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/services/gosherve/start", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.do(http.MethodPut, "/api/v1/config", `{"redirect-map": "http://example.com/map"}`)

	w = env.do(http.MethodPost, "/api/v1/services/gosherve/start", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/v1/services/gosherve/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.ServiceInfo](t, w).IsRunning())

	w = env.do(http.MethodPost, "/api/v1/services/gosherve/restart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.ServiceInfo](t, w).IsRunning())
}

func TestServiceControlWaitsForConfigChanged(t *testing.T) {
	env := newTestEnv(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.sv.onIsRunning = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	configDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		configDone <- env.do(http.MethodPut, "/api/v1/config", `{"redirect-map": "http://example.com/map"}`)
	}()
	<-entered

	startDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		startDone <- env.do(http.MethodPost, "/api/v1/services/gosherve/start", "")
	}()
	select {
	case <-startDone:
		t.Fatal("service start ran in the middle of config-changed")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)

	w := <-configDone
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ActiveStatus(), decodeStatus(t, env))

	w = <-startDone
	assert.Equal(t, http.StatusConflict, w.Code)
}

func decodeStatus(t *testing.T, env *testEnv) models.UnitStatus {
	t.Helper()
	return decode[models.UnitStatus](t, env.do(http.MethodGet, "/api/v1/status", ""))
}

func TestIngressAndHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/ingress", "")
	params := decode[ingress.Params](t, w)
	assert.Equal(t, "hellokubecon.juju", params.ServiceHostname)
	assert.Equal(t, "hello-kubecon", params.ServiceName)
	assert.Equal(t, 8080, params.ServicePort)

	w = env.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthResponse](t, w)
	assert.Equal(t, "UP", health.Status)
	assert.Equal(t, []string{"gosherve"}, health.Containers)
	assert.Equal(t, models.UnitUnknown, health.Unit.Name)

	env.do(http.MethodPost, "/api/v1/hooks/config-changed", "")
	w = env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello_kubecon_events_total")
	assert.Contains(t, w.Body.String(), "hello_kubecon_unit_status")
}
