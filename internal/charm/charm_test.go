package charm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hello-kubecon/internal/config"
	"hello-kubecon/internal/framework"
	"hello-kubecon/internal/ingress"
	"hello-kubecon/internal/metrics"
	"hello-kubecon/internal/models"
)

type harness struct {
	charm   *HelloKubecon
	sv      *fakeSupervisor
	options *config.MemoryOptionStore
	fetcher *fakeFetcher
	ingress *ingress.MemoryPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sv:      newFakeSupervisor(),
		options: config.NewMemoryOptionStore(nil),
		fetcher: &fakeFetcher{},
		ingress: &ingress.MemoryPublisher{},
	}
	unit := NewUnit("hello-kubecon/0")
	unit.AddContainer(ContainerName, h.sv)
	params := IngressParams("hello-kubecon", config.IngressConfig{Hostname: "hellokubecon.juju", Class: "public", Port: 8080})

	c, err := NewHelloKubecon(context.Background(), unit, h.options, h.fetcher, h.ingress, params)
	require.NoError(t, err)
	h.charm = c
	return h
}

func (h *harness) setConfig(t *testing.T, redirectMap string) {
	t.Helper()
	_, err := h.options.Update(map[string]string{config.OptionRedirectMap: redirectMap})
	require.NoError(t, err)
}

func (h *harness) plan(t *testing.T) models.Plan {
	t.Helper()
	plan, err := h.sv.GetPlan(context.Background())
	require.NoError(t, err)
	return plan
}

func expectedLayer(redirectMap string) models.Layer {
	return models.Layer{
		Summary:     "gosherve layer",
		Description: "pebble config layer for gosherve",
		Services: map[string]models.Service{
			"gosherve": {
				Override: "replace",
				Summary:  "gosherve service",
				Command:  "/gosherve",
				Startup:  "enabled",
				Environment: map[string]string{
					"REDIRECT_MAP_URL": redirectMap,
					"WEBROOT":          "/srv/hello-kubecon",
				},
			},
		},
	}
}

func TestGosherveLayer(t *testing.T) {
	opts := config.DefaultOptions()
	if diff := cmp.Diff(expectedLayer(""), GosherveLayer(opts)); diff != "" {
		t.Errorf("layer mismatch (-want +got):\n%s", diff)
	}

	opts[config.OptionRedirectMap] = "test value"
	if diff := cmp.Diff(expectedLayer("test value"), GosherveLayer(opts)); diff != "" {
		t.Errorf("layer mismatch (-want +got):\n%s", diff)
	}
}

func TestGosherveLayerRedirectMapIdentity(t *testing.T) {
	for _, v := range []string{"http://example.com/map", "https://a.b/c?d=e&f", " spaced ", "ünïcode"} {
		layer := GosherveLayer(config.Options{config.OptionRedirectMap: v})
		assert.Equal(t, v, layer.Services[ServiceName].Environment["REDIRECT_MAP_URL"])
	}
}

func TestNewHelloKubeconRegistersIngress(t *testing.T) {
	h := newHarness(t)

	want := ingress.Params{
		ServiceHostname: "hellokubecon.juju",
		IngressClass:    "public",
		ServiceName:     "hello-kubecon",
		ServicePort:     8080,
	}
	assert.Equal(t, []ingress.Params{want}, h.ingress.Published())
	assert.Equal(t, want, h.charm.Ingress().Params())
	assert.Equal(t, models.UnknownStatus(), h.charm.Unit().Status())
	assert.Equal(t, []string{ContainerName}, h.charm.Unit().ContainerNames())
}

func TestConfigChangedBlocked(t *testing.T) {
	h := newHarness(t)
	before := testutil.ToFloat64(metrics.ReconcileCounter(metrics.ReconcileBlocked))

	require.NoError(t, h.charm.OnConfigChanged(context.Background()))

	out, err := h.plan(t).ToYAML()
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)
	assert.Empty(t, h.sv.calls)
	assert.Equal(t, models.BlockedStatus("No 'redirect-map' config specified"), h.charm.Unit().Status())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReconcileCounter(metrics.ReconcileBlocked)))
}

func TestConfigChangedBlockedKeepsAppliedPlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setConfig(t, "http://example.com/map")
	require.NoError(t, h.charm.OnConfigChanged(ctx))
	applied := h.plan(t)
	h.sv.resetCalls()

	h.setConfig(t, "")
	require.NoError(t, h.charm.OnConfigChanged(ctx))

	if diff := cmp.Diff(applied, h.plan(t)); diff != "" {
		t.Errorf("plan changed while blocked (-want +got):\n%s", diff)
	}
	assert.Empty(t, h.sv.calls)
	assert.True(t, h.sv.running[ServiceName])
	assert.Equal(t, models.BlockedStatus("No 'redirect-map' config specified"), h.charm.Unit().Status())
}

func TestConfigChangedAppliesLayer(t *testing.T) {
	h := newHarness(t)
	h.setConfig(t, "http://example.com/map")

	require.NoError(t, h.charm.OnConfigChanged(context.Background()))

	plan := h.plan(t)
	require.Equal(t, []string{"gosherve"}, plan.ServiceNames())
	env := plan.Services["gosherve"].Environment
	assert.Equal(t, "http://example.com/map", env["REDIRECT_MAP_URL"])
	assert.Equal(t, "/srv/hello-kubecon", env["WEBROOT"])
	assert.Equal(t, []string{"add-layer:gosherve", "start:gosherve"}, h.sv.calls)
	assert.Equal(t, models.ActiveStatus(), h.charm.Unit().Status())
}

func TestConfigChangedRestartsRunningService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setConfig(t, "http://example.com/map")
	require.NoError(t, h.charm.OnConfigChanged(ctx))
	h.sv.resetCalls()

	h.setConfig(t, "http://example.com/map2")
	require.NoError(t, h.charm.OnConfigChanged(ctx))

	assert.Equal(t, []string{"add-layer:gosherve", "stop:gosherve", "start:gosherve"}, h.sv.calls)
	assert.Equal(t, "http://example.com/map2", h.plan(t).Services["gosherve"].Environment["REDIRECT_MAP_URL"])
	assert.Equal(t, models.ActiveStatus(), h.charm.Unit().Status())
}

func TestConfigChangedIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setConfig(t, "http://example.com/map")
	before := testutil.ToFloat64(metrics.ReconcileCounter(metrics.ReconcileUnchanged))

	require.NoError(t, h.charm.OnConfigChanged(ctx))
	require.NoError(t, h.charm.OnConfigChanged(ctx))

	assert.Equal(t, []string{"add-layer:gosherve", "start:gosherve"}, h.sv.calls)
	assert.Equal(t, models.ActiveStatus(), h.charm.Unit().Status())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReconcileCounter(metrics.ReconcileUnchanged)))
}

func TestConfigChangedComparesAppliedPlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setConfig(t, "http://example.com/map")
	require.NoError(t, h.charm.OnConfigChanged(ctx))

	// 外部修改了计划，相同配置也要重新应用
	drift := models.Layer{Services: map[string]models.Service{
		"gosherve": {Override: models.OverrideMerge, Environment: map[string]string{"WEBROOT": "/tmp"}},
	}}
	require.NoError(t, h.sv.AddLayer(ctx, "drift", drift, false))
	h.sv.resetCalls()

	require.NoError(t, h.charm.OnConfigChanged(ctx))
	assert.Equal(t, []string{"add-layer:gosherve", "stop:gosherve", "start:gosherve"}, h.sv.calls)
}

func TestConfigChangedKeepsUnrelatedServices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	other := models.Layer{Services: map[string]models.Service{
		"other": {Override: models.OverrideReplace, Command: "/other"},
	}}
	require.NoError(t, h.sv.AddLayer(ctx, LayerLabel, other, false))
	h.sv.resetCalls()
	h.setConfig(t, "http://example.com/map")

	require.NoError(t, h.charm.OnConfigChanged(ctx))

	assert.Equal(t, []string{"gosherve", "other"}, h.plan(t).ServiceNames())
}

func TestConfigChangedSupervisorError(t *testing.T) {
	for _, op := range []string{"get-plan", "add-layer", "stop", "start"} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.setConfig(t, "http://example.com/map")
			if op == "stop" {
				require.NoError(t, h.charm.OnConfigChanged(ctx))
				h.setConfig(t, "http://example.com/map2")
			}
			status := h.charm.Unit().Status()
			h.sv.failOn = op

			err := h.charm.OnConfigChanged(ctx)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "injected failure")
			assert.Equal(t, status, h.charm.Unit().Status())
		})
	}
}

func TestConfigChangedMissingContainer(t *testing.T) {
	c, err := NewHelloKubecon(context.Background(), NewUnit("hello-kubecon/0"), config.NewMemoryOptionStore(nil),
		&fakeFetcher{}, &ingress.MemoryPublisher{}, IngressParams("hello-kubecon", config.IngressConfig{Hostname: "h", Port: 1}))
	require.NoError(t, err)
	assert.Error(t, c.OnConfigChanged(context.Background()))
}

func TestInstallFetchesSite(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.charm.OnInstall(context.Background()))
	assert.Equal(t, 1, h.fetcher.count)
	assert.Equal(t, models.ActiveStatus(), h.charm.Unit().Status())
}

func TestFetchSiteFailureLeavesMaintenance(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("network down")
	h.fetcher.err = boom

	err := h.charm.OnInstall(context.Background())
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, models.MaintenanceStatus("Fetching web site"), h.charm.Unit().Status())
}

func TestPullSiteAction(t *testing.T) {
	for _, redirectMap := range []string{"", "http://example.com/map"} {
		h := newHarness(t)
		h.setConfig(t, redirectMap)
		ev := framework.NewActionEvent(framework.ActionPullSite, nil)

		require.NoError(t, h.charm.OnPullSiteAction(context.Background(), ev))
		assert.Equal(t, map[string]string{"result": "site pulled"}, ev.Results())
		assert.Equal(t, models.ActiveStatus(), h.charm.Unit().Status())
	}
}

func TestPullSiteActionThroughDispatcher(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("network down")
	d := framework.NewDispatcher(h.charm)

	out, err := d.Dispatch(context.Background(), framework.Event{Kind: framework.EventAction, Action: framework.ActionPullSite})
	assert.True(t, errors.Is(err, framework.ErrActionFailed))
	assert.Contains(t, out.Message, "network down")
	assert.Nil(t, out.Results)
}
