package charm

import (
	"context"
	"fmt"

	"hello-kubecon/internal/config"
	"hello-kubecon/internal/framework"
	"hello-kubecon/internal/ingress"
	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/metrics"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/supervisor"
)

const (
	ContainerName = "gosherve"
	ServiceName   = "gosherve"
	LayerLabel    = "gosherve"

	WebRoot = "/srv/hello-kubecon"

	StatusFetchingSite  = "Fetching web site"
	StatusNoRedirectMap = "No 'redirect-map' config specified"
)

// SiteFetcher downloads the site content into the web root.
type SiteFetcher interface {
	Fetch(ctx context.Context) error
	Source() string
}

/**
 * HelloKubecon 管理 gosherve 工作负载
 * @property {*Unit} unit - Unit status and containers
 * @property {config.OptionStore} options - Re-read on every event
 * @property {SiteFetcher} fetcher - Site archive fetcher
 * @property {*ingress.Requirer} ingress - Ingress relation, registered at construction
 */
type HelloKubecon struct {
	unit    *Unit
	options config.OptionStore
	fetcher SiteFetcher
	ingress *ingress.Requirer
}

var _ framework.Handler = (*HelloKubecon)(nil)

/**
 * 创建 charm 并注册 ingress
 * @param {context.Context} ctx - Used for the ingress publish
 * @param {*Unit} unit - Unit owning the gosherve container
 * @param {config.OptionStore} options - Option store
 * @param {SiteFetcher} fetcher - Site fetcher
 * @param {ingress.Publisher} publisher - Ingress relation publisher
 * @param {ingress.Params} params - Static ingress params
 */
func NewHelloKubecon(ctx context.Context, unit *Unit, options config.OptionStore, fetcher SiteFetcher,
	publisher ingress.Publisher, params ingress.Params) (*HelloKubecon, error) {
	req, err := ingress.NewRequirer(ctx, publisher, params)
	if err != nil {
		return nil, err
	}
	return &HelloKubecon{
		unit:    unit,
		options: options,
		fetcher: fetcher,
		ingress: req,
	}, nil
}

// IngressParams builds the static ingress registration for an application
func IngressParams(appName string, cfg config.IngressConfig) ingress.Params {
	return ingress.Params{
		ServiceHostname: cfg.Hostname,
		IngressClass:    cfg.Class,
		ServiceName:     appName,
		ServicePort:     cfg.Port,
	}
}

func (c *HelloKubecon) Unit() *Unit {
	return c.unit
}

func (c *HelloKubecon) Ingress() *ingress.Requirer {
	return c.ingress
}

func (c *HelloKubecon) OnInstall(ctx context.Context) error {
	return c.fetchSite(ctx)
}

/**
 * 处理配置变化
 * @description
 * - 配置不完整时设置 Blocked，不修改监管者
 * - 计划与期望的服务一致时只设置 Active
 * - 否则合并新层，运行中的服务先停止，再启动
 * - 监管者的错误直接返回，状态保持不变
 */
func (c *HelloKubecon) OnConfigChanged(ctx context.Context) error {
	container, err := c.unit.Container(ContainerName)
	if err != nil {
		return err
	}
	opts, err := c.options.Load()
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	if !c.checkConfig(opts) {
		metrics.IncReconcile(metrics.ReconcileBlocked)
		logger.Warnf("Reconcile blocked: %s", StatusNoRedirectMap)
		return nil
	}

	outcome, err := c.reconcile(ctx, container, GosherveLayer(opts))
	if err != nil {
		metrics.IncReconcile(metrics.ReconcileError)
		return err
	}
	metrics.IncReconcile(outcome)
	c.unit.SetStatus(models.ActiveStatus())
	return nil
}

func (c *HelloKubecon) reconcile(ctx context.Context, container supervisor.Supervisor, layer models.Layer) (string, error) {
	plan, err := container.GetPlan(ctx)
	if err != nil {
		return "", fmt.Errorf("get plan: %w", err)
	}
	if models.ServicesEqual(plan.Services, layer.Services) {
		logger.Debugf("Plan already matches layer '%s'", LayerLabel)
		return metrics.ReconcileUnchanged, nil
	}
	logger.Debugf("Plan differs from layer '%s':\n%s", LayerLabel, models.ServicesDiff(plan.Services, layer.Services))

	if err := container.AddLayer(ctx, LayerLabel, layer, true); err != nil {
		return "", fmt.Errorf("add layer '%s': %w", LayerLabel, err)
	}
	logger.Infof("Added updated layer '%s' to plan", LayerLabel)

	running, err := container.IsRunning(ctx, ServiceName)
	if err != nil {
		return "", fmt.Errorf("check service '%s': %w", ServiceName, err)
	}
	if running {
		if err := container.Stop(ctx, ServiceName); err != nil {
			return "", fmt.Errorf("stop service '%s': %w", ServiceName, err)
		}
	}
	if err := container.Start(ctx, ServiceName); err != nil {
		return "", fmt.Errorf("start service '%s': %w", ServiceName, err)
	}
	logger.Infof("Restarted %s service", ServiceName)
	return metrics.ReconcileApplied, nil
}

// checkConfig sets Blocked and returns false when redirect-map is empty
func (c *HelloKubecon) checkConfig(opts config.Options) bool {
	if opts.Get(config.OptionRedirectMap) == "" {
		c.unit.SetStatus(models.BlockedStatus(StatusNoRedirectMap))
		return false
	}
	return true
}

// GosherveLayer is the desired supervisor layer for the given options
func GosherveLayer(opts config.Options) models.Layer {
	return models.Layer{
		Summary:     "gosherve layer",
		Description: "pebble config layer for gosherve",
		Services: map[string]models.Service{
			ServiceName: {
				Override: models.OverrideReplace,
				Summary:  "gosherve service",
				Command:  "/gosherve",
				Startup:  models.StartupEnabled,
				Environment: map[string]string{
					"REDIRECT_MAP_URL": opts.Get(config.OptionRedirectMap),
					"WEBROOT":          WebRoot,
				},
			},
		},
	}
}

func (c *HelloKubecon) OnPullSiteAction(ctx context.Context, event *framework.ActionEvent) error {
	if err := c.fetchSite(ctx); err != nil {
		return err
	}
	event.SetResults(map[string]string{"result": "site pulled"})
	return nil
}

// fetchSite leaves the unit in maintenance when the fetch fails
func (c *HelloKubecon) fetchSite(ctx context.Context) error {
	c.unit.SetStatus(models.MaintenanceStatus(StatusFetchingSite))
	logger.Infof("Downloading site archive from %s", c.fetcher.Source())

	if err := c.fetcher.Fetch(ctx); err != nil {
		metrics.IncSiteFetch(metrics.ResultFailure)
		return fmt.Errorf("fetch site: %w", err)
	}
	metrics.IncSiteFetch(metrics.ResultSuccess)
	c.unit.SetStatus(models.ActiveStatus())
	return nil
}
