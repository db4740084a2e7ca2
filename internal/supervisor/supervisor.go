package supervisor

import (
	"context"
	"errors"

	"hello-kubecon/internal/models"
)

var (
	ErrServiceNotFound = errors.New("service not found in plan")
	ErrAlreadyRunning  = errors.New("service already running")
	ErrLayerExists     = errors.New("layer already exists")
	ErrInvalidOverride = models.ErrInvalidOverride
)

/**
 * Process supervisor driven by a declarative plan
 * @description
 * - GetPlan returns the combined view of every layer added so far
 * - AddLayer with combine=true merges into an existing layer of the same label
 * - Start/Stop take service names from the plan
 * - Restart stops running services and starts them again in one step
 * - IsRunning reports the run state of one service
 */
type Supervisor interface {
	GetPlan(ctx context.Context) (models.Plan, error)
	AddLayer(ctx context.Context, label string, layer models.Layer, combine bool) error
	Start(ctx context.Context, names ...string) error
	Stop(ctx context.Context, names ...string) error
	Restart(ctx context.Context, names ...string) error
	IsRunning(ctx context.Context, name string) (bool, error)
	Services(ctx context.Context) ([]models.ServiceInfo, error)
}
