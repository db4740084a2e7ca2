package charm

import (
	"fmt"
	"sort"
	"sync"

	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/metrics"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/supervisor"
)

/**
 * Unit 保存单元状态和工作负载容器
 * @description
 * - 每次 SetStatus 覆盖上一次的状态，不保留历史
 * - 容器按名字注册，对应一个进程监管者
 */
type Unit struct {
	Name string

	mutex      sync.Mutex
	status     models.UnitStatus
	containers map[string]supervisor.Supervisor
}

func NewUnit(name string) *Unit {
	return &Unit{
		Name:       name,
		status:     models.UnknownStatus(),
		containers: make(map[string]supervisor.Supervisor),
	}
}

func (u *Unit) AddContainer(name string, sv supervisor.Supervisor) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.containers[name] = sv
}

// Container returns the supervisor of a workload container
func (u *Unit) Container(name string) (supervisor.Supervisor, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	sv, ok := u.containers[name]
	if !ok {
		return nil, fmt.Errorf("container %q not found", name)
	}
	return sv, nil
}

func (u *Unit) ContainerNames() []string {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	names := make([]string, 0, len(u.containers))
	for name := range u.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (u *Unit) Status() models.UnitStatus {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.status
}

func (u *Unit) SetStatus(status models.UnitStatus) {
	u.mutex.Lock()
	u.status = status
	u.mutex.Unlock()

	metrics.SetUnitStatus(status.Name)
	logger.Debugf("Unit status set to %s", status)
}
