package service

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/models"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service operations (list/start/stop/restart)",
	Long:  `Service operations (list/start/stop/restart) on the services of the supervisor plan`,
}

const serviceExample = `  # restart gosherve
  hello-kubecon service restart gosherve`

/**
 * Send a control request for one service
 * @param {string} name - Service name from the plan
 * @param {string} op - start/stop/restart
 * @returns {models.ServiceInfo} Service state after the operation
 * @returns {error} Connection or server error
 */
func controlService(name, op string) (models.ServiceInfo, error) {
	client := root.Client(30 * time.Second)
	defer client.Close()

	var info models.ServiceInfo
	resp, err := client.Post(fmt.Sprintf("/api/v1/services/%s/%s", name, op), nil)
	if err != nil {
		return info, err
	}
	if err := resp.Unmarshal(&info); err != nil {
		return info, fmt.Errorf("%s service '%s' failed: %w", op, name, err)
	}
	return info, nil
}

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
