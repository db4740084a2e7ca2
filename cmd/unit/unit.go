package unit

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/ingress"
	"hello-kubecon/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示单元状态",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "显示当前服务计划(YAML)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPlan()
	},
}

var ingressCmd = &cobra.Command{
	Use:   "ingress",
	Short: "显示发布的ingress参数",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showIngress()
	},
}

func showStatus() error {
	client := root.Client(5 * time.Second)
	defer client.Close()

	resp, err := client.Get("/api/v1/status", nil)
	if err != nil {
		return err
	}
	var status models.UnitStatus
	if err := resp.Unmarshal(&status); err != nil {
		return err
	}
	fmt.Println(status.String())
	return nil
}

func showPlan() error {
	client := root.Client(5 * time.Second)
	defer client.Close()

	resp, err := client.Get("/api/v1/plan", nil)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	fmt.Print(string(resp.Body))
	return nil
}

func showIngress() error {
	client := root.Client(5 * time.Second)
	defer client.Close()

	resp, err := client.Get("/api/v1/ingress", nil)
	if err != nil {
		return err
	}
	var params ingress.Params
	if err := resp.Unmarshal(&params); err != nil {
		return err
	}
	fmt.Printf("Hostname: %s\n", params.ServiceHostname)
	fmt.Printf("Class:    %s\n", params.IngressClass)
	fmt.Printf("Service:  %s:%d\n", params.ServiceName, params.ServicePort)
	return nil
}

func init() {
	root.RootCmd.AddCommand(statusCmd)
	root.RootCmd.AddCommand(planCmd)
	root.RootCmd.AddCommand(ingressCmd)
}
