package service

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart [service name]",
	Short: "Restart service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := controlService(args[0], "restart")
		if err != nil {
			return err
		}
		fmt.Printf("Service %s restarted (%s, pid %d)\n", info.Name, info.Current, info.Pid)
		return nil
	},
}

func init() {
	serviceCmd.AddCommand(restartCmd)
}
