package service

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [service name]",
	Short: "Stop service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := controlService(args[0], "stop")
		if err != nil {
			return err
		}
		fmt.Printf("Service %s stopped (%s, pid %d)\n", info.Name, info.Current, info.Pid)
		return nil
	},
}

func init() {
	serviceCmd.AddCommand(stopCmd)
}
