package service

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [service name]",
	Short: "Start service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := controlService(args[0], "start")
		if err != nil {
			return err
		}
		fmt.Printf("Service %s started (%s, pid %d)\n", info.Name, info.Current, info.Pid)
		return nil
	},
}

func init() {
	serviceCmd.AddCommand(startCmd)
}
