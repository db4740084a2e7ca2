package hook

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/framework"
)

var hookCmd = &cobra.Command{
	Use:       "hook <install|config-changed>",
	Short:     "触发生命周期事件",
	Long:      `通知运行中的服务执行生命周期事件，事件在服务端串行执行`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: framework.HookNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(args[0])
	},
}

/**
 * Run a hook on the server
 * @param {string} name - Hook name
 * @returns {error} Unknown hook, connection or hook failure
 */
func runHook(name string) error {
	if err := checkHook(name); err != nil {
		return err
	}
	client := root.Client(0)
	defer client.Close()

	resp, err := client.Post("/api/v1/hooks/"+name, nil)
	if err != nil {
		return err
	}
	var result struct {
		Event  string `json:"event"`
		Status string `json:"status"`
	}
	if err := resp.Unmarshal(&result); err != nil {
		return fmt.Errorf("hook '%s' failed: %w", name, err)
	}
	fmt.Printf("%s: %s\n", result.Event, result.Status)
	return nil
}

// checkHook rejects unknown names and points action names at the action command
func checkHook(name string) error {
	ev, err := framework.ParseEvent(name)
	if err != nil {
		return fmt.Errorf("%w, expected one of: %s", err, strings.Join(framework.HookNames(), ", "))
	}
	if ev.Kind == framework.EventAction {
		return fmt.Errorf("'%s' is an action, run: hello-kubecon action %s", name, name)
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(hookCmd)

	hookCmd.Example = `  hello-kubecon hook install
  hello-kubecon hook config-changed`
}
