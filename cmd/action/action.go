package action

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/framework"
)

var actionCmd = &cobra.Command{
	Use:       "action <name> [key=value...]",
	Short:     "执行运维动作",
	Long:      `在运行中的服务上执行运维动作，例如 pull-site 重新下载站点`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: framework.ActionNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		return runAction(args[0], params)
	},
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter '%s', expected key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}

/**
 * Run an action on the server and print its results as YAML, keys sorted
 * @param {string} name - Action name
 * @param {map[string]string} params - Action parameters
 * @returns {error} Unknown action, connection or action failure
 */
func runAction(name string, params map[string]string) error {
	if _, err := framework.ParseAction(name, params); err != nil {
		return fmt.Errorf("%w, expected one of: %s", err, strings.Join(framework.ActionNames(), ", "))
	}
	client := root.Client(0)
	defer client.Close()

	var body interface{}
	if len(params) > 0 {
		body = params
	}
	resp, err := client.Post("/api/v1/actions/"+name, body)
	if err != nil {
		return err
	}
	var result struct {
		Results map[string]string `json:"results"`
	}
	if err := resp.Unmarshal(&result); err != nil {
		return fmt.Errorf("action '%s' failed: %w", name, err)
	}
	return yaml.NewEncoder(os.Stdout).Encode(result.Results)
}

func init() {
	root.RootCmd.AddCommand(actionCmd)

	actionCmd.Example = `  hello-kubecon action pull-site`
}
