package options

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "查看或修改charm选项",
	Long:  `查看或修改charm选项，修改后服务端会执行config-changed`,
}

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "显示选项",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getOptions(args)
	},
}

var setCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "修改选项并触发config-changed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseAssignments(args)
		if err != nil {
			return err
		}
		return setOptions(values)
	},
}

// parseAssignments turns key=value arguments into option values
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment '%s', expected key=value", arg)
		}
		values[k] = v
	}
	if err := config.ValidateOptions(values); err != nil {
		return nil, err
	}
	return values, nil
}

func fetchOptions() (config.Options, error) {
	client := root.Client(5 * time.Second)
	defer client.Close()

	resp, err := client.Get("/api/v1/config", nil)
	if err != nil {
		return nil, err
	}
	var opts config.Options
	if err := resp.Unmarshal(&opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func getOptions(args []string) error {
	opts, err := fetchOptions()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		v, ok := opts[args[0]]
		if !ok {
			return fmt.Errorf("%w: %q", config.ErrUnknownOption, args[0])
		}
		fmt.Println(v)
		return nil
	}
	printOptions(opts)
	return nil
}

func setOptions(values map[string]string) error {
	client := root.Client(0)
	defer client.Close()

	resp, err := client.Put("/api/v1/config", values)
	if err != nil {
		return err
	}
	var opts config.Options
	if err := resp.Unmarshal(&opts); err != nil {
		return err
	}
	printOptions(opts)
	return nil
}

func printOptions(opts config.Options) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, k := range opts.Keys() {
		fmt.Fprintf(w, "%s\t%s\n", k, opts[k])
	}
	w.Flush()
}

func init() {
	configCmd.AddCommand(getCmd)
	configCmd.AddCommand(setCmd)
	root.RootCmd.AddCommand(configCmd)

	configCmd.Example = `  hello-kubecon config get
  hello-kubecon config set redirect-map=https://jnsgr.uk/demo-routes`
}
