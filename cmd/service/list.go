package service

import (
	"fmt"
	"os"
	"time"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"

	"hello-kubecon/cmd/root"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/utils"
)

var listJson bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出计划中的服务及运行状态",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listServices()
	},
}

/**
 *	Fields displayed in list format
 */
type serviceColumns struct {
	Name    string `json:"name"`
	Startup string `json:"startup"`
	Current string `json:"current"`
	Pid     int    `json:"pid"`
}

func listServices() error {
	client := root.Client(5 * time.Second)
	defer client.Close()

	resp, err := client.Get("/api/v1/services", nil)
	if err != nil {
		return err
	}
	var infos []models.ServiceInfo
	if err := resp.Unmarshal(&infos); err != nil {
		return err
	}

	var dataList []*orderedmap.OrderedMap
	for _, info := range infos {
		row := serviceColumns{
			Name:    info.Name,
			Startup: info.Startup,
			Current: string(info.Current),
			Pid:     info.Pid,
		}
		recordMap, err := utils.StructToOrderedMap(row)
		if err != nil {
			return err
		}
		dataList = append(dataList, recordMap)
	}

	if listJson {
		return utils.PrintJson(os.Stdout, dataList)
	}
	if len(dataList) == 0 {
		fmt.Println("没有找到服务")
		return nil
	}
	return utils.PrintFormat(os.Stdout, dataList)
}

func init() {
	listCmd.Flags().BoolVarP(&listJson, "json", "j", false, "以JSON格式输出")
	serviceCmd.AddCommand(listCmd)
}
