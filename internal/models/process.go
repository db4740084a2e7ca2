package models

import "time"

type RunStatus string

const (
	// 表示正在运行
	StatusRunning RunStatus = "running"
	//	表示未运行或程序主动退出
	StatusExited RunStatus = "exited"
	// 表示启动失败或异常退出
	StatusError RunStatus = "error"
	// 表示被主动停止
	StatusStopped RunStatus = "stopped"
)

type ProcessDetail struct {
	Title          string            `json:"title"`          //显示用的名字
	Command        string            `json:"command"`        //进程启动命令
	Args           []string          `json:"args"`           //进程参数
	Environment    map[string]string `json:"environment"`    //附加环境变量
	WorkDir        string            `json:"workDir"`        //工作目录
	Pid            int               `json:"pid"`            //进程PID
	Status         RunStatus         `json:"status"`         //状态
	StartTime      time.Time         `json:"startTime"`      //启动时间
	LastExitTime   time.Time         `json:"lastExitTime"`   //最后一次退出的时间
	LastExitReason string            `json:"lastExitReason"` //最后一次退出的原因
}

/**
 * Supervisor view of one service
 * @property {string} name - Service name from the plan
 * @property {string} startup - enabled/disabled
 * @property {RunStatus} current - Current run state
 * @property {int} pid - Process id, 0 when not running
 */
type ServiceInfo struct {
	Name    string    `json:"name"`
	Startup string    `json:"startup"`
	Current RunStatus `json:"current"`
	Pid     int       `json:"pid"`
}

func (s ServiceInfo) IsRunning() bool {
	return s.Current == StatusRunning
}
