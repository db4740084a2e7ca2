package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/models"
	"hello-kubecon/internal/utils"
)

/**
 * ProcessInstance 进程实例信息
 * @property {string} title - 进程标题，用于显示
 * @property {string} command - 执行命令
 * @property {[]string} args - 命令参数
 * @property {map[string]string} environment - 附加环境变量
 * @property {string} workDir - 工作目录
 * @property {string} status - 进程状态: running/exited/stopped/error
 * @property {time.Time} startTime - 启动时间
 * @property {time.Time} lastExitTime - 最后退出时间
 * @property {string} lastExitReason - 最后退出原因
 */
type ProcessInstance struct {
	Title          string            //显示用的名字
	Command        string            //进程启动命令
	Args           []string          //进程参数
	Environment    map[string]string //附加环境变量
	WorkDir        string            //工作目录
	Status         models.RunStatus  //状态
	StartTime      time.Time         //启动时间
	LastExitTime   time.Time         //最后一次退出的时间
	LastExitReason string            //最后一次退出的原因
	process        *os.Process
	exited         chan struct{} //进程被回收后关闭
	mutex          sync.Mutex
}

func NewProcessInstance(title, command string, args []string, environment map[string]string) *ProcessInstance {
	return &ProcessInstance{
		Title:       title,
		Command:     command,
		Args:        args,
		Environment: environment,
		Status:      models.StatusExited,
	}
}

func (pi *ProcessInstance) pid() int {
	if pi.process == nil {
		return 0
	}
	return pi.process.Pid
}

func (pi *ProcessInstance) Pid() int {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.pid()
}

func (pi *ProcessInstance) IsRunning() bool {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.Status == models.StatusRunning
}

func (pi *ProcessInstance) GetDetail() models.ProcessDetail {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	return models.ProcessDetail{
		Title:          pi.Title,
		Command:        pi.Command,
		Args:           pi.Args,
		Environment:    pi.Environment,
		WorkDir:        pi.WorkDir,
		Status:         pi.Status,
		Pid:            pi.pid(),
		StartTime:      pi.StartTime,
		LastExitTime:   pi.LastExitTime,
		LastExitReason: pi.LastExitReason,
	}
}

/**
 * StartProcess 启动进程
 * @returns {error} 返回错误信息
 * @description
 * - 进程已在运行时直接返回
 * - 进程不绑定请求的context，服务的生命周期由Stop控制
 * - 使用协程等待进程退出并更新状态
 */
func (pi *ProcessInstance) StartProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	logger.Infof("Executing command: %s %s", pi.Command, strings.Join(pi.Args, " "))

	cmd := exec.Command(pi.Command, pi.Args...)
	cmd.Env = utils.MergeEnviron(pi.Environment)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}

	pi.process = cmd.Process
	pi.exited = make(chan struct{})
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()

	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.pid())

	go pi.watchProcess(cmd, pi.exited)
	return nil
}

/**
 * StopProcess 停止进程
 * @param {time.Duration} grace - SIGTERM之后等待的时间
 * @returns {error} 返回错误信息
 * @description
 * - 未运行的进程直接返回
 * - 先发送SIGTERM，超时后SIGKILL
 * - 等待watchProcess回收进程后返回
 */
func (pi *ProcessInstance) StopProcess(grace time.Duration) error {
	pi.mutex.Lock()
	if pi.Status != models.StatusRunning || pi.process == nil {
		pi.mutex.Unlock()
		return nil
	}
	pi.Status = models.StatusStopped
	pi.LastExitReason = "stopped by supervisor"
	process := pi.process
	exited := pi.exited
	pi.mutex.Unlock()

	if err := utils.TerminateProcess(process, grace, exited); err != nil {
		logger.Errorf("Failed to stop process '%s' (PID: %d): %v", pi.Title, process.Pid, err)
		return err
	}
	logger.Infof("Process '%s' (PID: %d) stopped", pi.Title, process.Pid)
	return nil
}

// watchProcess 等待进程退出，记录退出原因
func (pi *ProcessInstance) watchProcess(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()

	pi.mutex.Lock()
	pi.LastExitTime = time.Now()
	if pi.Status == models.StatusStopped {
		logger.Debugf("Process '%s' reaped after stop", pi.Title)
	} else if err != nil {
		logger.Errorf("Process '%s' (PID: %d) exited with error: %v", pi.Title, pi.pid(), err)
		pi.LastExitReason = fmt.Sprintf("exited with error: %v", err)
		pi.Status = models.StatusError
	} else {
		logger.Infof("Process '%s' (PID: %d) exited normally", pi.Title, pi.pid())
		pi.LastExitReason = "exited normally"
		pi.Status = models.StatusExited
	}
	pi.process = nil
	pi.mutex.Unlock()
	close(exited)
}
