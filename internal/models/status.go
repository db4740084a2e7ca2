package models

import "fmt"

type StatusName string

const (
	// 首次状态迁移之前
	UnitUnknown StatusName = "unknown"
	// 正在执行变更，如下载站点
	UnitMaintenance StatusName = "maintenance"
	// 需要人工介入，如缺少配置
	UnitBlocked StatusName = "blocked"
	UnitActive  StatusName = "active"
)

/**
 * Unit status reported to the orchestration platform
 * @property {StatusName} name - maintenance/blocked/active (unknown before the first event)
 * @property {string} message - Human readable reason, empty for active
 */
type UnitStatus struct {
	Name    StatusName `json:"name" yaml:"name"`
	Message string     `json:"message" yaml:"message"`
}

func UnknownStatus() UnitStatus {
	return UnitStatus{Name: UnitUnknown}
}

func MaintenanceStatus(message string) UnitStatus {
	return UnitStatus{Name: UnitMaintenance, Message: message}
}

func BlockedStatus(message string) UnitStatus {
	return UnitStatus{Name: UnitBlocked, Message: message}
}

func ActiveStatus() UnitStatus {
	return UnitStatus{Name: UnitActive}
}

func (s UnitStatus) String() string {
	if s.Message == "" {
		return string(s.Name)
	}
	return fmt.Sprintf("%s: %s", s.Name, s.Message)
}
