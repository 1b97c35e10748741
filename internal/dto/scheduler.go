package dto

import (
	"encoding/json"

	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// ── 求解编排模块 DTO ──

// PreviewRequest 生成排班预览（构建载荷 → 调用求解器 → 记录运行）
type PreviewRequest struct {
	DepartmentID string `json:"department_id" binding:"required,uuid"`
	StartDate    string `json:"start_date"    binding:"required,datetime=2006-01-02"`
}

// SaveScheduleRequest 将预览结果落库
type SaveScheduleRequest struct {
	DepartmentID string          `json:"department_id" binding:"required,uuid"`
	Result       *solver.Result  `json:"result"        binding:"required"`
	Mapping      *solver.Mapping `json:"mapping"       binding:"required"`
	RunID        *string         `json:"run_id"        binding:"omitempty,uuid"`
}

// ScheduleRunListRequest 运行记录列表参数
type ScheduleRunListRequest struct {
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}

// ── 响应 ──

// PreviewResponse 预览响应：载荷、结果与映射一并返回
type PreviewResponse struct {
	RunID       string          `json:"run_id,omitempty"`
	PayloadHash string          `json:"payload_hash"`
	Payload     *solver.Payload `json:"payload"`
	Result      *solver.Result  `json:"result"`
	Mapping     *solver.Mapping `json:"mapping"`
}

// ScheduleRunResponse 运行记录响应；列表中不含报文
type ScheduleRunResponse struct {
	ID            string          `json:"id"`
	DepartmentID  string          `json:"department_id"`
	WeekStart     string          `json:"week_start"`
	PayloadHash   string          `json:"payload_hash"`
	Status        string          `json:"status"`
	UnmetCount    int             `json:"unmet_count"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	TriggeredBy   string          `json:"triggered_by"`
	CreatedAt     string          `json:"created_at"`
	InputPayload  json.RawMessage `json:"input_payload,omitempty"`
	OutputPayload json.RawMessage `json:"output_payload,omitempty"`
	Mapping       json.RawMessage `json:"mapping,omitempty"`
}
