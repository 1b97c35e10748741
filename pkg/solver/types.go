// Package solver 是外部排班优化服务的同步调用边界。
//
// 请求体只携带名称与编码（求解器不感知内部主键），
// 内部 ID 的回译依赖与载荷一同返回的 Mapping。
package solver

import "sort"

// 求解结果状态
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// Payload 发送给求解器的请求体
type Payload struct {
	Days              []string                  `json:"days"`
	Shifts            map[string]float64        `json:"shifts"`
	Requirements      map[string]map[string]int `json:"requirements"`
	Staff             []StaffEntry              `json:"staff"`
	Unavailability    map[string][]string       `json:"unavailability"`
	PreferredHolidays map[string][]string       `json:"preferred_holidays"`
	MaxShiftsPerWeek  map[string]int            `json:"max_shifts_per_week"`
	MaxWeeklyHours    map[string]int            `json:"max_weekly_hours"`
	MinRestHours      int                       `json:"min_rest_hours"`
}

// StaffEntry 单个可排班人员
type StaffEntry struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Result 求解器返回体
type Result struct {
	Status     string         `json:"status"`
	Objective  float64        `json:"objective"`
	Schedule   []DaySchedule  `json:"schedule"`
	Violations map[string]int `json:"violations,omitempty"`
}

// DaySchedule 某一天各班次的人员安排，key 为班次名称
type DaySchedule struct {
	Day    string              `json:"day"`
	Shifts map[string][]string `json:"shifts"`
}

// UnmetCount 未满足约束计数，等于 violations 各项之和
func (r *Result) UnmetCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, n := range r.Violations {
		total += n
	}
	return total
}

// RunStatus 将结果状态归一为运行记录状态，未知值视为 FAILED
func (r *Result) RunStatus() string {
	if r == nil {
		return StatusFailed
	}
	switch r.Status {
	case StatusSuccess, StatusPartial:
		return r.Status
	default:
		return StatusFailed
	}
}

// Entries 结果中的人员条目总数
func (r *Result) Entries() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Schedule {
		for _, ids := range d.Shifts {
			n += len(ids)
		}
	}
	return n
}

// Mapping 求解器可读名称 → 内部标识
type Mapping struct {
	Shifts map[string]string `json:"shifts" binding:"dive,uuid"`                // 班次名称 → shift id
	Staff  map[string]string `json:"staff"  binding:"dive,uuid"`                // 载荷中的 staff id → staff id
	Days   map[string]string `json:"days"   binding:"dive,datetime=2006-01-02"` // 日标签 → YYYY-MM-DD
}

// SortedDays 按日期升序返回日标签
func (m *Mapping) SortedDays() []string {
	labels := make([]string, 0, len(m.Days))
	for label := range m.Days {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return m.Days[labels[i]] < m.Days[labels[j]] })
	return labels
}
