package model

import "time"

// DateLayout 业务日期格式
const DateLayout = "2006-01-02"

// ParseDate 解析 YYYY-MM-DD，返回 UTC 零点
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateDate 去掉时分秒，统一为 UTC 零点
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekDates 从 start 起连续 7 天
func WeekDates(start time.Time) []time.Time {
	start = TruncateDate(start)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
