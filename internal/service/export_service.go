package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoAllocations = errors.New("所选区间内暂无排班记录")
	ErrExportGenerateFail  = errors.New("生成导出文件失败")
)

// 单次导出的最大天数
const maxExportDays = 31

// ExportService 导出业务接口
//
// 设计说明：
//   - 部门排班表导出为 Excel (.xlsx)，行 = 班次，列 = 日期，另附明细 Sheet
//   - 员工个人排班导出为 iCalendar (.ics)，供日历客户端订阅
//   - 只读，不修改任何排班数据
type ExportService interface {
	ExportRoster(ctx context.Context, tenantID string, req *dto.RosterExportRequest) (*bytes.Buffer, string, error)
	ExportCalendar(ctx context.Context, tenantID string, req *dto.CalendarExportRequest) ([]byte, string, error)
}

type exportService struct {
	provider repository.Provider
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(provider repository.Provider, logger *zap.Logger) ExportService {
	return &exportService{provider: provider, logger: logger, now: time.Now}
}

func exportRange(fromValue, toValue string) ([]time.Time, error) {
	from, to, err := parseRange(fromValue, toValue)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
		if len(dates) > maxExportDays {
			return nil, fmt.Errorf("%w: 导出区间不能超过 %d 天", pkgerrors.ErrValidation, maxExportDays)
		}
	}
	return dates, nil
}

// ═══════════════════════════════════════════════════════════
// ExportRoster：部门排班表 Excel
// ═══════════════════════════════════════════════════════════
//
// Sheet "排班表"：
//   - 行头：班次名称 + 时间
//   - 列头：日期（含星期）
//   - 单元格：员工姓名，非 ASSIGNED 状态附加标记，多人换行
//
// Sheet "明细"：每条排班记录一行

func (s *exportService) ExportRoster(ctx context.Context, tenantID string, req *dto.RosterExportRequest) (*bytes.Buffer, string, error) {
	dates, err := exportRange(req.From, req.To)
	if err != nil {
		return nil, "", err
	}
	repo := s.provider.ForTenant(tenantID)

	dept, err := repo.Directory.GetDepartment(ctx, req.DepartmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%w: 部门 %s", pkgerrors.ErrNotFound, req.DepartmentID)
		}
		s.logger.Error("查询部门失败", zap.Error(err))
		return nil, "", err
	}

	from, to := dates[0], dates[len(dates)-1]
	allocs, _, err := repo.Allocation.List(ctx, repository.AllocationFilter{
		DepartmentID: req.DepartmentID,
		From:         &from,
		To:           &to,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询排班记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(allocs) == 0 {
		return nil, "", ErrExportNoAllocations
	}

	shifts, err := repo.Directory.ListShifts(ctx, req.DepartmentID, false)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, "", err
	}

	// ── 索引："shiftID|date" → 姓名列表 ──
	cellIndex := make(map[string][]string)
	usedShift := make(map[string]bool)
	for i := range allocs {
		a := &allocs[i]
		text := staffName(a)
		if text == "" {
			text = a.StaffID
		}
		if a.Status != model.AllocationAssigned {
			text += " [" + a.Status + "]"
		}
		key := a.ShiftID + "|" + model.FormatDate(a.Date)
		cellIndex[key] = append(cellIndex[key], text)
		usedShift[a.ShiftID] = true
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "排班表"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "B", 14)
	lastCol := colName(1 + len(dates))
	f.SetColWidth(sheet, colName(2), lastCol, 20)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s 排班表 (%s ~ %s)", dept.Name, req.From, req.To))
	f.MergeCell(sheet, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheet, "A2", "班次")
	f.SetCellValue(sheet, "B2", "时间")
	for i, d := range dates {
		f.SetCellValue(sheet, cell(colName(2+i), 2), fmt.Sprintf("%s %s", model.FormatDate(d), d.Weekday().String()[:3]))
	}
	f.SetCellStyle(sheet, "A2", cell(lastCol, 2), headerStyle)

	// 数据行：有效班次与区间内出现过的已停用班次
	row := 3
	for _, sh := range shifts {
		if !sh.IsActive && !usedShift[sh.ShiftID] {
			continue
		}
		f.SetCellValue(sheet, cell("A", row), sh.Name)
		f.SetCellValue(sheet, cell("B", row), fmt.Sprintf("%s-%s", sh.StartTime, sh.EndTime))
		for i, d := range dates {
			text := "-"
			if names, ok := cellIndex[sh.ShiftID+"|"+model.FormatDate(d)]; ok {
				text = strings.Join(names, "\n")
			}
			f.SetCellValue(sheet, cell(colName(2+i), row), text)
		}
		f.SetCellStyle(sheet, cell("C", row), cell(lastCol, row), wrapStyle)
		row++
	}

	// 明细 Sheet
	detail := "明细"
	f.NewSheet(detail)
	for i, h := range []string{"日期", "班次", "员工", "状态", "来源", "备注"} {
		f.SetCellValue(detail, cell(colName(i), 1), h)
	}
	f.SetCellStyle(detail, "A1", "F1", headerStyle)
	f.SetColWidth(detail, "A", "F", 16)
	for i := range allocs {
		a := &allocs[i]
		r := i + 2
		shiftName := a.ShiftID
		if a.Shift != nil {
			shiftName = a.Shift.Name
		}
		f.SetCellValue(detail, cell("A", r), model.FormatDate(a.Date))
		f.SetCellValue(detail, cell("B", r), shiftName)
		f.SetCellValue(detail, cell("C", r), staffName(a))
		f.SetCellValue(detail, cell("D", r), a.Status)
		f.SetCellValue(detail, cell("E", r), a.Source)
		f.SetCellValue(detail, cell("F", r), a.Notes)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排班表_%s_%s_%s.xlsx", dept.Name, req.From, req.To)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar：员工个人排班 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 只导出 ASSIGNED / SWAPPED 记录；结束时间不晚于开始时间的班次视为跨夜。
// 时间按 UTC 输出，UID 使用排班记录 ID 以便客户端增量更新。

func (s *exportService) ExportCalendar(ctx context.Context, tenantID string, req *dto.CalendarExportRequest) ([]byte, string, error) {
	dates, err := exportRange(req.From, req.To)
	if err != nil {
		return nil, "", err
	}
	repo := s.provider.ForTenant(tenantID)

	staff, err := repo.Directory.GetStaff(ctx, req.StaffID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%w: 员工 %s", pkgerrors.ErrNotFound, req.StaffID)
		}
		s.logger.Error("查询员工失败", zap.Error(err))
		return nil, "", err
	}

	from, to := dates[0], dates[len(dates)-1]
	allocs, _, err := repo.Allocation.List(ctx, repository.AllocationFilter{
		StaffID: req.StaffID,
		From:    &from,
		To:      &to,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询员工排班失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//RosterPro//Roster Export//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s 排班", staff.Name))

	stamp := s.now().UTC()
	written := 0
	for i := range allocs {
		a := &allocs[i]
		if !a.Counted() || a.Shift == nil {
			continue
		}
		start, end, err := shiftWindow(a.Date, a.Shift)
		if err != nil {
			s.logger.Warn("班次时间无法解析，跳过",
				zap.String("shift_id", a.ShiftID),
				zap.Error(err),
			)
			continue
		}

		event := cal.AddEvent(a.AllocationID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(a.Shift.Name)
		event.SetDescription(fmt.Sprintf("status=%s source=%s", a.Status, a.Source))
		written++
	}

	s.logger.Info("导出员工日历",
		zap.String("tenant_id", tenantID),
		zap.String("staff_id", req.StaffID),
		zap.Int("events", written),
	)

	filename := fmt.Sprintf("roster_%s_%s_%s.ics", req.StaffID, req.From, req.To)
	return []byte(cal.Serialize()), filename, nil
}

// shiftWindow 计算班次在某日的起止时间（UTC）
func shiftWindow(date time.Time, shift *model.Shift) (time.Time, time.Time, error) {
	start, err := clockOn(date, shift.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clockOn(date, shift.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func clockOn(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("时间格式应为 HH:MM: %q", hhmm)
	}
	d := model.TruncateDate(date)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
