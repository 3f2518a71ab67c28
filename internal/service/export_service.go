package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("暂无可导出的专注记录或课程")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

const (
	sheetFocus   = "专注记录"
	sheetCourses = "课程表"
)

var modeNames = map[string]string{"countdown": "倒计时", "stopwatch": "正计时"}

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出为 Excel (.xlsx)，两个 Sheet：专注记录、课程表
//   - 以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// Export 导出用户的专注记录与课程
	Export(ctx context.Context, ownerID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Export — 导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "专注记录"：| 日期 | 标题 | 开始 | 结束 | 时长(分钟) | 模式 | 状态 |，末行合计
//   - Sheet "课程表"：| 星期 | 课程 | 时间 | 地点 | 周次 |，按星期、开始时间排序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) Export(ctx context.Context, ownerID string) (*bytes.Buffer, string, error) {
	sessions, err := s.repo.FocusSession.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("查询专注记录失败", zap.Error(err))
		return nil, "", err
	}
	courses, err := s.repo.Course.List(ctx, ownerID)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 && len(courses) == 0 {
		return nil, "", ErrExportEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// ── Sheet 1: 专注记录 ──
	f.SetSheetName("Sheet1", sheetFocus)

	focusHeaders := []string{"日期", "标题", "开始", "结束", "时长(分钟)", "模式", "状态"}
	writeHeader(f, sheetFocus, focusHeaders, headerStyle)
	f.SetColWidth(sheetFocus, "A", "A", 12)
	f.SetColWidth(sheetFocus, "B", "B", 28)
	f.SetColWidth(sheetFocus, "C", "G", 12)

	row := 2
	totalMinutes := 0
	for _, fs := range sessions {
		start := fs.StartAt.In(s.loc)
		minutes := int(fs.Duration().Round(time.Minute) / time.Minute)
		totalMinutes += minutes
		status := "中途结束"
		if fs.Completed {
			status = "已完成"
		}
		f.SetSheetRow(sheetFocus, cell("A", row), &[]interface{}{
			start.Format("2006-01-02"),
			fs.Title,
			start.Format("15:04"),
			fs.EndAt.In(s.loc).Format("15:04"),
			minutes,
			modeNames[fs.Mode],
			status,
		})
		row++
	}
	f.SetCellValue(sheetFocus, cell("D", row), "合计")
	f.SetCellValue(sheetFocus, cell("E", row), totalMinutes)

	// ── Sheet 2: 课程表 ──
	f.NewSheet(sheetCourses)
	writeHeader(f, sheetCourses, []string{"星期", "课程", "时间", "地点", "周次"}, headerStyle)
	f.SetColWidth(sheetCourses, "A", "A", 8)
	f.SetColWidth(sheetCourses, "B", "B", 24)
	f.SetColWidth(sheetCourses, "C", "E", 16)

	// 周一到周日依次输出，同一天保持添加顺序
	row = 2
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		for i := range courses {
			c := &courses[i]
			if time.Weekday(c.DayOfWeek) != wd {
				continue
			}
			f.SetSheetRow(sheetCourses, cell("A", row), &[]interface{}{
				weekdayName(wd),
				c.Title,
				fmt.Sprintf("%s-%s", calendar.FormatHM(c.StartMinute), calendar.FormatHM(c.EndMinute)),
				c.Location,
				calendar.WeeksText(c.Weeks()),
			})
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("专注记录_%s.xlsx", s.now().In(s.loc).Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), style)
}

func weekdayName(wd time.Weekday) string {
	return [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}[wd]
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
