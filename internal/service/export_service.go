package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/internal/timetable"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
	ErrExportIntegrity    = errors.New("课表数据不一致，无法导出")
	ErrExportEmpty        = errors.New("该班级暂无排课")
)

// ExportService 导出业务接口
//
// 导出内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入：
//   - Excel：与网格视图一致，行为时间格、列为星期，锚点格按跨度纵向合并
//   - ICS：每条排课一个按周重复的事件，重复至学期结束
type ExportService interface {
	ExportXLSX(ctx context.Context, scope timetable.Scope, semesterID string) (*bytes.Buffer, string, error)
	ExportICS(ctx context.Context, sectionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo       *repository.Repository
	timetables *timetables
	loc        *time.Location
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例；loc 为课表所在时区
func NewExportService(repo *repository.Repository, tt *timetables, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &exportService{repo: repo, timetables: tt, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX 导出班级或教室课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：标题（合并）
//   - 第 2 行：时间 | 星期一 … 星期日（按配置的星期）
//   - 之后每行一个时间格；排课写在锚点格，向下合并 span 行
//   - 窗口外的排课列在表格下方

func (s *exportService) ExportXLSX(ctx context.Context, scope timetable.Scope, semesterID string) (*bytes.Buffer, string, error) {
	title := scope.Key
	if scope.Kind == timetable.ScopeSection {
		section, err := s.getSection(ctx, scope.Key)
		if err != nil {
			return nil, "", err
		}
		semesterID = section.SemesterID
		title = section.Name
	} else if semesterID == "" {
		return nil, "", ErrRoomSemesterRequired
	}

	semester, err := s.getSemester(ctx, semesterID)
	if err != nil {
		return nil, "", err
	}

	st, err := s.timetables.load(ctx, semesterID)
	if err != nil {
		return nil, "", err
	}
	grid, err := timetable.Project(st.store, scope, s.timetables.grid)
	if err != nil {
		if errors.Is(err, timetable.ErrIntegrityViolation) {
			s.logger.Error("导出时课表数据不一致", zap.String("scope", scope.String()), zap.Error(err))
			return nil, "", ErrExportIntegrity
		}
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	days := grid.Days()
	f.SetColWidth(sheetName, "A", "A", 14)
	if len(days) > 0 {
		f.SetColWidth(sheetName, colName(1), colName(len(days)), 24)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	slotStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 课表", semester.Name, title))
	f.MergeCell(sheetName, "A1", cell(colName(len(days)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheetName, cell("A", 2), "时间")
	for i, d := range days {
		f.SetCellValue(sheetName, cell(colName(i+1), 2), d.String())
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(days)), 2), headerStyle)

	// 数据行：第 tick 行对应表格第 3+tick 行
	cfg := grid.Config
	for tick, row := range grid.Rows() {
		r := 3 + tick
		start := cfg.TickStart(tick)
		f.SetCellValue(sheetName, cell("A", r), fmt.Sprintf("%s-%s", start, start.Add(cfg.Tick)))
		for col, c := range row {
			if c.State != timetable.CellAnchor || c.Slot == nil {
				continue
			}
			from := cell(colName(col+1), r)
			to := cell(colName(col+1), r+c.Span-1)
			f.SetCellValue(sheetName, from, fmt.Sprintf("%s\n%s-%s",
				describeSlot(*c.Slot), c.Slot.Interval.Start(), c.Slot.Interval.End()))
			if c.Span > 1 {
				f.MergeCell(sheetName, from, to)
			}
			f.SetCellStyle(sheetName, from, to, slotStyle)
		}
	}

	// 窗口外或未能单独占格的排课
	if unplaced := append(append([]timetable.Slot(nil), grid.Hidden...), grid.Crowded...); len(unplaced) > 0 {
		r := 3 + grid.TickCount() + 1
		f.SetCellValue(sheetName, cell("A", r), "未显示的排课")
		for i, slot := range unplaced {
			f.SetCellValue(sheetName, cell("A", r+1+i), slot.Interval.String())
			f.SetCellValue(sheetName, cell(colName(1), r+1+i), describeSlot(slot))
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s_%s.xlsx", semester.Code, title)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS 导出班级课表为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, sectionID string) (*bytes.Buffer, string, error) {
	section, err := s.getSection(ctx, sectionID)
	if err != nil {
		return nil, "", err
	}
	semester, err := s.getSemester(ctx, section.SemesterID)
	if err != nil {
		return nil, "", err
	}
	st, err := s.timetables.load(ctx, section.SemesterID)
	if err != nil {
		return nil, "", err
	}

	slots := st.store.SlotsForSection(section.SectionID)
	if len(slots) == 0 {
		return nil, "", ErrExportEmpty
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//campus-registrar//timetable//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s %s", section.Name, semester.Code))

	now := time.Now().UTC()
	last := endOfDay(semester.EndDate, s.loc)
	until := last.UTC().Format("20060102T150405Z")

	for _, slot := range slots {
		first := firstOccurrence(semester.StartDate, slot.Interval.Day(), s.loc)
		if first.After(last) {
			continue
		}
		start := atClock(first, slot.Interval.Start(), s.loc)
		end := atClock(first, slot.Interval.End(), s.loc)

		event := cal.AddEvent(slot.ID + "@campus-registrar")
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("%s %s", slot.SubjectCode, slot.SubjectTitle))
		event.SetDescription(section.Name)
		if slot.HasRoom() {
			event.SetLocation(slot.Room)
		}
		event.AddRrule("FREQ=WEEKLY;UNTIL=" + until)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("%s_%s.ics", section.Name, semester.Code)
	return buf, filename, nil
}

// ── 内部辅助方法 ──

func (s *exportService) getSection(ctx context.Context, id string) (*model.Section, error) {
	section, err := s.repo.Section.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		s.logger.Error("查询班级失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return section, nil
}

func (s *exportService) getSemester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return semester, nil
}

// firstOccurrence 学期开始当天或之后第一个指定星期的日期
func firstOccurrence(start time.Time, day timetable.Weekday, loc *time.Location) time.Time {
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	want := time.Weekday(int(day) % 7)
	offset := (int(want) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

func atClock(date time.Time, c timetable.ClockTime, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

func endOfDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
