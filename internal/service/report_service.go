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

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
)

// ── 报表模块业务错误 ──

var (
	ErrReportGenerateFail = errors.New("生成 Excel 文件失败")
)

// XLSXContentType Excel 文件 MIME
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService 管理后台概览与 Excel 导出
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response。
type ReportService interface {
	Summary(ctx context.Context) (*dto.SummaryResponse, error)
	// ExportParticipants 导出活动参与者名单
	ExportParticipants(ctx context.Context, eventID string) (*bytes.Buffer, string, error)
	// ExportResults 导出投票结果（按排名）
	ExportResults(ctx context.Context, votingID string) (*bytes.Buffer, string, error)
}

type reportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{repo: repo, loc: loc, logger: logger}
}

// ────────────────────── Summary ──────────────────────

func (s *reportService) Summary(ctx context.Context) (*dto.SummaryResponse, error) {
	var (
		resp dto.SummaryResponse
		err  error
	)

	counters := []struct {
		name string
		dst  *int64
		fn   func() (int64, error)
	}{
		{"events", &resp.TotalEvents, func() (int64, error) { return s.repo.Event.Count(ctx) }},
		{"registrations", &resp.TotalRegistrations, func() (int64, error) { return s.repo.Registration.Count(ctx) }},
		{"votings", &resp.TotalVotings, func() (int64, error) { return s.repo.Voting.CountByStatus(ctx, "") }},
		{"active_votings", &resp.ActiveVotings, func() (int64, error) {
			return s.repo.Voting.CountByStatus(ctx, model.VotingStatusActive)
		}},
		{"votes", &resp.TotalVotes, func() (int64, error) { return s.repo.Vote.Count(ctx) }},
		{"students", &resp.TotalStudents, func() (int64, error) { return s.repo.User.CountByRole(ctx, model.RoleStudent) }},
	}

	for _, c := range counters {
		if *c.dst, err = c.fn(); err != nil {
			s.logger.Error("统计概览失败", zap.String("metric", c.name), zap.Error(err))
			return nil, err
		}
	}

	return &resp, nil
}

// ────────────────────── ExportParticipants ──────────────────────
//
// 表头: | 序号 | 姓名 | 用户名 | 邮箱 | 报名时间 |

func (s *reportService) ExportParticipants(ctx context.Context, eventID string) (*bytes.Buffer, string, error) {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrEventNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", eventID), zap.Error(err))
		return nil, "", err
	}

	regs, err := s.repo.Registration.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.String("id", eventID), zap.Error(err))
		return nil, "", err
	}

	f, sheet := newReportFile("参与者")
	defer f.Close()

	title := fmt.Sprintf("%s（%s）参与者名单", event.Title, event.Day().Format(dateLayout))
	headers := []string{"序号", "姓名", "用户名", "邮箱", "报名时间"}
	writeHeader(f, sheet, title, headers, []float64{8, 20, 18, 30, 22})

	for i, r := range regs {
		p := toParticipantResponse(&r)
		row := []interface{}{i + 1, p.Name, p.Username, p.Email, r.CreatedAt.In(s.loc).Format("2006-01-02 15:04")}
		if err := writeRow(f, sheet, i+3, row); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Error(err))
			return nil, "", ErrReportGenerateFail
		}
	}

	buf, err := s.finish(f)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("参与者_%s.xlsx", event.Title), nil
}

// ────────────────────── ExportResults ──────────────────────
//
// 表头: | 排名 | 候选项 | 票数 | 百分比 |

func (s *reportService) ExportResults(ctx context.Context, votingID string) (*bytes.Buffer, string, error) {
	voting, err := s.repo.Voting.GetByID(ctx, votingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrVotingNotFound
		}
		s.logger.Error("查询投票失败", zap.String("id", votingID), zap.Error(err))
		return nil, "", err
	}

	ranked, total := RankOptions(voting.Options)

	f, sheet := newReportFile("投票结果")
	defer f.Close()

	title := fmt.Sprintf("%s 投票结果（总票数 %d）", voting.Title, total)
	headers := []string{"排名", "候选项", "票数", "百分比"}
	writeHeader(f, sheet, title, headers, []float64{8, 30, 12, 12})

	for i, o := range ranked {
		row := []interface{}{o.Rank, o.Name, o.VotesCount, fmt.Sprintf("%d%%", o.Percentage)}
		if err := writeRow(f, sheet, i+3, row); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Error(err))
			return nil, "", ErrReportGenerateFail
		}
	}

	buf, err := s.finish(f)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("投票结果_%s.xlsx", voting.Title), nil
}

// ── 辅助函数 ──

func (s *reportService) finish(f *excelize.File) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrReportGenerateFail
	}
	return buf, nil
}

// newReportFile 创建只含一个工作表的文件
func newReportFile(sheet string) (*excelize.File, string) {
	f := excelize.NewFile()
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	return f, sheet
}

// writeHeader 第 1 行为合并标题，第 2 行为表头
func writeHeader(f *excelize.File, sheet, title string, headers []string, widths []float64) {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheet, col, col, w)
	}

	f.SetCellValue(sheet, "A1", title)
	f.MergeCell(sheet, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	return f.SetSheetRow(sheet, cell("A", row), &values)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
