package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"emis-vote/backend/internal/service"
	"emis-vote/backend/pkg/response"
)

// ReportHandler 统计与导出 HTTP 处理器（管理员）
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Summary 仪表盘汇总
// GET /api/v1/reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	result, err := h.reportSvc.Summary(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ExportParticipants 导出活动参与者 Excel
// GET /api/v1/events/:id/participants/export
func (h *ReportHandler) ExportParticipants(c *gin.Context) {
	buf, filename, err := h.reportSvc.ExportParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Attachment(c, buf, filename, service.XLSXContentType)
}

// ExportResults 导出投票结果 Excel
// GET /api/v1/votings/:id/results/export
func (h *ReportHandler) ExportResults(c *gin.Context) {
	buf, filename, err := h.reportSvc.ExportResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Attachment(c, buf, filename, service.XLSXContentType)
}

func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 21001, "活动不存在")
	case errors.Is(err, service.ErrVotingNotFound):
		response.NotFound(c, 23001, "投票不存在")
	case errors.Is(err, service.ErrReportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 26001, "报表生成失败")
	default:
		response.InternalError(c)
	}
}
