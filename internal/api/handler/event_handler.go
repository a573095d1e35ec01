package handler

import (
	"bytes"
	"errors"

	"github.com/gin-gonic/gin"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/service"
	"emis-vote/backend/pkg/response"
)

// EventHandler 活动模块 HTTP 处理器
type EventHandler struct {
	eventSvc service.EventService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// List 活动列表
// GET /api/v1/events?status=active&keyword=
func (h *EventHandler) List(c *gin.Context) {
	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	events, total, err := h.eventSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, events, total, req.GetPage(), req.GetPageSize())
}

// Get 活动详情
// GET /api/v1/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.eventSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, event)
}

// Create 创建活动（multipart，海报字段 poster 可选）
// POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	poster, err := optionalFile(c, "poster")
	if err != nil {
		response.BadRequest(c, 10001, "海报上传失败")
		return
	}

	event, err := h.eventSvc.Create(c.Request.Context(), &req, poster, callerID)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.Created(c, event)
}

// Update 更新活动；未上传新海报时保留原海报
// PUT /api/v1/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	poster, err := optionalFile(c, "poster")
	if err != nil {
		response.BadRequest(c, 10001, "海报上传失败")
		return
	}

	event, err := h.eventSvc.Update(c.Request.Context(), c.Param("id"), &req, poster, callerID)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, event)
}

// Delete 删除活动（级联删除报名记录）
// DELETE /api/v1/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.eventSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, nil)
}

// Participants 活动参与者名单
// GET /api/v1/events/:id/participants
func (h *EventHandler) Participants(c *gin.Context) {
	list, err := h.eventSvc.Participants(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, list)
}

// Calendar 下载活动日历文件（.ics）
// GET /api/v1/events/:id/calendar
func (h *EventHandler) Calendar(c *gin.Context) {
	data, filename, err := h.eventSvc.Calendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.Attachment(c, bytes.NewBuffer(data), filename, "text/calendar; charset=utf-8")
}

// handleEventError 统一处理活动模块业务错误
func (h *EventHandler) handleEventError(c *gin.Context, err error) {
	if handleUploadError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 21001, "活动不存在")
	case errors.Is(err, service.ErrEventDateInvalid):
		response.BadRequest(c, 21002, "活动日期格式无效（YYYY-MM-DD）")
	default:
		response.InternalError(c)
	}
}
