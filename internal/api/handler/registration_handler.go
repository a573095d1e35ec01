package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/service"
	"emis-vote/backend/pkg/response"
)

// RegistrationHandler 活动报名 HTTP 处理器
type RegistrationHandler struct {
	regSvc service.RegistrationService
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(regSvc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{regSvc: regSvc}
}

// Register 当前用户报名活动
// POST /api/v1/registrations
func (h *RegistrationHandler) Register(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RegisterEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.regSvc.Register(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.Created(c, result)
}

// Check 查询报名状态
// GET /api/v1/registrations/check?event_id=&user_id=
func (h *RegistrationHandler) Check(c *gin.Context) {
	var req dto.RegistrationCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	userID, ok := resolveTargetUser(c, req.UserID, 22004)
	if !ok {
		return
	}

	result, err := h.regSvc.Check(c.Request.Context(), req.EventID, userID)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, result)
}

// Mine 当前用户的报名记录
// GET /api/v1/registrations/me
func (h *RegistrationHandler) Mine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.regSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, list)
}

// handleRegistrationError 统一处理报名模块业务错误
func (h *RegistrationHandler) handleRegistrationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 21001, "活动不存在")
	case errors.Is(err, service.ErrAlreadyRegistered):
		response.Conflict(c, 22002, "您已报名该活动")
	case errors.Is(err, service.ErrEventExpired):
		response.Conflict(c, 22003, "活动已结束，无法报名")
	default:
		response.InternalError(c)
	}
}
