package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/service"
	pkgerrors "emis-vote/backend/pkg/errors"
	"emis-vote/backend/pkg/response"
)

// VotingHandler 投票与候选项管理 HTTP 处理器
type VotingHandler struct {
	votingSvc service.VotingService
}

// NewVotingHandler 创建 VotingHandler
func NewVotingHandler(votingSvc service.VotingService) *VotingHandler {
	return &VotingHandler{votingSvc: votingSvc}
}

// ────────────────────── 投票 ──────────────────────

// List 投票列表
// GET /api/v1/votings?status=active
func (h *VotingHandler) List(c *gin.Context) {
	var req dto.VotingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	votings, total, err := h.votingSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, votings, total, req.GetPage(), req.GetPageSize())
}

// Get 投票详情（含候选项）
// GET /api/v1/votings/:id
func (h *VotingHandler) Get(c *gin.Context) {
	voting, err := h.votingSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.OK(c, voting)
}

// Create 创建投票（multipart，海报字段 poster 可选）
// POST /api/v1/votings
func (h *VotingHandler) Create(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateVotingRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	poster, err := optionalFile(c, "poster")
	if err != nil {
		response.BadRequest(c, 10001, "海报上传失败")
		return
	}

	voting, err := h.votingSvc.Create(c.Request.Context(), &req, poster, callerID)
	if err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.Created(c, voting)
}

// Update 更新投票
// PUT /api/v1/votings/:id
func (h *VotingHandler) Update(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateVotingRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	poster, err := optionalFile(c, "poster")
	if err != nil {
		response.BadRequest(c, 10001, "海报上传失败")
		return
	}

	voting, err := h.votingSvc.Update(c.Request.Context(), c.Param("id"), &req, poster, callerID)
	if err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.OK(c, voting)
}

// Delete 删除投票
// DELETE /api/v1/votings/:id
func (h *VotingHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.votingSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 候选项 ──────────────────────

// ListOptions 候选项列表
// GET /api/v1/votings/:id/options
func (h *VotingHandler) ListOptions(c *gin.Context) {
	options, err := h.votingSvc.ListOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.OK(c, options)
}

// CreateOption 新增候选项（multipart，照片字段 photo 可选）
// POST /api/v1/votings/:id/options
func (h *VotingHandler) CreateOption(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateOptionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	photo, err := optionalFile(c, "photo")
	if err != nil {
		response.BadRequest(c, 10001, "照片上传失败")
		return
	}

	option, err := h.votingSvc.CreateOption(c.Request.Context(), c.Param("id"), &req, photo, callerID)
	if err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.Created(c, option)
}

// UpdateOption 更新候选项
// PUT /api/v1/votings/:id/options/:optId （表单提交时 POST + _method=PUT）
func (h *VotingHandler) UpdateOption(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateOptionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	photo, err := optionalFile(c, "photo")
	if err != nil {
		response.BadRequest(c, 10001, "照片上传失败")
		return
	}

	option, err := h.votingSvc.UpdateOption(c.Request.Context(), c.Param("id"), c.Param("optId"), &req, photo, callerID)
	if err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.OK(c, option)
}

// DeleteOption 删除候选项
// DELETE /api/v1/votings/:id/options/:optId
func (h *VotingHandler) DeleteOption(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.votingSvc.DeleteOption(c.Request.Context(), c.Param("id"), c.Param("optId"), callerID); err != nil {
		h.handleVotingError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleVotingError 统一处理投票管理业务错误
func (h *VotingHandler) handleVotingError(c *gin.Context, err error) {
	if handleUploadError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrVotingNotFound):
		response.NotFound(c, 23001, "投票不存在")
	case errors.Is(err, service.ErrVotingDateInvalid), errors.Is(err, service.ErrVotingDateRange):
		response.BadRequest(c, 23005, "投票日期无效或结束日期早于开始日期")
	case errors.Is(err, service.ErrVotingHasVotes):
		response.Conflict(c, 23006, "投票已有选票，候选项不可修改")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 23007, "投票已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrOptionNotFound):
		response.NotFound(c, 24001, "候选项不存在")
	default:
		response.InternalError(c)
	}
}
