package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/service"
	"emis-vote/backend/pkg/response"
)

// VoteHandler 投票提交与结果 HTTP 处理器
type VoteHandler struct {
	voteSvc service.VoteService
}

// NewVoteHandler 创建 VoteHandler
func NewVoteHandler(voteSvc service.VoteService) *VoteHandler {
	return &VoteHandler{voteSvc: voteSvc}
}

// Submit 提交选票，每个用户每个投票仅一次
// POST /api/v1/votes
func (h *VoteHandler) Submit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitVoteRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.voteSvc.Submit(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.Created(c, result)
}

// Status 查询投票状态
// GET /api/v1/votes/check?voting_id=&user_id=
func (h *VoteHandler) Status(c *gin.Context) {
	var req dto.VoteStatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	userID, ok := resolveTargetUser(c, req.UserID, 23008)
	if !ok {
		return
	}

	result, err := h.voteSvc.Status(c.Request.Context(), req.VotingID, userID)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, result)
}

// Results 投票结果（按票数排名）
// GET /api/v1/votings/:id/results
func (h *VoteHandler) Results(c *gin.Context) {
	result, err := h.voteSvc.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, result)
}

// handleVoteError 统一处理投票提交业务错误
func (h *VoteHandler) handleVoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVotingNotFound):
		response.NotFound(c, 23001, "投票不存在")
	case errors.Is(err, service.ErrVotingNotActive):
		response.Conflict(c, 23002, "投票未开放")
	case errors.Is(err, service.ErrAlreadyVoted):
		response.Conflict(c, 23003, "您已参与过该投票")
	case errors.Is(err, service.ErrOptionNotInVoting):
		response.BadRequest(c, 23004, "候选项不属于该投票")
	default:
		response.InternalError(c)
	}
}
