package dto

// ── 投票模块 DTO ──

// VotingListRequest 投票列表查询参数
type VotingListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,oneof=draft active closed"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// CreateVotingRequest 创建投票请求（multipart，海报文件字段名 poster）
type CreateVotingRequest struct {
	Title       string `form:"title"       binding:"required,min=2,max=200"`
	Description string `form:"description" binding:"omitempty,max=5000"`
	StartDate   string `form:"start_date"  binding:"required,date"`
	EndDate     string `form:"end_date"    binding:"required,date"`
	Status      string `form:"status"      binding:"omitempty,oneof=draft active closed"`
}

// UpdateVotingRequest 更新投票请求（乐观锁：version 必填）
type UpdateVotingRequest struct {
	Title       *string `form:"title"       binding:"omitempty,min=2,max=200"`
	Description *string `form:"description" binding:"omitempty,max=5000"`
	StartDate   *string `form:"start_date"  binding:"omitempty,date"`
	EndDate     *string `form:"end_date"    binding:"omitempty,date"`
	Status      *string `form:"status"      binding:"omitempty,oneof=draft active closed"`
	Version     int     `form:"version"     binding:"required,min=1"`
}

// VotingResponse 投票信息响应
type VotingResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Poster      string           `json:"poster"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Status      string           `json:"status"`
	Version     int              `json:"version"`
	TotalVotes  int              `json:"total_votes"`
	Options     []OptionResponse `json:"options"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// ── 候选项 DTO ──

// CreateOptionRequest 创建候选项请求（multipart，照片文件字段名 photo）
type CreateOptionRequest struct {
	Name string `form:"name" binding:"required,min=1,max=100"`
	Bio  string `form:"bio"  binding:"omitempty,max=5000"`
}

// UpdateOptionRequest 更新候选项请求
type UpdateOptionRequest struct {
	Name *string `form:"name" binding:"omitempty,min=1,max=100"`
	Bio  *string `form:"bio"  binding:"omitempty,max=5000"`
}

// OptionResponse 候选项响应
type OptionResponse struct {
	ID         string `json:"id"`
	VotingID   string `json:"voting_id"`
	Name       string `json:"name"`
	Bio        string `json:"bio"`
	Photo      string `json:"photo"`
	VotesCount int    `json:"votes_count"`
}

// ── 选票 DTO ──

// SubmitVoteRequest 投票请求
type SubmitVoteRequest struct {
	VotingID string `json:"voting_id" form:"voting_id" binding:"required,uuid"`
	OptionID string `json:"option_id" form:"option_id" binding:"required,uuid"`
}

// VoteStatusRequest 投票状态查询参数（user_id 缺省为当前用户）
type VoteStatusRequest struct {
	VotingID string `form:"voting_id" binding:"required,uuid"`
	UserID   string `form:"user_id"   binding:"omitempty,uuid"`
}

// VoteResponse 投票成功响应
type VoteResponse struct {
	ID        string `json:"id"`
	VotingID  string `json:"voting_id"`
	OptionID  string `json:"option_id"`
	CreatedAt string `json:"created_at"`
}

// VoteStatusResponse 投票状态响应
type VoteStatusResponse struct {
	VotingID   string `json:"voting_id"`
	UserID     string `json:"user_id"`
	HasVoted   bool   `json:"has_voted"`
	OptionID   string `json:"option_id,omitempty"`
	OptionName string `json:"option_name,omitempty"`
	VotedAt    string `json:"voted_at,omitempty"`
}

// ── 结果 DTO ──

// VotingResultResponse 投票结果
type VotingResultResponse struct {
	VotingID   string                 `json:"voting_id"`
	Title      string                 `json:"title"`
	Status     string                 `json:"status"`
	TotalVotes int                    `json:"total_votes"`
	Options    []OptionResultResponse `json:"options"`
}

// OptionResultResponse 候选项得票（已按票数降序排名）
type OptionResultResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Photo      string `json:"photo"`
	VotesCount int    `json:"votes_count"`
	Percentage int    `json:"percentage"`
	Rank       int    `json:"rank"`
}
