package dto

// ── 活动模块 DTO ──

// EventListRequest 活动列表查询参数
type EventListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,oneof=active expired"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// CreateEventRequest 创建活动请求（multipart，海报文件字段名 poster）
type CreateEventRequest struct {
	Title       string `form:"title"       binding:"required,min=2,max=200"`
	Description string `form:"description" binding:"omitempty,max=5000"`
	Date        string `form:"date"        binding:"required,date"`
	Location    string `form:"location"    binding:"omitempty,max=200"`
	Status      string `form:"status"      binding:"omitempty,oneof=active expired"`
	Quota       int    `form:"quota"       binding:"omitempty,min=0"`
}

// UpdateEventRequest 更新活动请求
// status=auto 表示清除显式状态，改由日期推导
type UpdateEventRequest struct {
	Title       *string `form:"title"       binding:"omitempty,min=2,max=200"`
	Description *string `form:"description" binding:"omitempty,max=5000"`
	Date        *string `form:"date"        binding:"omitempty,date"`
	Location    *string `form:"location"    binding:"omitempty,max=200"`
	Status      *string `form:"status"      binding:"omitempty,oneof=active expired auto"`
	Quota       *int    `form:"quota"       binding:"omitempty,min=0"`
}

// EventResponse 活动信息响应（status 为服务端推导后的最终状态）
type EventResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Date             string `json:"date"`
	Location         string `json:"location"`
	Poster           string `json:"poster"`
	Status           string `json:"status"`
	StatusExplicit   bool   `json:"status_explicit"`
	Quota            int    `json:"quota"`
	ParticipantCount int64  `json:"participant_count"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// ParticipantResponse 活动参与者
type ParticipantResponse struct {
	RegistrationID string `json:"registration_id"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	RegisteredAt   string `json:"registered_at"`
}

// ── 报名模块 DTO ──

// RegisterEventRequest 报名请求
type RegisterEventRequest struct {
	EventID string `json:"event_id" form:"event_id" binding:"required,uuid"`
}

// RegistrationCheckRequest 报名状态查询参数（user_id 缺省为当前用户）
type RegistrationCheckRequest struct {
	EventID string `form:"event_id" binding:"required,uuid"`
	UserID  string `form:"user_id"  binding:"omitempty,uuid"`
}

// RegistrationResponse 报名成功响应
type RegistrationResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

// RegistrationCheckResponse 报名状态响应
type RegistrationCheckResponse struct {
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	Registered   bool   `json:"registered"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

// MyRegistrationResponse 我的报名记录
type MyRegistrationResponse struct {
	RegistrationID string         `json:"registration_id"`
	RegisteredAt   string         `json:"registered_at"`
	Event          *EventResponse `json:"event,omitempty"`
}
