package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin student"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Username string `json:"username" binding:"required,alphanum,min=3,max=50"`
	Email    string `json:"email"    binding:"required,email,max=255"`
	Role     string `json:"role"     binding:"required,oneof=admin student"`
}

// CreateUserResponse 创建用户响应（含临时密码）
type CreateUserResponse struct {
	User         *UserResponse `json:"user"`
	TempPassword string        `json:"temp_password"`
}

// ImportUserResponse 批量导入学生响应
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
	// Credentials 成功导入用户的初始密码，仅在本次响应中返回
	Credentials []ImportedCredential `json:"credentials,omitempty"`
}

// ImportedCredential 导入用户的初始登录凭据
type ImportedCredential struct {
	Row          int    `json:"row"`
	Username     string `json:"username"`
	TempPassword string `json:"temp_password"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
