package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"emis-vote/backend/internal/model"
	"emis-vote/backend/pkg/response"
	"emis-vote/backend/pkg/storage"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// tokenMeta 当前 Access Token 的 jti 与过期时间（注销使用）
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	t, _ := exp.(time.Time)
	return jti, t
}

// resolveTargetUser 解析查询目标用户
// 缺省为当前用户；学生只能查询自己，管理员可指定任意 user_id
func resolveTargetUser(c *gin.Context, requested string, forbiddenCode int) (string, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", false
	}
	if requested == "" || requested == userID {
		return userID, true
	}
	role, ok := MustGetRole(c)
	if !ok {
		return "", false
	}
	if role != model.RoleAdmin {
		response.Forbidden(c, forbiddenCode, "只能查询本人的记录")
		return "", false
	}
	return requested, true
}

// optionalFile 读取可选的上传文件字段，未上传时返回 nil
func optionalFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return fh, nil
}

// handleUploadError 处理上传校验错误，已处理返回 true
func handleUploadError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		response.BadRequest(c, 25001, "文件大小超出限制（最大 4MB）")
	case errors.Is(err, storage.ErrUnsupportedType):
		response.BadRequest(c, 25002, "仅支持 JPEG/PNG 图片")
	default:
		return false
	}
	return true
}
