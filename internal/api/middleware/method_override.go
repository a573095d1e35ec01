package middleware

import (
	"net/http"
	"strings"
)

const (
	methodOverrideHeader = "X-HTTP-Method-Override"
	methodOverrideField  = "_method"
	// 解析 multipart 时保留在内存中的上限，超出部分落临时文件
	multipartMemory = 8 << 20
)

var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride 让浏览器表单以 POST 携带 _method 提交 PUT/PATCH/DELETE
// 需包裹在 gin 引擎外层：gin 在路由匹配前就已读取 Request.Method
// 来源优先级：请求头 X-HTTP-Method-Override > 查询参数 _method > 表单字段 _method
func MethodOverride(next http.Handler, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if m := overrideMethod(w, r, maxBodyBytes); m != "" {
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func overrideMethod(w http.ResponseWriter, r *http.Request, maxBodyBytes int64) string {
	if m := normalizeMethod(r.Header.Get(methodOverrideHeader)); m != "" {
		return m
	}
	if m := normalizeMethod(r.URL.Query().Get(methodOverrideField)); m != "" {
		return m
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		// 解析结果缓存在 r.MultipartForm，gin 绑定时直接复用
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return ""
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return ""
		}
	default:
		return ""
	}
	return normalizeMethod(r.PostForm.Get(methodOverrideField))
}

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if overridableMethods[m] {
		return m
	}
	return ""
}
