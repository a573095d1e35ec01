// Package validate 注册 gin 绑定使用的自定义校验标签
package validate

import (
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DateLayout 日期字段统一格式
const DateLayout = "2006-01-02"

var (
	once    sync.Once
	regErr  error
	errType = errors.New("gin 校验引擎不是 go-playground/validator")
)

// Register 在 gin 的校验引擎上注册 date 标签，可重复调用
func Register() error {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			regErr = errType
			return
		}
		regErr = v.RegisterValidation("date", isDate)
	})
	return regErr
}

// isDate 校验 YYYY-MM-DD 格式且为真实日期
func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}
