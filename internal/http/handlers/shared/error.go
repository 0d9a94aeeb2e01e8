package shared

import (
	"errors"

	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/i18n"
	"github.com/modamart/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString(response.RequestIDKey); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	appErr := response.WrapError(code, i18n.T(locale, key), err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondWithMappedError 按规则表匹配错误，未命中时使用兜底码并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组映射规则
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
