package shared

import (
	"strconv"
	"strings"

	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextUserIDKey   = "user_id"
	ContextRoleKey     = "role"
	ContextSellerIDKey = "seller_id"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetUserID 读取当前登录用户 ID
func GetUserID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextUserIDKey, "error.user_id_invalid", "error.user_id_type_invalid")
}

// GetActor 组装当前操作人（用户、角色、所属卖家）
func GetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	actor := service.Actor{
		UserID: userID,
		Role:   strings.TrimSpace(c.GetString(ContextRoleKey)),
	}
	if _, exists := c.Get(ContextSellerIDKey); exists {
		sellerID, ok := GetContextUintWithKeys(c, ContextSellerIDKey, "error.seller_id_invalid", "error.seller_id_invalid")
		if !ok {
			return service.Actor{}, false
		}
		actor.SellerID = sellerID
	}
	return actor, true
}

// ParseIDParam 解析路径中的正整数 ID，失败时直接写出错误响应
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}
