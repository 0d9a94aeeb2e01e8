package seller

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 卖家侧接口处理器入口
// 说明：子订单履约、子订单列表与提现，管理员同样可调用。
type Handler struct {
	*provider.Container
}

// New 创建卖家侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}
