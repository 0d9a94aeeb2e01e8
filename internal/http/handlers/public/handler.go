package public

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 顾客侧接口处理器入口
// 说明：购物车、结算、订单查询、钱包与支付回调。
type Handler struct {
	*provider.Container
}

// New 创建顾客侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetUserID(c)
}
