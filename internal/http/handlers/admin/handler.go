package admin

import "github.com/modamart/internal/provider"

// Handler 平台运营接口：钱包对账、结算补偿、权限查看
type Handler struct {
	*provider.Container
}

// New 创建平台运营处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
