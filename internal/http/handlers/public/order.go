package public

import (
	"github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListOrders 分页查询当前用户订单
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		UserID:        uid,
		PaymentStatus: c.Query("payment_status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 获取订单详情（父订单 + 子订单 + 明细）
func (h *Handler) GetOrder(c *gin.Context) {
	ownerID, ok := orderOwnerScope(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.OrderService.GetOrder(ownerID, orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, view)
}

// GetOrderProgress 获取订单履约进度与时间线
func (h *Handler) GetOrderProgress(c *gin.Context) {
	ownerID, ok := orderOwnerScope(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.FulfillmentService.GetProgress(ownerID, orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, progress)
}

// orderOwnerScope 管理员返回 0（不限归属），其余返回当前用户 ID
func orderOwnerScope(c *gin.Context) (uint, bool) {
	actor, ok := shared.GetActor(c)
	if !ok {
		return 0, false
	}
	if actor.IsAdmin() {
		return 0, true
	}
	return actor.UserID, true
}
