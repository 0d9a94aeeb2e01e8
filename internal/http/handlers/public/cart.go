package public

import (
	"github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 购物车项请求
type CartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	items, err := h.CartService.ListByUser(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

// UpsertCartItem 添加/更新购物车项，数量为 0 时移除
func (h *Handler) UpsertCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Quantity <= 0 {
		if err := h.CartService.RemoveItem(uid, req.ProductID); err != nil {
			respondCartError(c, err)
			return
		}
		response.Success(c, gin.H{"updated": true})
		return
	}
	if err := h.CartService.UpsertItem(service.UpsertCartItemInput{
		UserID:    uid,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": true})
}

// DeleteCartItem 删除购物车项
func (h *Handler) DeleteCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := shared.ParseIDParam(c, "product_id")
	if !ok {
		return
	}
	if err := h.CartService.RemoveItem(uid, productID); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
