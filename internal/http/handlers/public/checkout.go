package public

import (
	"strings"

	"github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

const idempotencyKeyHeader = "Idempotency-Key"

// UpdateSelectionRequest 更新勾选请求
type UpdateSelectionRequest struct {
	ItemIDs []uint `json:"item_ids"`
}

// CheckoutPayRequest 结算支付请求
// item_ids 为空时支付当前勾选项；provider_id 非 0 时只支付该卖家的勾选项
type CheckoutPayRequest struct {
	ItemIDs         []uint      `json:"item_ids"`
	ProviderID      uint        `json:"provider_id"`
	TxnRef          string      `json:"txn_ref"`
	Method          string      `json:"method"`
	ShippingAddress models.JSON `json:"shipping_address"`
}

// CreateCheckoutSession 以购物车创建结算会话
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	view, err := h.CheckoutService.CreateFromCart(c.Request.Context(), uid)
	if err != nil {
		respondCheckoutSessionError(c, err)
		return
	}
	response.Success(c, view)
}

// GetCheckoutSession 获取结算会话
func (h *Handler) GetCheckoutSession(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	sessionID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.CheckoutService.GetSession(c.Request.Context(), uid, sessionID)
	if err != nil {
		respondCheckoutSessionError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateCheckoutSelection 更新会话勾选项
func (h *Handler) UpdateCheckoutSelection(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	sessionID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.CheckoutService.UpdateSelection(c.Request.Context(), uid, sessionID, req.ItemIDs)
	if err != nil {
		respondCheckoutSessionError(c, err)
		return
	}
	response.Success(c, view)
}

// PayCheckoutSession 支付结算会话（钱包直接拆单，网关返回待支付流水）
func (h *Handler) PayCheckoutSession(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	sessionID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req CheckoutPayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	txnRef := strings.TrimSpace(req.TxnRef)
	if txnRef == "" {
		txnRef = strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	}
	input := service.PayInput{
		UserID:          uid,
		SessionID:       sessionID,
		ItemIDs:         req.ItemIDs,
		ProviderID:      req.ProviderID,
		TxnRef:          txnRef,
		Method:          req.Method,
		ShippingAddress: req.ShippingAddress,
	}

	var (
		result *service.PayResult
		err    error
	)
	if req.ProviderID != 0 {
		result, err = h.CheckoutService.PayByProvider(c.Request.Context(), input)
	} else {
		result, err = h.CheckoutService.PayAllSelected(c.Request.Context(), input)
	}
	if err != nil {
		respondCheckoutPayError(c, err)
		return
	}
	response.Success(c, result)
}
