package public

import (
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/payment"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// PaymentCallbackRequest 网关回调请求
type PaymentCallbackRequest struct {
	TxnRef      string       `json:"txn_ref" binding:"required"`
	Status      string       `json:"status" binding:"required"`
	Amount      models.Money `json:"amount"`
	ProviderRef string       `json:"provider_ref"`
	Payload     models.JSON  `json:"payload"`
}

// PaymentCallback 处理网关支付结果，先校验原文签名，重复回调按成功返回原结果
func (h *Handler) PaymentCallback(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	cfg := h.Config.Payment
	if err := payment.VerifyCallback(cfg.CallbackSecret, raw, c.GetHeader(cfg.SignatureHeaderName())); err != nil {
		requestLog(c).Warnw("payment_callback_signature_rejected", "client_ip", c.ClientIP(), "error", err)
		respondPaymentCallbackError(c, err)
		return
	}

	var req PaymentCallbackRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.PaymentService.HandleCallback(c.Request.Context(), service.PaymentCallbackInput{
		TxnRef:      req.TxnRef,
		Status:      req.Status,
		Amount:      req.Amount,
		ProviderRef: req.ProviderRef,
		Payload:     req.Payload,
	})
	if err != nil {
		respondPaymentCallbackError(c, err)
		return
	}
	response.Success(c, gin.H{
		"txn_ref":        result.Payment.TxnRef,
		"status":         result.Payment.Status,
		"duplicate":      result.Duplicate,
		"refunded":       result.Refunded,
		"order_group_id": result.OrderGroupID,
	})
}
