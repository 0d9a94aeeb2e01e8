package seller

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

// WithdrawRequest 卖家提现请求，reference 作为幂等键
type WithdrawRequest struct {
	Amount    models.Money `json:"amount"`
	Reference string       `json:"reference" binding:"required"`
	Remark    string       `json:"remark"`
}

var withdrawErrorRules = []handlershared.MappedError{
	{Target: service.ErrWalletInvalidAmount, Code: response.CodeBadRequest, Key: "error.wallet_amount_invalid"},
	{Target: service.ErrLedgerReferenceEmpty, Code: response.CodeBadRequest, Key: "error.ledger_reference_empty"},
	{Target: service.ErrInsufficientBalance, Code: response.CodeBadRequest, Key: "error.insufficient_balance"},
	{Target: service.ErrWalletLocked, Code: response.CodeForbidden, Key: "error.wallet_locked"},
	{Target: service.ErrWalletAccountNotFound, Code: response.CodeNotFound, Key: "error.wallet_not_found"},
}

// Withdraw 卖家提现
func (h *Handler) Withdraw(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	if actor.SellerID == 0 {
		respondError(c, response.CodeForbidden, "error.seller_id_invalid", nil)
		return
	}
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	txn, err := h.WalletService.Withdraw(c.Request.Context(), service.WithdrawInput{
		SellerID:  actor.SellerID,
		Amount:    req.Amount,
		Reference: req.Reference,
		Remark:    req.Remark,
	})
	if err != nil {
		handlershared.RespondWithMappedError(c, err, withdrawErrorRules, response.CodeInternal, "error.withdraw_failed")
		return
	}
	response.Success(c, txn)
}
