package admin

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

var settleErrorRules = []handlershared.MappedError{
	{Target: service.ErrSubOrderNotFound, Code: response.CodeNotFound, Key: "error.suborder_not_found"},
	{Target: service.ErrInvalidStateTransition, Code: response.CodeConflict, Key: "error.invalid_state_transition"},
	{Target: service.ErrInsufficientBalance, Code: response.CodeInternal, Key: "error.insufficient_balance"},
}

// SettleSubOrder 手动补结算已送达的子订单，重复调用返回已有结算单
func (h *Handler) SettleSubOrder(c *gin.Context) {
	subOrderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	settlement, err := h.SettlementService.Settle(c.Request.Context(), subOrderID)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, settleErrorRules, response.CodeInternal, "error.fulfillment_failed")
		return
	}
	response.Success(c, settlement)
}
