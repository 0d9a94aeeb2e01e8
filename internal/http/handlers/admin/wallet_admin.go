package admin

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyWallet 以流水重算账户余额并与存量余额比对
func (h *Handler) VerifyWallet(c *gin.Context) {
	accountID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.WalletService.VerifyAccount(accountID)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, []handlershared.MappedError{
			{Target: service.ErrWalletAccountNotFound, Code: response.CodeNotFound, Key: "error.wallet_not_found"},
		}, response.CodeInternal, "error.wallet_verify_failed")
		return
	}
	if !result.Consistent {
		handlershared.RequestLog(c).Warnw("wallet_balance_inconsistent",
			"account_id", result.AccountID,
			"stored_balance", result.StoredBalance.String(),
			"ledger_balance", result.LedgerBalance.String(),
		)
	}
	response.Success(c, result)
}
