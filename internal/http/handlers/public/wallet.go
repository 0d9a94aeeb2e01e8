package public

import (
	"github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

// WalletRechargeRequest 钱包充值请求
type WalletRechargeRequest struct {
	Amount models.Money `json:"amount"`
	TxnRef string       `json:"txn_ref"`
}

// GetMyWallet 获取当前钱包（卖家返回卖家账户）
func (h *Handler) GetMyWallet(c *gin.Context) {
	actor, ok := shared.GetActor(c)
	if !ok {
		return
	}
	var (
		overview *service.WalletOverview
		err      error
	)
	if actor.SellerID != 0 && !actor.IsAdmin() {
		overview, err = h.WalletService.GetSellerWallet(actor.SellerID)
	} else {
		overview, err = h.WalletService.GetCustomerWallet(actor.UserID)
	}
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules, response.CodeInternal, "error.wallet_fetch_failed")
		return
	}
	response.Success(c, overview)
}

// GetMyWalletTransactions 分页查询钱包流水
func (h *Handler) GetMyWalletTransactions(c *gin.Context) {
	actor, ok := shared.GetActor(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	filter := repository.BalanceTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		Kind:     c.Query("kind"),
	}
	var (
		transactions []models.BalanceTransaction
		total        int64
		err          error
	)
	if actor.SellerID != 0 && !actor.IsAdmin() {
		transactions, total, err = h.WalletService.ListSellerTransactions(actor.SellerID, filter)
	} else {
		transactions, total, err = h.WalletService.ListCustomerTransactions(actor.UserID, filter)
	}
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules, response.CodeInternal, "error.wallet_fetch_failed")
		return
	}
	response.SuccessWithPage(c, transactions, response.NewPagination(page, pageSize, total))
}

// CreateWalletRecharge 创建网关充值流水，到账以支付回调为准
func (h *Handler) CreateWalletRecharge(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req WalletRechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	payment, err := h.PaymentService.CreateRecharge(c.Request.Context(), service.CreateRechargeInput{
		UserID: uid,
		Amount: req.Amount,
		TxnRef: req.TxnRef,
	})
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules, response.CodeInternal, "error.recharge_failed")
		return
	}
	response.Success(c, payment)
}
