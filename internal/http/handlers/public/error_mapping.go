package public

import (
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/payment"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = handlershared.MappedError

var cartErrorRules = []mappedHandlerError{
	{Target: service.ErrCartItemInvalid, Code: response.CodeBadRequest, Key: "error.cart_item_invalid"},
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrProductNotAvailable, Code: response.CodeBadRequest, Key: "error.product_not_available"},
	{Target: service.ErrStockInsufficient, Code: response.CodeBadRequest, Key: "error.stock_insufficient"},
	{Target: service.ErrSellerTypeConflict, Code: response.CodeConflict, Key: "error.seller_type_conflict"},
}

var checkoutSessionErrorRules = []mappedHandlerError{
	{Target: service.ErrCartEmpty, Code: response.CodeBadRequest, Key: "error.cart_empty"},
	{Target: service.ErrSessionNotFound, Code: response.CodeNotFound, Key: "error.session_not_found"},
	{Target: service.ErrSessionExpired, Code: response.CodeBadRequest, Key: "error.session_expired"},
	{Target: service.ErrSessionAlreadyConsumed, Code: response.CodeConflict, Key: "error.session_consumed"},
	{Target: service.ErrCheckoutItemInvalid, Code: response.CodeBadRequest, Key: "error.checkout_item_invalid"},
	{Target: service.ErrNothingSelected, Code: response.CodeBadRequest, Key: "error.nothing_selected"},
}

var checkoutPayExtraErrorRules = []mappedHandlerError{
	{Target: service.ErrPayMethodInvalid, Code: response.CodeBadRequest, Key: "error.pay_method_invalid"},
	{Target: service.ErrCheckoutBusy, Code: response.CodeTooManyRequests, Key: "error.checkout_busy"},
	{Target: service.ErrInsufficientBalance, Code: response.CodeBadRequest, Key: "error.insufficient_balance"},
	{Target: service.ErrWalletLocked, Code: response.CodeForbidden, Key: "error.wallet_locked"},
	{Target: service.ErrTxnRefConflict, Code: response.CodeConflict, Key: "error.txn_ref_conflict"},
	{Target: service.ErrSplitConsistency, Code: response.CodeInternal, Key: "error.split_consistency"},
	{Target: service.ErrSellerTypeConflict, Code: response.CodeConflict, Key: "error.seller_type_conflict"},
	{Target: service.ErrStockInsufficient, Code: response.CodeBadRequest, Key: "error.stock_insufficient"},
}

var orderErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
}

var walletErrorRules = []mappedHandlerError{
	{Target: service.ErrWalletAccountNotFound, Code: response.CodeNotFound, Key: "error.wallet_not_found"},
	{Target: service.ErrWalletInvalidAmount, Code: response.CodeBadRequest, Key: "error.wallet_amount_invalid"},
	{Target: service.ErrWalletLocked, Code: response.CodeForbidden, Key: "error.wallet_locked"},
	{Target: service.ErrTxnRefConflict, Code: response.CodeConflict, Key: "error.txn_ref_conflict"},
}

var paymentCallbackErrorRules = []mappedHandlerError{
	{Target: payment.ErrConfigInvalid, Code: response.CodeInternal, Key: "error.payment_callback_unconfigured"},
	{Target: payment.ErrSignatureMissing, Code: response.CodeUnauthorized, Key: "error.payment_signature_invalid"},
	{Target: payment.ErrSignatureInvalid, Code: response.CodeUnauthorized, Key: "error.payment_signature_invalid"},
	{Target: service.ErrPaymentInvalid, Code: response.CodeBadRequest, Key: "error.payment_invalid"},
	{Target: service.ErrPaymentNotFound, Code: response.CodeNotFound, Key: "error.payment_not_found"},
	{Target: service.ErrPaymentStatusInvalid, Code: response.CodeBadRequest, Key: "error.payment_status_invalid"},
	{Target: service.ErrPaymentAmountMismatch, Code: response.CodeBadRequest, Key: "error.payment_amount_mismatch"},
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackKey)
}

func respondCartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.cart_update_failed")
}

func respondCheckoutSessionError(c *gin.Context, err error) {
	rules := handlershared.ConcatMappedErrors(checkoutSessionErrorRules, cartErrorRules)
	respondWithMappedError(c, err, rules, response.CodeInternal, "error.checkout_failed")
}

func respondCheckoutPayError(c *gin.Context, err error) {
	rules := handlershared.ConcatMappedErrors(checkoutSessionErrorRules, checkoutPayExtraErrorRules)
	respondWithMappedError(c, err, rules, response.CodeInternal, "error.checkout_pay_failed")
}

func respondPaymentCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCallbackErrorRules, response.CodeInternal, "error.payment_callback_failed")
}
