package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/events"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/metrics"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/queue"
	"github.com/modamart/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const paymentSweepBatchSize = 100

// PaymentService 网关支付回调与充值服务
type PaymentService struct {
	cfg         config.CheckoutConfig
	paymentRepo repository.PaymentRepository
	ledger      *WalletLedger
	checkoutSvc *CheckoutService
	queueClient *queue.Client
	publisher   events.Publisher
	retry       RetryPolicy
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	cfg config.CheckoutConfig,
	paymentRepo repository.PaymentRepository,
	ledger *WalletLedger,
	checkoutSvc *CheckoutService,
	queueClient *queue.Client,
	publisher events.Publisher,
	retry RetryPolicy,
) *PaymentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		cfg:         cfg,
		paymentRepo: paymentRepo,
		ledger:      ledger,
		checkoutSvc: checkoutSvc,
		queueClient: queueClient,
		publisher:   publisher,
		retry:       retry,
	}
}

// PaymentCallbackInput 网关回调输入
type PaymentCallbackInput struct {
	TxnRef      string
	Status      string
	Amount      models.Money
	ProviderRef string
	Payload     models.JSON
}

// PaymentCallbackResult 回调处理结果
type PaymentCallbackResult struct {
	Payment      *models.PaymentTransaction `json:"payment"`
	Duplicate    bool                       `json:"duplicate"`
	Refunded     bool                       `json:"refunded"`
	OrderGroupID *uint                      `json:"order_group_id,omitempty"`
}

// CreateRechargeInput 钱包充值输入
type CreateRechargeInput struct {
	UserID uint
	Amount models.Money
	TxnRef string
}

// splitFailure 网关资金已到账但拆单失败，需要在独立事务中退款
type splitFailure struct {
	err error
}

func (e *splitFailure) Error() string {
	return fmt.Sprintf("split after gateway capture: %v", e.err)
}

func (e *splitFailure) Unwrap() error {
	return e.err
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func normalizeCallbackStatus(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "paid":
		return constants.PaymentStatusSuccess, nil
	case "failed", "fail":
		return constants.PaymentStatusFailed, nil
	default:
		return "", ErrPaymentStatusInvalid
	}
}

// HandleCallback 处理网关回调，已处理过的回调按幂等成功返回
func (s *PaymentService) HandleCallback(ctx context.Context, input PaymentCallbackInput) (*PaymentCallbackResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	input.TxnRef = strings.TrimSpace(input.TxnRef)
	input.ProviderRef = strings.TrimSpace(input.ProviderRef)
	if input.TxnRef == "" {
		return nil, ErrPaymentInvalid
	}
	status, err := normalizeCallbackStatus(input.Status)
	if err != nil {
		return nil, err
	}
	log := paymentLogger(
		"txn_ref", input.TxnRef,
		"target_status", status,
		"callback_provider_ref", input.ProviderRef,
		"callback_amount", input.Amount.String(),
	)
	log.Infow("payment_callback_received")

	var (
		result *PaymentCallbackResult
		split  *SplitResult
	)
	err = withLockRetry(ctx, s.retry, func() error {
		result, split = nil, nil
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, split, err = s.applyCallbackInTx(tx, input, status, time.Now())
			return err
		})
	})

	var failure *splitFailure
	if errors.As(err, &failure) {
		log.Warnw("payment_callback_split_failed", "error", failure.err)
		refunded, refundErr := s.refundCapturedPayment(ctx, input, failure.err.Error())
		if refundErr != nil {
			log.Errorw("payment_callback_refund_failed", "error", refundErr)
			metrics.CheckoutPaymentsTotal.WithLabelValues(constants.PayMethodGateway, "error").Inc()
			return nil, refundErr
		}
		metrics.CheckoutPaymentsTotal.WithLabelValues(constants.PayMethodGateway, "refunded").Inc()
		log.Infow("payment_callback_refunded", "amount", refunded.Payment.Amount.String())
		return refunded, nil
	}
	if err != nil {
		metrics.CheckoutPaymentsTotal.WithLabelValues(constants.PayMethodGateway, "error").Inc()
		log.Warnw("payment_callback_apply_failed", "error", err)
		return nil, err
	}

	if result.Duplicate {
		metrics.CheckoutPaymentsTotal.WithLabelValues(constants.PayMethodGateway, "duplicate").Inc()
		log.Infow("payment_callback_idempotent", "current_status", result.Payment.Status)
		return result, nil
	}
	metrics.CheckoutPaymentsTotal.WithLabelValues(constants.PayMethodGateway, result.Payment.Status).Inc()
	if result.Payment.CheckoutSessionID != nil {
		s.checkoutSvc.invalidateSessionCache(ctx, *result.Payment.CheckoutSessionID)
	}
	if split != nil && result.OrderGroupID != nil {
		publishEvent(ctx, s.publisher, constants.EventOrderSplit, newOrderSplitEvent(*result.OrderGroupID, split))
	}
	if result.Payment.Purpose == constants.PaymentPurposeRecharge && result.Payment.Status == constants.PaymentStatusSuccess {
		publishEvent(ctx, s.publisher, constants.EventWalletDeposit, map[string]interface{}{
			"user_id": result.Payment.UserID,
			"txn_ref": result.Payment.TxnRef,
			"amount":  result.Payment.Amount,
		})
	}
	log.Infow("payment_callback_processed",
		"new_status", result.Payment.Status,
		"order_group_id", result.OrderGroupID,
		"refunded", result.Refunded,
	)
	return result, nil
}

func (s *PaymentService) applyCallbackInTx(tx *gorm.DB, input PaymentCallbackInput, status string, now time.Time) (*PaymentCallbackResult, *SplitResult, error) {
	paymentRepo := s.paymentRepo.WithTx(tx)
	payment, err := paymentRepo.GetByTxnRefForUpdate(input.TxnRef)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, ErrPaymentNotFound
	}
	if payment.Provider != constants.PaymentProviderGateway {
		return nil, nil, ErrPaymentInvalid
	}
	if input.Amount.Decimal.Cmp(payment.Amount.Decimal) != 0 {
		return nil, nil, ErrPaymentAmountMismatch
	}

	// 超时后才到账的资金直接退回钱包
	if payment.Status == constants.PaymentStatusExpired && status == constants.PaymentStatusSuccess {
		if err := s.refundInTx(tx, payment, input, "payment expired before capture", now); err != nil {
			return nil, nil, err
		}
		return &PaymentCallbackResult{Payment: payment, Refunded: true}, nil, nil
	}
	if payment.Status != constants.PaymentStatusPending {
		return &PaymentCallbackResult{Payment: payment, Duplicate: true, OrderGroupID: payment.OrderGroupID}, nil, nil
	}

	payment.ProviderRef = input.ProviderRef
	payment.CallbackPayload = input.Payload
	payment.CallbackAt = &now

	if status == constants.PaymentStatusFailed {
		payment.Status = constants.PaymentStatusFailed
		payment.FailureReason = "gateway reported failure"
		if err := paymentRepo.Update(payment); err != nil {
			return nil, nil, err
		}
		return &PaymentCallbackResult{Payment: payment}, nil, nil
	}

	paymentID := payment.ID
	payment.PaidAt = &now
	if payment.Purpose == constants.PaymentPurposeRecharge {
		if _, err := s.ledger.CreditInTx(tx, LedgerEntry{
			Account:              CustomerAccount(payment.UserID),
			Amount:               payment.Amount,
			Kind:                 constants.BalanceKindDeposit,
			Reference:            fmt.Sprintf("payment:%s:deposit", payment.TxnRef),
			PaymentTransactionID: &paymentID,
			Remark:               "wallet recharge",
		}); err != nil {
			return nil, nil, err
		}
		payment.Status = constants.PaymentStatusSuccess
		if err := paymentRepo.Update(payment); err != nil {
			return nil, nil, err
		}
		return &PaymentCallbackResult{Payment: payment}, nil, nil
	}

	if _, err := s.ledger.CreditInTx(tx, LedgerEntry{
		Account:              EscrowAccount(),
		Amount:               payment.Amount,
		Kind:                 constants.BalanceKindTransfer,
		Reference:            fmt.Sprintf("payment:%s:escrow", payment.TxnRef),
		PaymentTransactionID: &paymentID,
		Remark:               "gateway checkout escrow",
	}); err != nil {
		return nil, nil, err
	}
	group, split, err := s.checkoutSvc.CompleteGatewayPaymentInTx(tx, payment, now)
	if err != nil {
		if repository.IsLockContention(err) {
			return nil, nil, err
		}
		return nil, nil, &splitFailure{err: err}
	}
	payment.Status = constants.PaymentStatusSuccess
	if err := paymentRepo.Update(payment); err != nil {
		return nil, nil, err
	}
	return &PaymentCallbackResult{Payment: payment, OrderGroupID: &group.ID}, split, nil
}

// refundCapturedPayment 拆单失败时在独立事务中把网关资金退回顾客钱包
func (s *PaymentService) refundCapturedPayment(ctx context.Context, input PaymentCallbackInput, reason string) (*PaymentCallbackResult, error) {
	var result *PaymentCallbackResult
	err := withLockRetry(ctx, s.retry, func() error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			payment, err := s.paymentRepo.WithTx(tx).GetByTxnRefForUpdate(input.TxnRef)
			if err != nil {
				return err
			}
			if payment == nil {
				return ErrPaymentNotFound
			}
			if payment.Status != constants.PaymentStatusPending {
				result = &PaymentCallbackResult{Payment: payment, Duplicate: true, OrderGroupID: payment.OrderGroupID}
				return nil
			}
			if err := s.refundInTx(tx, payment, input, reason, time.Now()); err != nil {
				return err
			}
			result = &PaymentCallbackResult{Payment: payment, Refunded: true}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) refundInTx(tx *gorm.DB, payment *models.PaymentTransaction, input PaymentCallbackInput, reason string, now time.Time) error {
	paymentID := payment.ID
	if _, err := s.ledger.CreditInTx(tx, LedgerEntry{
		Account:              CustomerAccount(payment.UserID),
		Amount:               payment.Amount,
		Kind:                 constants.BalanceKindRefund,
		Reference:            fmt.Sprintf("payment:%s:refund", payment.TxnRef),
		PaymentTransactionID: &paymentID,
		Remark:               "gateway payment refunded",
	}); err != nil {
		return err
	}
	payment.Status = constants.PaymentStatusRefunded
	payment.FailureReason = truncate(reason, 255)
	payment.ProviderRef = input.ProviderRef
	payment.CallbackPayload = input.Payload
	payment.CallbackAt = &now
	return s.paymentRepo.WithTx(tx).Update(payment)
}

// ExpirePending 将超时未回调的待支付流水标记为过期，返回是否发生过期
func (s *PaymentService) ExpirePending(ctx context.Context, txnRef string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	txnRef = strings.TrimSpace(txnRef)
	if txnRef == "" {
		return false, ErrPaymentInvalid
	}
	expired := false
	err := withLockRetry(ctx, s.retry, func() error {
		expired = false
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.paymentRepo.WithTx(tx)
			payment, err := repo.GetByTxnRefForUpdate(txnRef)
			if err != nil {
				return err
			}
			if payment == nil || payment.Status != constants.PaymentStatusPending {
				return nil
			}
			now := time.Now()
			if payment.ExpiresAt != nil && now.Before(*payment.ExpiresAt) {
				return nil
			}
			payment.Status = constants.PaymentStatusExpired
			payment.FailureReason = "payment timeout"
			if err := repo.Update(payment); err != nil {
				return err
			}
			expired = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	if expired {
		logger.Infow("payment_transaction_expired", "txn_ref", txnRef)
	}
	return expired, nil
}

// SweepExpiredPayments 批量过期超时的待支付流水
func (s *PaymentService) SweepExpiredPayments(ctx context.Context, now time.Time) (int, error) {
	payments, err := s.paymentRepo.ListExpiredPending(now, paymentSweepBatchSize)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, payment := range payments {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		expired, err := s.ExpirePending(ctx, payment.TxnRef)
		if err != nil {
			logger.Warnw("payment_sweep_failed", "txn_ref", payment.TxnRef, "error", err)
			continue
		}
		if expired {
			count++
		}
	}
	return count, nil
}

// CreateRecharge 创建网关充值意图，到账后由回调入账
func (s *PaymentService) CreateRecharge(ctx context.Context, input CreateRechargeInput) (*models.PaymentTransaction, error) {
	if input.UserID == 0 {
		return nil, ErrPaymentInvalid
	}
	amount := models.NewMoneyFromDecimal(input.Amount.Decimal)
	if !amount.Decimal.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	txnRef := strings.TrimSpace(input.TxnRef)
	if txnRef == "" {
		txnRef = uuid.NewString()
	}
	existing, err := s.paymentRepo.GetByTxnRef(txnRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID != input.UserID || existing.Purpose != constants.PaymentPurposeRecharge {
			return nil, ErrTxnRefConflict
		}
		return existing, nil
	}

	expiresAt := time.Now().Add(s.cfg.PaymentExpire())
	payment := &models.PaymentTransaction{
		TxnRef:    txnRef,
		UserID:    input.UserID,
		Purpose:   constants.PaymentPurposeRecharge,
		Provider:  constants.PaymentProviderGateway,
		Status:    constants.PaymentStatusPending,
		Amount:    amount,
		Currency:  s.ledger.currency,
		ExpiresAt: &expiresAt,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateTxnRef
		}
		return nil, err
	}
	if err := s.queueClient.EnqueuePaymentTimeoutExpire(queue.PaymentTimeoutExpirePayload{TxnRef: txnRef}, s.cfg.PaymentExpire()); err != nil {
		logger.Warnw("payment_timeout_enqueue_failed", "txn_ref", txnRef, "error", err)
	}
	logger.Infow("wallet_recharge_created", "user_id", input.UserID, "txn_ref", txnRef, "amount", amount.String())
	return payment, nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
