package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/events"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/metrics"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementService 卖家结算服务
type SettlementService struct {
	orderRepo      repository.OrderRepository
	settlementRepo repository.SettlementRepository
	ledger         *WalletLedger
	publisher      events.Publisher
	retry          RetryPolicy
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	orderRepo repository.OrderRepository,
	settlementRepo repository.SettlementRepository,
	ledger *WalletLedger,
	publisher events.Publisher,
	retry RetryPolicy,
) *SettlementService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &SettlementService{
		orderRepo:      orderRepo,
		settlementRepo: settlementRepo,
		ledger:         ledger,
		publisher:      publisher,
		retry:          retry,
	}
}

// CalculateCommission 计算佣金与卖家净额（2 位小数，四舍五入）
func CalculateCommission(gross decimal.Decimal, rate decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	gross = gross.Round(2)
	commission := gross.Mul(rate).Round(2)
	if commission.IsNegative() {
		commission = decimal.Zero
	}
	if commission.GreaterThan(gross) {
		commission = gross
	}
	return commission, gross.Sub(commission).Round(2)
}

// SettleInTx 子订单签收后在调用方事务内结算
func (s *SettlementService) SettleInTx(tx *gorm.DB, subOrder *models.SubOrder) (*models.OrderSellerSettlement, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if subOrder == nil {
		return nil, ErrSubOrderNotFound
	}
	settlementRepo := s.settlementRepo.WithTx(tx)
	count, err := settlementRepo.CountByOrderSeller(subOrder.OrderID, subOrder.SellerID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSettlementAlreadyExists
	}
	order, err := s.orderRepo.WithTx(tx).GetByID(subOrder.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	gross := subOrder.Subtotal.Decimal.Round(2)
	commission, net := CalculateCommission(gross, order.CommissionRate)
	now := time.Now()
	settlement := &models.OrderSellerSettlement{
		OrderID:          subOrder.OrderID,
		SellerID:         subOrder.SellerID,
		SellerType:       subOrder.SellerType,
		SubOrderID:       subOrder.ID,
		GrossAmount:      models.NewMoneyFromDecimal(gross),
		CommissionRate:   order.CommissionRate,
		CommissionAmount: models.NewMoneyFromDecimal(commission),
		NetAmount:        models.NewMoneyFromDecimal(net),
		ShippingAmount:   subOrder.ShippingFee,
		Status:           constants.SettlementStatusSettled,
		SettledAt:        now,
	}
	if err := settlementRepo.Create(settlement); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSettlementAlreadyExists
		}
		return nil, err
	}

	orderID := subOrder.OrderID
	subOrderID := subOrder.ID
	settlementID := settlement.ID
	entry := func(account AccountRef, amount decimal.Decimal, kind, suffix, remark string) LedgerEntry {
		return LedgerEntry{
			Account:      account,
			Amount:       models.NewMoneyFromDecimal(amount),
			Kind:         kind,
			Reference:    fmt.Sprintf("settlement:%d:%s", settlement.ID, suffix),
			OrderID:      &orderID,
			SubOrderID:   &subOrderID,
			SettlementID: &settlementID,
			Remark:       remark,
		}
	}

	if _, err := s.ledger.DebitInTx(tx, entry(EscrowAccount(), subOrder.TotalPrice.Decimal, constants.BalanceKindTransfer, "escrow", "release escrow for settlement")); err != nil {
		return nil, err
	}
	if net.GreaterThan(decimal.Zero) {
		if _, err := s.ledger.CreditInTx(tx, entry(SellerAccount(subOrder.SellerID), net, constants.BalanceKindPaymentReceived, "seller", "seller net proceeds")); err != nil {
			return nil, err
		}
	}
	if subOrder.ShippingFee.Decimal.GreaterThan(decimal.Zero) {
		if _, err := s.ledger.CreditInTx(tx, entry(SellerAccount(subOrder.SellerID), subOrder.ShippingFee.Decimal, constants.BalanceKindPaymentReceived, "shipping", "seller shipping fee")); err != nil {
			return nil, err
		}
	}
	if commission.GreaterThan(decimal.Zero) {
		if _, err := s.ledger.CreditInTx(tx, entry(PlatformAccount(), commission, constants.BalanceKindPaymentReceived, "platform", "platform commission")); err != nil {
			return nil, err
		}
	}
	if _, err := s.CollectClawbacksInTx(tx, subOrder.SellerID); err != nil {
		return nil, err
	}
	return settlement, nil
}

// Settle 独立结算入口，重复结算返回已有记录
func (s *SettlementService) Settle(ctx context.Context, subOrderID uint) (*models.OrderSellerSettlement, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var settlement *models.OrderSellerSettlement
	err := withLockRetry(ctx, s.retry, func() error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sub, err := s.orderRepo.WithTx(tx).GetSubOrderByIDForUpdate(subOrderID)
			if err != nil {
				return err
			}
			if sub == nil {
				return ErrSubOrderNotFound
			}
			if sub.FulfillmentStatus != constants.FulfillmentStatusDelivered {
				return &StateTransitionError{Current: sub.FulfillmentStatus, Target: constants.SettlementStatusSettled}
			}
			created, err := s.SettleInTx(tx, sub)
			if err != nil {
				return err
			}
			settlement = created
			return nil
		})
	})
	if errors.Is(err, ErrSettlementAlreadyExists) {
		metrics.SettlementsTotal.WithLabelValues("duplicate").Inc()
		sub, loadErr := s.orderRepo.GetSubOrderByID(subOrderID)
		if loadErr != nil {
			return nil, loadErr
		}
		if sub == nil {
			return nil, ErrSubOrderNotFound
		}
		existing, loadErr := s.settlementRepo.GetByOrderSeller(sub.OrderID, sub.SellerID)
		if loadErr != nil {
			return nil, loadErr
		}
		if existing == nil {
			return nil, ErrSettlementNotFound
		}
		return existing, nil
	}
	metrics.SettlementsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	logger.Infow("settlement_created",
		"settlement_id", settlement.ID,
		"sub_order_id", subOrderID,
		"net_amount", settlement.NetAmount.String(),
		"commission_amount", settlement.CommissionAmount.String(),
	)
	publishEvent(ctx, s.publisher, constants.EventSettlementCreated, newSettlementEvent(settlement))
	return settlement, nil
}

// ReverseInTx 签收后退货时冲正结算：卖家与平台退回，资金回到托管账户
func (s *SettlementService) ReverseInTx(tx *gorm.DB, subOrder *models.SubOrder) (*models.OrderSellerSettlement, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	settlementRepo := s.settlementRepo.WithTx(tx)
	settlement, err := settlementRepo.GetByOrderSellerForUpdate(subOrder.OrderID, subOrder.SellerID)
	if err != nil {
		return nil, err
	}
	if settlement == nil || settlement.Status == constants.SettlementStatusReversed {
		return settlement, nil
	}

	orderID := subOrder.OrderID
	subOrderID := subOrder.ID
	settlementID := settlement.ID
	entry := func(account AccountRef, amount decimal.Decimal, suffix, remark string) LedgerEntry {
		return LedgerEntry{
			Account:      account,
			Amount:       models.NewMoneyFromDecimal(amount),
			Kind:         constants.BalanceKindRefund,
			Reference:    fmt.Sprintf("settlement:%d:%s:reverse", settlement.ID, suffix),
			OrderID:      &orderID,
			SubOrderID:   &subOrderID,
			SettlementID: &settlementID,
			Remark:       remark,
		}
	}

	// 卖家余额不足的部分由平台先行垫付，记为待追回，保证顾客退款不受卖家提现影响
	sellerDue := settlement.NetAmount.Decimal.Add(settlement.ShippingAmount.Decimal).Round(2)
	shortfall := decimal.Zero
	if sellerDue.GreaterThan(decimal.Zero) {
		available, err := s.ledger.BalanceForUpdateInTx(tx, SellerAccount(settlement.SellerID))
		if err != nil {
			return nil, err
		}
		collected := decimal.Min(available, sellerDue)
		if collected.GreaterThan(decimal.Zero) {
			if _, err := s.ledger.DebitInTx(tx, entry(SellerAccount(settlement.SellerID), collected, "seller", "return after delivery")); err != nil {
				return nil, err
			}
		}
		shortfall = sellerDue.Sub(collected)
	}
	if shortfall.GreaterThan(decimal.Zero) {
		advance := entry(PlatformAccount(), shortfall, "advance", "platform advance for seller clawback")
		advance.AllowOverdraft = true
		if _, err := s.ledger.DebitInTx(tx, advance); err != nil {
			return nil, err
		}
		settlement.ClawbackAmount = models.NewMoneyFromDecimal(shortfall)
		settlement.ClawbackStatus = constants.ClawbackStatusPending
		logger.For("settlement").Warnw("settlement_clawback_pending", "settlement_id", settlement.ID, "seller_id", settlement.SellerID, logger.Amount("amount", shortfall))
	}
	if settlement.CommissionAmount.Decimal.GreaterThan(decimal.Zero) {
		commission := entry(PlatformAccount(), settlement.CommissionAmount.Decimal, "platform", "commission reversed")
		commission.AllowOverdraft = true
		if _, err := s.ledger.DebitInTx(tx, commission); err != nil {
			return nil, err
		}
	}
	restored := sellerDue.Add(settlement.CommissionAmount.Decimal)
	if restored.GreaterThan(decimal.Zero) {
		if _, err := s.ledger.CreditInTx(tx, entry(EscrowAccount(), restored, "escrow", "settlement reversed to escrow")); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	settlement.Status = constants.SettlementStatusReversed
	settlement.ReversedAt = &now
	if err := settlementRepo.Update(settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

// CollectClawbacksInTx 用卖家当前余额追回平台垫付款，余额不足以覆盖整笔时停止
func (s *SettlementService) CollectClawbacksInTx(tx *gorm.DB, sellerID uint) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, gorm.ErrInvalidTransaction
	}
	settlementRepo := s.settlementRepo.WithTx(tx)
	pending, err := settlementRepo.ListPendingClawbacksForUpdate(sellerID)
	if err != nil || len(pending) == 0 {
		return decimal.Zero, err
	}
	available, err := s.ledger.BalanceForUpdateInTx(tx, SellerAccount(sellerID))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range pending {
		settlement := &pending[i]
		amount := settlement.ClawbackAmount.Decimal.Round(2)
		if amount.GreaterThan(available) {
			break
		}
		orderID := settlement.OrderID
		subOrderID := settlement.SubOrderID
		settlementID := settlement.ID
		entry := func(account AccountRef, suffix, remark string) LedgerEntry {
			return LedgerEntry{
				Account:      account,
				Amount:       models.NewMoneyFromDecimal(amount),
				Kind:         constants.BalanceKindClawback,
				Reference:    fmt.Sprintf("settlement:%d:clawback:%s", settlement.ID, suffix),
				OrderID:      &orderID,
				SubOrderID:   &subOrderID,
				SettlementID: &settlementID,
				Remark:       remark,
			}
		}
		if amount.GreaterThan(decimal.Zero) {
			if _, err := s.ledger.DebitInTx(tx, entry(SellerAccount(sellerID), "seller", "clawback of platform advance")); err != nil {
				return total, err
			}
			if _, err := s.ledger.CreditInTx(tx, entry(PlatformAccount(), "platform", "platform advance recovered")); err != nil {
				return total, err
			}
		}
		now := time.Now()
		settlement.ClawbackStatus = constants.ClawbackStatusCollected
		settlement.ClawbackAt = &now
		if err := settlementRepo.Update(settlement); err != nil {
			return total, err
		}
		available = available.Sub(amount)
		total = total.Add(amount)
		logger.For("settlement").Infow("settlement_clawback_collected", "settlement_id", settlement.ID, "seller_id", sellerID, logger.Amount("amount", amount))
	}
	return total, nil
}
