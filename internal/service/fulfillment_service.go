package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/events"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/metrics"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"

	"gorm.io/gorm"
)

// fulfillmentTransitions 子订单履约状态迁移表
var fulfillmentTransitions = map[string]map[string]bool{
	constants.FulfillmentStatusPending: {
		constants.FulfillmentStatusConfirmed: true,
		constants.FulfillmentStatusCanceled:  true,
		constants.FulfillmentStatusReturned:  true,
	},
	constants.FulfillmentStatusConfirmed: {
		constants.FulfillmentStatusProcessing: true,
		constants.FulfillmentStatusShipped:    true,
		constants.FulfillmentStatusCanceled:   true,
		constants.FulfillmentStatusReturned:   true,
	},
	constants.FulfillmentStatusProcessing: {
		constants.FulfillmentStatusShipped:  true,
		constants.FulfillmentStatusCanceled: true,
		constants.FulfillmentStatusReturned: true,
	},
	constants.FulfillmentStatusShipped: {
		constants.FulfillmentStatusDelivered: true,
		constants.FulfillmentStatusCanceled:  true,
		constants.FulfillmentStatusReturned:  true,
	},
	constants.FulfillmentStatusDelivered: {
		constants.FulfillmentStatusReturned: true,
	},
	constants.FulfillmentStatusCanceled: {},
	constants.FulfillmentStatusReturned: {},
}

// CanTransition 判断履约状态是否允许迁移
func CanTransition(from, to string) bool {
	nexts, ok := fulfillmentTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

// ItemStatusFor 子订单状态映射到明细状态
func ItemStatusFor(fulfillmentStatus string) string {
	switch fulfillmentStatus {
	case constants.FulfillmentStatusConfirmed, constants.FulfillmentStatusProcessing:
		return constants.OrderItemStatusConfirmed
	case constants.FulfillmentStatusShipped:
		return constants.OrderItemStatusShipped
	case constants.FulfillmentStatusDelivered:
		return constants.OrderItemStatusDelivered
	case constants.FulfillmentStatusCanceled:
		return constants.OrderItemStatusCanceled
	case constants.FulfillmentStatusReturned:
		return constants.OrderItemStatusReturned
	default:
		return constants.OrderItemStatusPending
	}
}

// Actor 履约操作人
type Actor struct {
	UserID   uint
	Role     string
	SellerID uint
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == constants.RoleAdmin
}

// CanOperate 卖家只能操作自己的子订单，管理员可操作全部
func (a Actor) CanOperate(subOrder *models.SubOrder) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == constants.RoleSeller && a.SellerID != 0 && subOrder.SellerID == a.SellerID
}

// TrackingInfo 物流信息
type TrackingInfo struct {
	Carrier    string
	TrackingNo string
}

type transitionInput struct {
	target   string
	reason   string
	tracking *TrackingInfo
}

// FulfillmentService 子订单履约状态机
type FulfillmentService struct {
	orderRepo     repository.OrderRepository
	settlementSvc *SettlementService
	ledger        *WalletLedger
	publisher     events.Publisher
	retry         RetryPolicy
}

// NewFulfillmentService 创建履约服务
func NewFulfillmentService(
	orderRepo repository.OrderRepository,
	settlementSvc *SettlementService,
	ledger *WalletLedger,
	publisher events.Publisher,
	retry RetryPolicy,
) *FulfillmentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &FulfillmentService{
		orderRepo:     orderRepo,
		settlementSvc: settlementSvc,
		ledger:        ledger,
		publisher:     publisher,
		retry:         retry,
	}
}

// Confirm 卖家确认子订单
func (s *FulfillmentService) Confirm(ctx context.Context, actor Actor, subOrderID uint) (*models.SubOrder, error) {
	return s.transition(ctx, actor, subOrderID, transitionInput{target: constants.FulfillmentStatusConfirmed})
}

// StartProcessing 开始备货
func (s *FulfillmentService) StartProcessing(ctx context.Context, actor Actor, subOrderID uint) (*models.SubOrder, error) {
	return s.transition(ctx, actor, subOrderID, transitionInput{target: constants.FulfillmentStatusProcessing})
}

// Ship 发货，需要物流信息
func (s *FulfillmentService) Ship(ctx context.Context, actor Actor, subOrderID uint, tracking TrackingInfo) (*models.SubOrder, error) {
	tracking.Carrier = strings.TrimSpace(tracking.Carrier)
	tracking.TrackingNo = strings.TrimSpace(tracking.TrackingNo)
	return s.transition(ctx, actor, subOrderID, transitionInput{target: constants.FulfillmentStatusShipped, tracking: &tracking})
}

// Deliver 签收并在同一事务内结算
func (s *FulfillmentService) Deliver(ctx context.Context, actor Actor, subOrderID uint) (*models.SubOrder, error) {
	return s.transition(ctx, actor, subOrderID, transitionInput{target: constants.FulfillmentStatusDelivered})
}

// Cancel 取消子订单并退款到顾客钱包
func (s *FulfillmentService) Cancel(ctx context.Context, actor Actor, subOrderID uint, reason string) (*models.SubOrder, error) {
	return s.transition(ctx, actor, subOrderID, transitionInput{target: constants.FulfillmentStatusCanceled, reason: reason})
}

// Return 退货，签收后的退货先冲正结算
func (s *FulfillmentService) Return(ctx context.Context, actor Actor, subOrderID uint, reason string) (*models.SubOrder, error) {
	return s.transition(ctx, actor, subOrderID, transitionInput{target: constants.FulfillmentStatusReturned, reason: reason})
}

func (s *FulfillmentService) transition(ctx context.Context, actor Actor, subOrderID uint, input transitionInput) (*models.SubOrder, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		previous   string
		updated    *models.SubOrder
		settlement *models.OrderSellerSettlement
		reversed   *models.OrderSellerSettlement
	)
	err := withLockRetry(ctx, s.retry, func() error {
		settlement = nil
		reversed = nil
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			orderRepo := s.orderRepo.WithTx(tx)
			sub, err := orderRepo.GetSubOrderByIDForUpdate(subOrderID)
			if err != nil {
				return err
			}
			if sub == nil {
				return ErrSubOrderNotFound
			}
			if !actor.CanOperate(sub) {
				return ErrForbiddenSubOrder
			}
			if !CanTransition(sub.FulfillmentStatus, input.target) {
				return &StateTransitionError{Current: sub.FulfillmentStatus, Target: input.target}
			}
			if input.tracking != nil && (input.tracking.Carrier == "" || input.tracking.TrackingNo == "") {
				return ErrTrackingInfoRequired
			}

			now := time.Now()
			previous = sub.FulfillmentStatus
			updates := map[string]interface{}{
				"fulfillment_status": input.target,
				"updated_at":         now,
			}
			switch input.target {
			case constants.FulfillmentStatusConfirmed:
				updates["confirmed_at"] = now
				sub.ConfirmedAt = &now
			case constants.FulfillmentStatusProcessing:
				updates["processing_at"] = now
				sub.ProcessingAt = &now
			case constants.FulfillmentStatusShipped:
				updates["shipped_at"] = now
				updates["carrier"] = input.tracking.Carrier
				updates["tracking_no"] = input.tracking.TrackingNo
				sub.ShippedAt = &now
				sub.Carrier = input.tracking.Carrier
				sub.TrackingNo = input.tracking.TrackingNo
			case constants.FulfillmentStatusDelivered:
				updates["delivered_at"] = now
				sub.DeliveredAt = &now
			case constants.FulfillmentStatusCanceled:
				updates["canceled_at"] = now
				updates["cancel_reason"] = strings.TrimSpace(input.reason)
				sub.CanceledAt = &now
				sub.CancelReason = strings.TrimSpace(input.reason)
			case constants.FulfillmentStatusReturned:
				updates["returned_at"] = now
				updates["cancel_reason"] = strings.TrimSpace(input.reason)
				sub.ReturnedAt = &now
				sub.CancelReason = strings.TrimSpace(input.reason)
			}
			if err := orderRepo.UpdateSubOrder(sub.ID, updates); err != nil {
				return err
			}
			if err := orderRepo.UpdateDetailStatusBySubOrder(sub.ID, ItemStatusFor(input.target)); err != nil {
				return err
			}
			sub.FulfillmentStatus = input.target
			sub.UpdatedAt = now

			switch input.target {
			case constants.FulfillmentStatusDelivered:
				created, err := s.settlementSvc.SettleInTx(tx, sub)
				if err != nil && !errors.Is(err, ErrSettlementAlreadyExists) {
					return err
				}
				settlement = created
			case constants.FulfillmentStatusCanceled, constants.FulfillmentStatusReturned:
				if previous == constants.FulfillmentStatusDelivered {
					reverted, err := s.settlementSvc.ReverseInTx(tx, sub)
					if err != nil {
						return err
					}
					reversed = reverted
				}
				if err := s.refundInTx(tx, sub, input.target); err != nil {
					return err
				}
			}
			updated = sub
			return nil
		})
	})
	if err != nil {
		if settlementFailed(input.target, err) {
			metrics.SettlementsTotal.WithLabelValues("error").Inc()
		}
		logger.Warnw("suborder_transition_failed",
			"sub_order_id", subOrderID,
			"target", input.target,
			"actor_role", actor.Role,
			"error", err,
		)
		return nil, err
	}

	metrics.SubOrderTransitionsTotal.WithLabelValues(input.target).Inc()
	logger.Infow("suborder_transitioned",
		"sub_order_id", updated.ID,
		"order_id", updated.OrderID,
		"from", previous,
		"to", input.target,
	)
	publishEvent(ctx, s.publisher, subOrderEventName(input.target), SubOrderTransitionEvent{
		SubOrderID: updated.ID,
		OrderID:    updated.OrderID,
		SellerID:   updated.SellerID,
		From:       previous,
		To:         input.target,
		At:         updated.UpdatedAt,
	})
	if settlement != nil {
		metrics.SettlementsTotal.WithLabelValues("success").Inc()
		logger.Infow("settlement_created",
			"settlement_id", settlement.ID,
			"sub_order_id", updated.ID,
			"net_amount", settlement.NetAmount.String(),
			"commission_amount", settlement.CommissionAmount.String(),
		)
		publishEvent(ctx, s.publisher, constants.EventSettlementCreated, newSettlementEvent(settlement))
	}
	if reversed != nil {
		logger.Infow("settlement_reversed", "settlement_id", reversed.ID, "sub_order_id", updated.ID)
		publishEvent(ctx, s.publisher, constants.EventSettlementReverse, newSettlementEvent(reversed))
	}
	return updated, nil
}

// refundInTx 子订单金额从托管账户退回顾客钱包
func (s *FulfillmentService) refundInTx(tx *gorm.DB, sub *models.SubOrder, target string) error {
	if !sub.TotalPrice.Decimal.IsPositive() {
		return nil
	}
	order, err := s.orderRepo.WithTx(tx).GetByID(sub.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	orderID := order.ID
	subOrderID := sub.ID
	if _, err := s.ledger.DebitInTx(tx, LedgerEntry{
		Account:    EscrowAccount(),
		Amount:     sub.TotalPrice,
		Kind:       constants.BalanceKindRefund,
		Reference:  fmt.Sprintf("suborder:%d:refund:escrow", sub.ID),
		OrderID:    &orderID,
		SubOrderID: &subOrderID,
		Remark:     "sub order " + target,
	}); err != nil {
		return err
	}
	_, err = s.ledger.CreditInTx(tx, LedgerEntry{
		Account:    CustomerAccount(order.UserID),
		Amount:     sub.TotalPrice,
		Kind:       constants.BalanceKindRefund,
		Reference:  fmt.Sprintf("suborder:%d:refund", sub.ID),
		OrderID:    &orderID,
		SubOrderID: &subOrderID,
		Remark:     "sub order " + target,
	})
	return err
}

func settlementFailed(target string, err error) bool {
	if target != constants.FulfillmentStatusDelivered || err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidStateTransition) &&
		!errors.Is(err, ErrForbiddenSubOrder) &&
		!errors.Is(err, ErrSubOrderNotFound)
}

// SubOrderProgress 子订单履约进度
type SubOrderProgress struct {
	SubOrderID        uint   `json:"sub_order_id"`
	SubOrderNo        string `json:"sub_order_no"`
	SellerID          uint   `json:"seller_id"`
	FulfillmentStatus string `json:"fulfillment_status"`
	ItemCount         int    `json:"item_count"`
}

// TimelineEvent 履约时间线事件
type TimelineEvent struct {
	SubOrderID uint      `json:"sub_order_id"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

// OrderProgress 父订单履约进度（由子订单推导）
type OrderProgress struct {
	OrderID              uint               `json:"order_id"`
	TotalItems           int                `json:"total_items"`
	ConfirmedItems       int                `json:"confirmed_items"`
	ConfirmationProgress float64            `json:"confirmation_progress"`
	ShippedItems         int                `json:"shipped_items"`
	DeliveredItems       int                `json:"delivered_items"`
	SubOrders            []SubOrderProgress `json:"sub_orders"`
	Timeline             []TimelineEvent    `json:"timeline"`
}

// GetProgress 汇总父订单的履约进度，userID 为 0 时不校验归属
func (s *FulfillmentService) GetProgress(userID, orderID uint) (*OrderProgress, error) {
	var (
		order *models.Order
		err   error
	)
	if userID == 0 {
		order, err = s.orderRepo.GetByID(orderID)
	} else {
		order, err = s.orderRepo.GetByIDAndUser(orderID, userID)
	}
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	subOrders, err := s.orderRepo.ListSubOrders(order.ID)
	if err != nil {
		return nil, err
	}
	details, err := s.orderRepo.ListDetails(order.ID)
	if err != nil {
		return nil, err
	}

	progress := &OrderProgress{
		OrderID:   order.ID,
		SubOrders: make([]SubOrderProgress, 0, len(subOrders)),
		Timeline:  make([]TimelineEvent, 0),
	}
	for _, detail := range details {
		progress.TotalItems++
		switch detail.ItemStatus {
		case constants.OrderItemStatusConfirmed:
			progress.ConfirmedItems++
		case constants.OrderItemStatusShipped:
			progress.ConfirmedItems++
			progress.ShippedItems++
		case constants.OrderItemStatusDelivered:
			progress.ConfirmedItems++
			progress.ShippedItems++
			progress.DeliveredItems++
		}
	}
	if progress.TotalItems > 0 {
		progress.ConfirmationProgress = float64(progress.ConfirmedItems) / float64(progress.TotalItems)
	}

	for _, sub := range subOrders {
		progress.SubOrders = append(progress.SubOrders, SubOrderProgress{
			SubOrderID:        sub.ID,
			SubOrderNo:        sub.SubOrderNo,
			SellerID:          sub.SellerID,
			FulfillmentStatus: sub.FulfillmentStatus,
			ItemCount:         len(detailsOfSubOrder(details, sub.ID)),
		})
		progress.Timeline = append(progress.Timeline, TimelineEvent{SubOrderID: sub.ID, Status: constants.FulfillmentStatusPending, At: sub.CreatedAt})
		stamps := []struct {
			status string
			at     *time.Time
		}{
			{constants.FulfillmentStatusConfirmed, sub.ConfirmedAt},
			{constants.FulfillmentStatusProcessing, sub.ProcessingAt},
			{constants.FulfillmentStatusShipped, sub.ShippedAt},
			{constants.FulfillmentStatusDelivered, sub.DeliveredAt},
			{constants.FulfillmentStatusCanceled, sub.CanceledAt},
			{constants.FulfillmentStatusReturned, sub.ReturnedAt},
		}
		for _, stamp := range stamps {
			if stamp.at == nil {
				continue
			}
			progress.Timeline = append(progress.Timeline, TimelineEvent{SubOrderID: sub.ID, Status: stamp.status, At: *stamp.at})
		}
	}
	sort.SliceStable(progress.Timeline, func(i, j int) bool {
		return progress.Timeline[i].At.Before(progress.Timeline[j].At)
	})
	return progress, nil
}
