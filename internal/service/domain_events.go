package service

import (
	"context"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/events"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/models"
)

// OrderSplitEvent 拆单完成事件
type OrderSplitEvent struct {
	OrderID    uint                `json:"order_id"`
	OrderNo    string              `json:"order_no"`
	GroupID    uint                `json:"group_id"`
	UserID     uint                `json:"user_id"`
	TotalPrice models.Money        `json:"total_price"`
	SubOrders  []SubOrderEventItem `json:"sub_orders"`
}

// SubOrderEventItem 拆单事件中的子订单摘要
type SubOrderEventItem struct {
	SubOrderID uint         `json:"sub_order_id"`
	SellerID   uint         `json:"seller_id"`
	SellerType string       `json:"seller_type"`
	TotalPrice models.Money `json:"total_price"`
}

// SubOrderTransitionEvent 子订单状态迁移事件
type SubOrderTransitionEvent struct {
	SubOrderID uint      `json:"sub_order_id"`
	OrderID    uint      `json:"order_id"`
	SellerID   uint      `json:"seller_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	At         time.Time `json:"at"`
}

// SettlementEvent 结算事件
type SettlementEvent struct {
	SettlementID     uint         `json:"settlement_id"`
	OrderID          uint         `json:"order_id"`
	SubOrderID       uint         `json:"sub_order_id"`
	SellerID         uint         `json:"seller_id"`
	GrossAmount      models.Money `json:"gross_amount"`
	CommissionAmount models.Money `json:"commission_amount"`
	NetAmount        models.Money `json:"net_amount"`
}

func publishEvent(ctx context.Context, publisher events.Publisher, event string, payload interface{}) {
	if publisher == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := publisher.Publish(ctx, event, payload); err != nil {
		logger.Warnw("domain_event_publish_failed", "event", event, "error", err)
	}
}

func newOrderSplitEvent(groupID uint, result *SplitResult) OrderSplitEvent {
	evt := OrderSplitEvent{
		OrderID:    result.Order.ID,
		OrderNo:    result.Order.OrderNo,
		GroupID:    groupID,
		UserID:     result.Order.UserID,
		TotalPrice: result.Order.TotalPrice,
		SubOrders:  make([]SubOrderEventItem, 0, len(result.SubOrders)),
	}
	for _, sub := range result.SubOrders {
		evt.SubOrders = append(evt.SubOrders, SubOrderEventItem{
			SubOrderID: sub.ID,
			SellerID:   sub.SellerID,
			SellerType: sub.SellerType,
			TotalPrice: sub.TotalPrice,
		})
	}
	return evt
}

func newSettlementEvent(settlement *models.OrderSellerSettlement) SettlementEvent {
	return SettlementEvent{
		SettlementID:     settlement.ID,
		OrderID:          settlement.OrderID,
		SubOrderID:       settlement.SubOrderID,
		SellerID:         settlement.SellerID,
		GrossAmount:      settlement.GrossAmount,
		CommissionAmount: settlement.CommissionAmount,
		NetAmount:        settlement.NetAmount,
	}
}

func subOrderEventName(status string) string {
	return constants.EventSubOrderPrefix + "." + status
}
