package service

import (
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SplitItem 待拆分的已支付结算项
type SplitItem struct {
	SellerID   uint
	SellerType string
	ProductID  uint
	Title      string
	Quantity   int
	UnitPrice  models.Money
}

// SplitInput 拆单输入
type SplitInput struct {
	UserID           uint
	SessionID        uint
	GroupID          uint
	AuthorizedAmount models.Money
	Items            []SplitItem
	ShippingAddress  models.JSON
	CommissionRate   decimal.Decimal
	Currency         string
	PaidAt           time.Time
}

// SplitResult 拆单结果
type SplitResult struct {
	Order     *models.Order
	SubOrders []models.SubOrder
	Details   []models.OrderDetail
}

// SplitQuote 按卖家分组后的金额汇总
type SplitQuote struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	Groups      []SellerGroup
}

// SellerGroup 同一卖家的结算项分组，对应一个子订单
type SellerGroup struct {
	SellerID    uint
	SellerType  string
	Items       []SplitItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
}

// Total 子订单金额
func (g SellerGroup) Total() decimal.Decimal {
	return g.Subtotal.Add(g.ShippingFee).Round(2)
}

// OrderSplitter 将一次支付拆分为父订单、按卖家的子订单与明细
type OrderSplitter struct {
	orderRepo   repository.OrderRepository
	shippingFee decimal.Decimal
}

// NewOrderSplitter 创建拆单器，shippingFee 为每个子订单的固定运费
func NewOrderSplitter(orderRepo repository.OrderRepository, shippingFee decimal.Decimal) *OrderSplitter {
	if shippingFee.IsNegative() {
		shippingFee = decimal.Zero
	}
	return &OrderSplitter{
		orderRepo:   orderRepo,
		shippingFee: shippingFee.Round(2),
	}
}

// Quote 按卖家首次出现顺序分组并计算金额
func (s *OrderSplitter) Quote(items []SplitItem) (*SplitQuote, error) {
	if len(items) == 0 {
		return nil, ErrNothingSelected
	}
	groups := make([]SellerGroup, 0)
	index := make(map[uint]int)
	for _, item := range items {
		if item.SellerID == 0 || item.ProductID == 0 || item.Quantity <= 0 {
			return nil, ErrCheckoutItemInvalid
		}
		if item.UnitPrice.Decimal.IsNegative() {
			return nil, ErrCheckoutItemInvalid
		}
		line := item.UnitPrice.MulQuantity(item.Quantity)
		if idx, ok := index[item.SellerID]; ok {
			if groups[idx].SellerType != item.SellerType {
				return nil, ErrSellerTypeConflict
			}
			groups[idx].Items = append(groups[idx].Items, item)
			groups[idx].Subtotal = groups[idx].Subtotal.Add(line)
			continue
		}
		index[item.SellerID] = len(groups)
		groups = append(groups, SellerGroup{
			SellerID:    item.SellerID,
			SellerType:  item.SellerType,
			Items:       []SplitItem{item},
			Subtotal:    line,
			ShippingFee: s.shippingFee,
		})
	}

	quote := &SplitQuote{
		Subtotal:    decimal.Zero,
		ShippingFee: decimal.Zero,
		Discount:    decimal.Zero,
		Groups:      groups,
	}
	for _, group := range groups {
		quote.Subtotal = quote.Subtotal.Add(group.Subtotal)
		quote.ShippingFee = quote.ShippingFee.Add(group.ShippingFee)
	}
	quote.Subtotal = quote.Subtotal.Round(2)
	quote.ShippingFee = quote.ShippingFee.Round(2)
	quote.Total = quote.Subtotal.Add(quote.ShippingFee).Sub(quote.Discount).Round(2)
	return quote, nil
}

// SplitInTx 在调用方事务内落库父订单、子订单与明细
func (s *OrderSplitter) SplitInTx(tx *gorm.DB, input SplitInput) (*SplitResult, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	quote, err := s.Quote(input.Items)
	if err != nil {
		return nil, err
	}
	authorized := input.AuthorizedAmount.Decimal.Round(2)
	if !quote.Total.Equal(authorized) {
		logger.Errorw("order_split_amount_mismatch",
			"session_id", input.SessionID,
			"authorized", authorized.String(),
			"computed", quote.Total.String(),
		)
		return nil, ErrSplitConsistency
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	repo := s.orderRepo.WithTx(tx)

	order := &models.Order{
		OrderNo:           generateOrderNo(),
		UserID:            input.UserID,
		CheckoutSessionID: input.SessionID,
		PaymentStatus:     constants.OrderPaymentStatusPaid,
		Currency:          normalizeCurrency(input.Currency),
		Subtotal:          models.NewMoneyFromDecimal(quote.Subtotal),
		ShippingFee:       models.NewMoneyFromDecimal(quote.ShippingFee),
		Discount:          models.NewMoneyFromDecimal(quote.Discount),
		TotalPrice:        models.NewMoneyFromDecimal(authorized),
		CommissionRate:    input.CommissionRate,
		ShippingAddress:   input.ShippingAddress,
		PaidAt:            &paidAt,
	}
	if input.GroupID != 0 {
		groupID := input.GroupID
		order.OrderGroupID = &groupID
	}
	if err := repo.CreateOrder(order); err != nil {
		return nil, err
	}

	subOrders := make([]models.SubOrder, 0, len(quote.Groups))
	for idx, group := range quote.Groups {
		subOrders = append(subOrders, models.SubOrder{
			SubOrderNo:        buildChildOrderNo(order.OrderNo, idx+1),
			OrderID:           order.ID,
			SellerID:          group.SellerID,
			SellerType:        group.SellerType,
			FulfillmentStatus: constants.FulfillmentStatusPending,
			Subtotal:          models.NewMoneyFromDecimal(group.Subtotal),
			ShippingFee:       models.NewMoneyFromDecimal(group.ShippingFee),
			TotalPrice:        models.NewMoneyFromDecimal(group.Total()),
		})
	}
	if err := repo.CreateSubOrders(subOrders); err != nil {
		return nil, err
	}

	details := make([]models.OrderDetail, 0, len(input.Items))
	for idx, group := range quote.Groups {
		for _, item := range group.Items {
			line := item.UnitPrice.MulQuantity(item.Quantity)
			details = append(details, models.OrderDetail{
				OrderID:    order.ID,
				SubOrderID: subOrders[idx].ID,
				ProductID:  item.ProductID,
				Title:      item.Title,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				LineTotal:  models.NewMoneyFromDecimal(line),
				ItemStatus: constants.OrderItemStatusPending,
			})
		}
	}
	if err := repo.CreateDetails(details); err != nil {
		return nil, err
	}

	if err := verifySplit(order, subOrders, details); err != nil {
		return nil, err
	}
	return &SplitResult{Order: order, SubOrders: subOrders, Details: details}, nil
}

// verifySplit 提交前复核金额守恒
func verifySplit(order *models.Order, subOrders []models.SubOrder, details []models.OrderDetail) error {
	total := decimal.Zero
	lineTotals := make(map[uint]decimal.Decimal, len(subOrders))
	for _, detail := range details {
		lineTotals[detail.SubOrderID] = lineTotals[detail.SubOrderID].Add(detail.LineTotal.Decimal)
	}
	for _, sub := range subOrders {
		total = total.Add(sub.TotalPrice.Decimal)
		if !lineTotals[sub.ID].Round(2).Equal(sub.Subtotal.Decimal.Round(2)) {
			return ErrSplitConsistency
		}
	}
	if !total.Round(2).Equal(order.TotalPrice.Decimal.Round(2)) {
		return ErrSplitConsistency
	}
	return nil
}
