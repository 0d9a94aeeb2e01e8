package service

import (
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"
)

// OrderView 订单视图（父订单 + 子订单 + 明细）
type OrderView struct {
	models.Order
	SubOrders []SubOrderView `json:"sub_orders"`
}

// SubOrderView 子订单视图
type SubOrderView struct {
	models.SubOrder
	Items []models.OrderDetail `json:"items"`
}

// OrderService 订单查询服务
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService 创建订单查询服务
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetOrder 获取订单详情，userID 为 0 时不校验归属（管理端）
func (s *OrderService) GetOrder(userID, orderID uint) (*OrderView, error) {
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
	views, err := buildOrderViews(s.orderRepo, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListOrders 分页查询用户订单
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]OrderView, int64, error) {
	orders, total, err := s.orderRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	views, err := buildOrderViews(s.orderRepo, orders)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListSellerSubOrders 卖家分页查询自己的子订单
func (s *OrderService) ListSellerSubOrders(filter repository.SubOrderListFilter) ([]SubOrderView, int64, error) {
	if filter.SellerID == 0 {
		return []SubOrderView{}, 0, nil
	}
	subOrders, total, err := s.orderRepo.ListSellerSubOrders(filter)
	if err != nil {
		return nil, 0, err
	}
	detailsByOrder := make(map[uint][]models.OrderDetail)
	result := make([]SubOrderView, 0, len(subOrders))
	for _, sub := range subOrders {
		details, ok := detailsByOrder[sub.OrderID]
		if !ok {
			details, err = s.orderRepo.ListDetails(sub.OrderID)
			if err != nil {
				return nil, 0, err
			}
			detailsByOrder[sub.OrderID] = details
		}
		result = append(result, SubOrderView{SubOrder: sub, Items: detailsOfSubOrder(details, sub.ID)})
	}
	return result, total, nil
}

// buildOrderViews 组装订单视图，关联关系按 ID 显式查询
func buildOrderViews(orderRepo repository.OrderRepository, orders []models.Order) ([]OrderView, error) {
	if len(orders) == 0 {
		return []OrderView{}, nil
	}
	orderIDs := make([]uint, 0, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
	}
	subOrders, err := orderRepo.ListSubOrdersByOrderIDs(orderIDs)
	if err != nil {
		return nil, err
	}
	subsByOrder := make(map[uint][]models.SubOrder, len(orders))
	for _, sub := range subOrders {
		subsByOrder[sub.OrderID] = append(subsByOrder[sub.OrderID], sub)
	}

	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		details, err := orderRepo.ListDetails(order.ID)
		if err != nil {
			return nil, err
		}
		view := OrderView{Order: order, SubOrders: make([]SubOrderView, 0, len(subsByOrder[order.ID]))}
		for _, sub := range subsByOrder[order.ID] {
			view.SubOrders = append(view.SubOrders, SubOrderView{SubOrder: sub, Items: detailsOfSubOrder(details, sub.ID)})
		}
		views = append(views, view)
	}
	return views, nil
}

func detailsOfSubOrder(details []models.OrderDetail, subOrderID uint) []models.OrderDetail {
	result := make([]models.OrderDetail, 0)
	for _, detail := range details {
		if detail.SubOrderID == subOrderID {
			result = append(result, detail)
		}
	}
	return result
}
