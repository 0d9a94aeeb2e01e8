package service

import (
	"time"

	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"
)

// CartItemDetail 购物车项详情（用于响应）
type CartItemDetail struct {
	ProductID      uint            `json:"product_id"`
	SellerID       uint            `json:"seller_id"`
	SellerType     string          `json:"seller_type"`
	Quantity       int             `json:"quantity"`
	UnitPrice      models.Money    `json:"unit_price"`
	LineTotal      models.Money    `json:"line_total"`
	AvailableStock int             `json:"available_stock"`
	Product        *models.Product `json:"product"`
}

// UpsertCartItemInput 购物车更新输入
type UpsertCartItemInput struct {
	UserID    uint
	ProductID uint
	Quantity  int
}

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// ListByUser 获取用户购物车，已下架的商品会被移出
func (s *CartService) ListByUser(userID uint) ([]CartItemDetail, error) {
	if userID == 0 {
		return nil, ErrCartItemInvalid
	}
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []CartItemDetail{}, nil
	}
	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uint]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	details := make([]CartItemDetail, 0, len(items))
	for _, item := range items {
		product := productMap[item.ProductID]
		if product == nil || !product.IsActive {
			_ = s.cartRepo.DeleteByUserAndProduct(userID, item.ProductID)
			continue
		}
		details = append(details, CartItemDetail{
			ProductID:      item.ProductID,
			SellerID:       product.SellerID,
			SellerType:     product.SellerType,
			Quantity:       item.Quantity,
			UnitPrice:      product.PriceAmount,
			LineTotal:      models.NewMoneyFromDecimal(product.PriceAmount.MulQuantity(item.Quantity)),
			AvailableStock: product.AvailableStock(),
			Product:        product,
		})
	}
	return details, nil
}

// UpsertItem 添加或更新购物车项
func (s *CartService) UpsertItem(input UpsertCartItemInput) error {
	if input.UserID == 0 || input.ProductID == 0 || input.Quantity <= 0 {
		return ErrCartItemInvalid
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	if !product.IsActive {
		return ErrProductNotAvailable
	}
	if product.AvailableStock() < input.Quantity {
		return ErrStockInsufficient
	}
	if err := s.checkCartSellerTypes(input.UserID, *product); err != nil {
		return err
	}

	now := time.Now()
	item := &models.CartItem{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.cartRepo.Upsert(item)
}

// checkCartSellerTypes 加入商品前确认购物车内同一卖家 ID 的卖家类型一致
func (s *CartService) checkCartSellerTypes(userID uint, incoming models.Product) error {
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return err
	}
	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		if item.ProductID != incoming.ID {
			productIDs = append(productIDs, item.ProductID)
		}
	}
	if len(productIDs) == 0 {
		return nil
	}
	products, err := s.productRepo.GetByIDs(productIDs)
	if err != nil {
		return err
	}
	return checkSellerTypes(append(products, incoming))
}

// checkSellerTypes 卖家 ID 全局唯一，同一 ID 只能对应一种卖家类型
func checkSellerTypes(products []models.Product) error {
	types := make(map[uint]string, len(products))
	for _, product := range products {
		if known, ok := types[product.SellerID]; ok && known != product.SellerType {
			return ErrSellerTypeConflict
		}
		types[product.SellerID] = product.SellerType
	}
	return nil
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrCartItemInvalid
	}
	return s.cartRepo.DeleteByUserAndProduct(userID, productID)
}
