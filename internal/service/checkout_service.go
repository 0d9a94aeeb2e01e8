package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modamart/internal/cache"
	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/events"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/metrics"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/queue"
	"github.com/modamart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const checkoutSweepBatchSize = 100

// CheckoutService 结算会话服务
type CheckoutService struct {
	cfg          config.CheckoutConfig
	commission   decimal.Decimal
	checkoutRepo repository.CheckoutRepository
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	paymentRepo  repository.PaymentRepository
	orderRepo    repository.OrderRepository
	ledger       *WalletLedger
	splitter     *OrderSplitter
	queueClient  *queue.Client
	publisher    events.Publisher
	retry        RetryPolicy
}

// CheckoutServiceDeps 结算会话服务依赖
type CheckoutServiceDeps struct {
	Checkout     config.CheckoutConfig
	Commission   decimal.Decimal
	CheckoutRepo repository.CheckoutRepository
	CartRepo     repository.CartRepository
	ProductRepo  repository.ProductRepository
	PaymentRepo  repository.PaymentRepository
	OrderRepo    repository.OrderRepository
	Ledger       *WalletLedger
	Splitter     *OrderSplitter
	QueueClient  *queue.Client
	Publisher    events.Publisher
	Retry        RetryPolicy
}

// NewCheckoutService 创建结算会话服务
func NewCheckoutService(deps CheckoutServiceDeps) *CheckoutService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &CheckoutService{
		cfg:          deps.Checkout,
		commission:   deps.Commission,
		checkoutRepo: deps.CheckoutRepo,
		cartRepo:     deps.CartRepo,
		productRepo:  deps.ProductRepo,
		paymentRepo:  deps.PaymentRepo,
		orderRepo:    deps.OrderRepo,
		ledger:       deps.Ledger,
		splitter:     deps.Splitter,
		queueClient:  deps.QueueClient,
		publisher:    publisher,
		retry:        deps.Retry,
	}
}

// CheckoutSessionView 结算会话视图（按卖家分组）
type CheckoutSessionView struct {
	ID               uint                    `json:"id"`
	SessionNo        string                  `json:"session_no"`
	UserID           uint                    `json:"user_id"`
	Status           string                  `json:"status"`
	Currency         string                  `json:"currency"`
	ExpiresAt        time.Time               `json:"expires_at"`
	ConsumedAt       *time.Time              `json:"consumed_at,omitempty"`
	OrderGroupID     *uint                   `json:"order_group_id,omitempty"`
	Providers        []CheckoutProviderGroup `json:"providers"`
	SelectedSubtotal models.Money            `json:"selected_subtotal"`
	SelectedShipping models.Money            `json:"selected_shipping"`
	SelectedTotal    models.Money            `json:"selected_total"`
}

// CheckoutProviderGroup 同一卖家的会话项
type CheckoutProviderGroup struct {
	SellerID         uint                         `json:"seller_id"`
	SellerType       string                       `json:"seller_type"`
	Items            []models.CheckoutSessionItem `json:"items"`
	Subtotal         models.Money                 `json:"subtotal"`
	SelectedSubtotal models.Money                 `json:"selected_subtotal"`
	SelectedCount    int                          `json:"selected_count"`
}

// PayInput 支付输入
type PayInput struct {
	UserID          uint
	SessionID       uint
	ItemIDs         []uint
	ProviderID      uint
	TxnRef          string
	Method          string
	ShippingAddress models.JSON
}

// PayResult 支付结果
type PayResult struct {
	Status     string                     `json:"status"`
	Replayed   bool                       `json:"replayed"`
	Payment    *models.PaymentTransaction `json:"payment"`
	OrderGroup *models.OrderGroup         `json:"order_group,omitempty"`
	Orders     []OrderView                `json:"orders,omitempty"`
}

type checkoutLogger struct {
	kv []interface{}
}

func newCheckoutLogger(kv ...interface{}) checkoutLogger {
	return checkoutLogger{kv: kv}
}

func (l checkoutLogger) infow(msg string, kv ...interface{}) {
	logger.SW(l.kv...).Infow(msg, kv...)
}

func (l checkoutLogger) warnw(msg string, kv ...interface{}) {
	logger.SW(l.kv...).Warnw(msg, kv...)
}

// CreateFromCart 以购物车快照创建结算会话并预占库存
func (s *CheckoutService) CreateFromCart(ctx context.Context, userID uint) (*CheckoutSessionView, error) {
	if userID == 0 {
		return nil, ErrCartEmpty
	}
	cartItems, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}
	productIDs := make([]uint, 0, len(cartItems))
	for _, item := range cartItems {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	if err := checkSellerTypes(products); err != nil {
		newCheckoutLogger("user_id", userID).warnw("checkout_seller_type_conflict")
		return nil, err
	}
	productMap := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productMap[product.ID] = product
	}

	now := time.Now()
	session := &models.CheckoutSession{
		SessionNo: generateNo(checkoutSessionNoPrefix),
		UserID:    userID,
		Status:    constants.CheckoutSessionStatusOpen,
		Currency:  normalizeCurrency(s.cfg.Currency),
		ExpiresAt: now.Add(s.cfg.SessionTTL()),
	}
	items := make([]models.CheckoutSessionItem, 0, len(cartItems))
	for _, cartItem := range cartItems {
		product, ok := productMap[cartItem.ProductID]
		if !ok || !product.IsActive {
			return nil, ErrProductNotAvailable
		}
		if cartItem.Quantity <= 0 {
			return nil, ErrCartItemInvalid
		}
		items = append(items, models.CheckoutSessionItem{
			SellerID:   product.SellerID,
			SellerType: product.SellerType,
			ProductID:  product.ID,
			CartItemID: cartItem.ID,
			Title:      product.Title,
			Quantity:   cartItem.Quantity,
			UnitPrice:  product.PriceAmount,
			IsSelected: true,
			Reserved:   true,
		})
	}
	items = orderItemsBySellerAppearance(items)

	err = withLockRetry(ctx, s.retry, func() error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			productRepo := s.productRepo.WithTx(tx)
			for _, item := range items {
				ok, err := productRepo.ReserveStock(item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					return ErrStockInsufficient
				}
			}
			session.ID = 0
			for i := range items {
				items[i].ID = 0
			}
			return s.checkoutRepo.WithTx(tx).CreateSession(session, items)
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.queueClient.EnqueueCheckoutSessionExpire(queue.CheckoutSessionExpirePayload{SessionID: session.ID}, s.cfg.SessionTTL()); err != nil {
		newCheckoutLogger("session_id", session.ID).warnw("checkout_session_expire_enqueue_failed", "error", err)
	}
	newCheckoutLogger("session_id", session.ID, "user_id", userID).infow("checkout_session_created", "items", len(items))
	return s.buildView(session, items, now), nil
}

// orderItemsBySellerAppearance 按卖家首次出现顺序稳定排序
func orderItemsBySellerAppearance(items []models.CheckoutSessionItem) []models.CheckoutSessionItem {
	rank := make(map[uint]int)
	for _, item := range items {
		if _, ok := rank[item.SellerID]; !ok {
			rank[item.SellerID] = len(rank)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return rank[items[i].SellerID] < rank[items[j].SellerID]
	})
	return items
}

// GetSession 获取结算会话视图
func (s *CheckoutService) GetSession(ctx context.Context, userID, sessionID uint) (*CheckoutSessionView, error) {
	var cached CheckoutSessionView
	if hit, err := cache.GetCheckoutSession(ctx, sessionID, &cached); err == nil && hit && cached.UserID == userID {
		cached.Status = effectiveSessionStatus(cached.Status, cached.ExpiresAt, time.Now())
		return &cached, nil
	}
	session, err := s.checkoutRepo.GetSessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	items, err := s.checkoutRepo.ListItems(session.ID)
	if err != nil {
		return nil, err
	}
	view := s.buildView(session, items, time.Now())
	if err := cache.SetCheckoutSession(ctx, session.ID, view); err != nil {
		logger.Debugw("checkout_session_cache_set_failed", "session_id", session.ID, "error", err)
	}
	return view, nil
}

// UpdateSelection 仅勾选给定会话项
func (s *CheckoutService) UpdateSelection(ctx context.Context, userID, sessionID uint, itemIDs []uint) (*CheckoutSessionView, error) {
	var (
		session *models.CheckoutSession
		items   []models.CheckoutSessionItem
	)
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.checkoutRepo.WithTx(tx)
		locked, err := repo.GetSessionByIDForUpdate(sessionID)
		if err != nil {
			return err
		}
		if locked == nil || locked.UserID != userID {
			return ErrSessionNotFound
		}
		if err := checkSessionPayable(locked, time.Now()); err != nil {
			return err
		}
		current, err := repo.ListItems(locked.ID)
		if err != nil {
			return err
		}
		ids, err := validateSelection(current, itemIDs)
		if err != nil {
			return err
		}
		if err := repo.SetSelection(locked.ID, ids); err != nil {
			return err
		}
		items, err = repo.ListItems(locked.ID)
		if err != nil {
			return err
		}
		session = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSessionCache(ctx, session.ID)
	return s.buildView(session, items, time.Now()), nil
}

// PayAllSelected 支付会话内全部勾选项
func (s *CheckoutService) PayAllSelected(ctx context.Context, input PayInput) (*PayResult, error) {
	input.ProviderID = 0
	return s.pay(ctx, input)
}

// PayByProvider 仅支付指定卖家的勾选项
func (s *CheckoutService) PayByProvider(ctx context.Context, input PayInput) (*PayResult, error) {
	if input.ProviderID == 0 {
		return nil, ErrCheckoutItemInvalid
	}
	return s.pay(ctx, input)
}

func (s *CheckoutService) pay(ctx context.Context, input PayInput) (*PayResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if method == "" {
		method = constants.PayMethodWallet
	}
	if method != constants.PayMethodWallet && method != constants.PayMethodGateway {
		return nil, ErrPayMethodInvalid
	}
	input.Method = method
	input.TxnRef = strings.TrimSpace(input.TxnRef)
	if input.TxnRef == "" {
		input.TxnRef = uuid.NewString()
	}
	log := newCheckoutLogger("session_id", input.SessionID, "user_id", input.UserID, "txn_ref", input.TxnRef)

	if result, err := s.replay(input); result != nil || err != nil {
		if err == nil {
			metrics.CheckoutPaymentsTotal.WithLabelValues(method, "duplicate").Inc()
			log.infow("checkout_payment_replayed", "status", result.Status)
		}
		return result, err
	}

	payCtx, cancel := context.WithTimeout(ctx, s.cfg.PayTimeout())
	defer cancel()

	lock, err := cache.AcquireCheckoutPayLock(payCtx, input.SessionID, s.cfg.PayTimeout()+5*time.Second)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, ErrCheckoutBusy
		}
		log.warnw("checkout_pay_lock_failed", "error", err)
		lock = &cache.Lock{}
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.warnw("checkout_pay_lock_release_failed", "error", err)
		}
	}()

	var result *PayResult
	var split *SplitResult
	err = withLockRetry(payCtx, s.retry, func() error {
		return models.DB.WithContext(payCtx).Transaction(func(tx *gorm.DB) error {
			var err error
			if method == constants.PayMethodGateway {
				result, err = s.createGatewayPaymentInTx(tx, input, time.Now())
				return err
			}
			result, split, err = s.payWalletInTx(tx, input, time.Now())
			return err
		})
	})
	if err != nil {
		if payCtx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			err = ErrSessionExpired
		}
		if repository.IsUniqueViolation(err) {
			if replayed, replayErr := s.replay(input); replayed != nil || replayErr != nil {
				return replayed, replayErr
			}
		}
		metrics.CheckoutPaymentsTotal.WithLabelValues(method, "error").Inc()
		log.warnw("checkout_payment_failed", "method", method, "error", err)
		return nil, err
	}

	s.invalidateSessionCache(ctx, input.SessionID)
	metrics.CheckoutPaymentsTotal.WithLabelValues(method, "success").Inc()
	if method == constants.PayMethodGateway {
		if err := s.queueClient.EnqueuePaymentTimeoutExpire(queue.PaymentTimeoutExpirePayload{TxnRef: input.TxnRef}, s.cfg.PaymentExpire()); err != nil {
			log.warnw("payment_timeout_enqueue_failed", "error", err)
		}
		log.infow("checkout_gateway_payment_created", "amount", result.Payment.Amount.String())
		return result, nil
	}
	if split != nil && result.OrderGroup != nil {
		publishEvent(ctx, s.publisher, constants.EventOrderSplit, newOrderSplitEvent(result.OrderGroup.ID, split))
	}
	log.infow("checkout_session_paid", "amount", result.Payment.Amount.String(), "order_group_id", result.Payment.OrderGroupID)
	return result, nil
}

// replay 已存在的 TxnRef 直接返回原结果
func (s *CheckoutService) replay(input PayInput) (*PayResult, error) {
	payment, err := s.paymentRepo.GetByTxnRef(input.TxnRef)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, nil
	}
	if payment.UserID != input.UserID || payment.CheckoutSessionID == nil || *payment.CheckoutSessionID != input.SessionID {
		return nil, ErrTxnRefConflict
	}
	result, err := s.buildPayResult(payment)
	if err != nil {
		return nil, err
	}
	result.Replayed = true
	return result, nil
}

func (s *CheckoutService) buildPayResult(payment *models.PaymentTransaction) (*PayResult, error) {
	result := &PayResult{Status: payment.Status, Payment: payment}
	if payment.OrderGroupID == nil {
		return result, nil
	}
	group, err := s.orderRepo.GetGroupByID(*payment.OrderGroupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return result, nil
	}
	orders, err := s.orderRepo.ListByGroup(group.ID)
	if err != nil {
		return nil, err
	}
	views, err := buildOrderViews(s.orderRepo, orders)
	if err != nil {
		return nil, err
	}
	result.OrderGroup = group
	result.Orders = views
	return result, nil
}

// prepareSelectionInTx 锁定会话并确定本次支付的会话项
func (s *CheckoutService) prepareSelectionInTx(tx *gorm.DB, input PayInput, now time.Time) (*models.CheckoutSession, []models.CheckoutSessionItem, []models.CheckoutSessionItem, *SplitQuote, error) {
	repo := s.checkoutRepo.WithTx(tx)
	session, err := repo.GetSessionByIDForUpdate(input.SessionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if session == nil || session.UserID != input.UserID {
		return nil, nil, nil, nil, ErrSessionNotFound
	}
	if err := checkSessionPayable(session, now); err != nil {
		return nil, nil, nil, nil, err
	}
	if len(input.ShippingAddress) > 0 {
		session.ShippingAddress = input.ShippingAddress
		if err := repo.UpdateSession(session); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	items, err := repo.ListItems(session.ID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(input.ItemIDs) > 0 {
		ids, err := validateSelection(items, input.ItemIDs)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := repo.SetSelection(session.ID, ids); err != nil {
			return nil, nil, nil, nil, err
		}
		if items, err = repo.ListItems(session.ID); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	selected := make([]models.CheckoutSessionItem, 0, len(items))
	for _, item := range items {
		if !item.IsSelected {
			continue
		}
		if input.ProviderID != 0 && item.SellerID != input.ProviderID {
			continue
		}
		selected = append(selected, item)
	}
	if len(selected) == 0 {
		return nil, nil, nil, nil, ErrNothingSelected
	}
	quote, err := s.splitter.Quote(toSplitItems(selected))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return session, items, selected, quote, nil
}

// payWalletInTx 余额支付：扣款、入托管、拆单、消费会话在同一事务
func (s *CheckoutService) payWalletInTx(tx *gorm.DB, input PayInput, now time.Time) (*PayResult, *SplitResult, error) {
	session, items, selected, quote, err := s.prepareSelectionInTx(tx, input, now)
	if err != nil {
		return nil, nil, err
	}
	amount := models.NewMoneyFromDecimal(quote.Total)
	sessionID := session.ID
	payment := &models.PaymentTransaction{
		TxnRef:            input.TxnRef,
		UserID:            input.UserID,
		Purpose:           constants.PaymentPurposeCheckout,
		Provider:          constants.PaymentProviderWallet,
		Status:            constants.PaymentStatusSuccess,
		Amount:            amount,
		Currency:          session.Currency,
		CheckoutSessionID: &sessionID,
		ProviderScope:     input.ProviderID,
		SelectedItemIDs:   itemIDsOf(selected),
		PaidAt:            &now,
	}
	if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
		return nil, nil, err
	}
	if _, err := s.ledger.DebitInTx(tx, LedgerEntry{
		Account:              CustomerAccount(input.UserID),
		Amount:               amount,
		Kind:                 constants.BalanceKindPayment,
		Reference:            fmt.Sprintf("payment:%s:debit", payment.TxnRef),
		PaymentTransactionID: &payment.ID,
		Remark:               "checkout wallet payment",
	}); err != nil {
		return nil, nil, err
	}
	if _, err := s.ledger.CreditInTx(tx, LedgerEntry{
		Account:              EscrowAccount(),
		Amount:               amount,
		Kind:                 constants.BalanceKindTransfer,
		Reference:            fmt.Sprintf("payment:%s:escrow", payment.TxnRef),
		PaymentTransactionID: &payment.ID,
		Remark:               "checkout funds held in escrow",
	}); err != nil {
		return nil, nil, err
	}
	group, split, err := s.materializeInTx(tx, session, items, selected, payment, now)
	if err != nil {
		return nil, nil, err
	}
	views, err := buildOrderViews(s.orderRepo.WithTx(tx), []models.Order{*split.Order})
	if err != nil {
		return nil, nil, err
	}
	return &PayResult{
		Status:     payment.Status,
		Payment:    payment,
		OrderGroup: group,
		Orders:     views,
	}, split, nil
}

// createGatewayPaymentInTx 外部网关支付：仅登记待支付流水，拆单在回调成功后进行
func (s *CheckoutService) createGatewayPaymentInTx(tx *gorm.DB, input PayInput, now time.Time) (*PayResult, error) {
	session, _, selected, quote, err := s.prepareSelectionInTx(tx, input, now)
	if err != nil {
		return nil, err
	}
	sessionID := session.ID
	expiresAt := now.Add(s.cfg.PaymentExpire())
	payment := &models.PaymentTransaction{
		TxnRef:            input.TxnRef,
		UserID:            input.UserID,
		Purpose:           constants.PaymentPurposeCheckout,
		Provider:          constants.PaymentProviderGateway,
		Status:            constants.PaymentStatusPending,
		Amount:            models.NewMoneyFromDecimal(quote.Total),
		Currency:          session.Currency,
		CheckoutSessionID: &sessionID,
		ProviderScope:     input.ProviderID,
		SelectedItemIDs:   itemIDsOf(selected),
		ExpiresAt:         &expiresAt,
	}
	if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
		return nil, err
	}
	return &PayResult{Status: payment.Status, Payment: payment}, nil
}

// CompleteGatewayPaymentInTx 网关回调成功后在事务内拆单并消费会话
func (s *CheckoutService) CompleteGatewayPaymentInTx(tx *gorm.DB, payment *models.PaymentTransaction, now time.Time) (*models.OrderGroup, *SplitResult, error) {
	if payment == nil || payment.CheckoutSessionID == nil {
		return nil, nil, ErrPaymentInvalid
	}
	repo := s.checkoutRepo.WithTx(tx)
	session, err := repo.GetSessionByIDForUpdate(*payment.CheckoutSessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.UserID != payment.UserID {
		return nil, nil, ErrSessionNotFound
	}
	if session.Status == constants.CheckoutSessionStatusConsumed {
		return nil, nil, ErrSessionAlreadyConsumed
	}
	if session.Status != constants.CheckoutSessionStatusOpen {
		return nil, nil, ErrSessionExpired
	}
	items, err := repo.ListItems(session.ID)
	if err != nil {
		return nil, nil, err
	}
	selected := make([]models.CheckoutSessionItem, 0, len(payment.SelectedItemIDs))
	for _, item := range items {
		if payment.SelectedItemIDs.Contains(item.ID) {
			selected = append(selected, item)
		}
	}
	if len(selected) != len(payment.SelectedItemIDs) {
		return nil, nil, ErrCheckoutItemInvalid
	}
	return s.materializeInTx(tx, session, items, selected, payment, now)
}

// materializeInTx 创建订单组、拆单、回写支付流水并消费会话
func (s *CheckoutService) materializeInTx(
	tx *gorm.DB,
	session *models.CheckoutSession,
	items []models.CheckoutSessionItem,
	selected []models.CheckoutSessionItem,
	payment *models.PaymentTransaction,
	now time.Time,
) (*models.OrderGroup, *SplitResult, error) {
	orderRepo := s.orderRepo.WithTx(tx)
	group := &models.OrderGroup{
		GroupNo:              generateNo(orderGroupNoPrefix),
		UserID:               session.UserID,
		CheckoutSessionID:    session.ID,
		PaymentTransactionID: payment.ID,
		TotalPrice:           payment.Amount,
		Currency:             payment.Currency,
	}
	if err := orderRepo.CreateGroup(group); err != nil {
		return nil, nil, err
	}
	split, err := s.splitter.SplitInTx(tx, SplitInput{
		UserID:           session.UserID,
		SessionID:        session.ID,
		GroupID:          group.ID,
		AuthorizedAmount: payment.Amount,
		Items:            toSplitItems(selected),
		ShippingAddress:  session.ShippingAddress,
		CommissionRate:   s.commission,
		Currency:         payment.Currency,
		PaidAt:           now,
	})
	if err != nil {
		return nil, nil, err
	}

	payment.OrderGroupID = &group.ID
	if payment.PaidAt == nil {
		payment.PaidAt = &now
	}
	if err := s.paymentRepo.WithTx(tx).Update(payment); err != nil {
		return nil, nil, err
	}
	if err := s.consumeSessionInTx(tx, session, items, selected, group.ID, now); err != nil {
		return nil, nil, err
	}
	return group, split, nil
}

// consumeSessionInTx 扣减已支付项库存、释放其余预占并标记会话已消费
func (s *CheckoutService) consumeSessionInTx(tx *gorm.DB, session *models.CheckoutSession, items []models.CheckoutSessionItem, selected []models.CheckoutSessionItem, groupID uint, now time.Time) error {
	productRepo := s.productRepo.WithTx(tx)
	paid := make(map[uint]bool, len(selected))
	paidProductIDs := make([]uint, 0, len(selected))
	for _, item := range selected {
		paid[item.ID] = true
		paidProductIDs = append(paidProductIDs, item.ProductID)
	}
	released := make([]uint, 0, len(items))
	for _, item := range items {
		if !item.Reserved {
			continue
		}
		if paid[item.ID] {
			if err := productRepo.ConsumeStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		} else if err := productRepo.ReleaseStock(item.ProductID, item.Quantity); err != nil {
			return err
		}
		released = append(released, item.ID)
	}
	repo := s.checkoutRepo.WithTx(tx)
	if err := repo.MarkItemsReleased(released); err != nil {
		return err
	}
	session.Status = constants.CheckoutSessionStatusConsumed
	session.ConsumedAt = &now
	session.OrderGroupID = &groupID
	if err := repo.UpdateSession(session); err != nil {
		return err
	}
	return s.cartRepo.WithTx(tx).DeleteByUserAndProducts(session.UserID, paidProductIDs)
}

// ExpireSession 过期单个会话并释放预占库存，返回是否发生过期
func (s *CheckoutService) ExpireSession(ctx context.Context, sessionID uint) (bool, error) {
	expired := false
	err := withLockRetry(ctx, s.retry, func() error {
		return models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.checkoutRepo.WithTx(tx)
			session, err := repo.GetSessionByIDForUpdate(sessionID)
			if err != nil {
				return err
			}
			if session == nil || session.Status != constants.CheckoutSessionStatusOpen {
				return nil
			}
			now := time.Now()
			if now.Before(session.ExpiresAt) {
				return nil
			}
			items, err := repo.ListItems(session.ID)
			if err != nil {
				return err
			}
			productRepo := s.productRepo.WithTx(tx)
			released := make([]uint, 0, len(items))
			for _, item := range items {
				if !item.Reserved {
					continue
				}
				if err := productRepo.ReleaseStock(item.ProductID, item.Quantity); err != nil {
					return err
				}
				released = append(released, item.ID)
			}
			if err := repo.MarkItemsReleased(released); err != nil {
				return err
			}
			session.Status = constants.CheckoutSessionStatusExpired
			if err := repo.UpdateSession(session); err != nil {
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
		s.invalidateSessionCache(ctx, sessionID)
		logger.Infow("checkout_session_expired", "session_id", sessionID)
	}
	return expired, nil
}

// SweepExpiredSessions 批量过期已超时的 open 会话
func (s *CheckoutService) SweepExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	sessions, err := s.checkoutRepo.ListExpiredOpen(now, checkoutSweepBatchSize)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		expired, err := s.ExpireSession(ctx, session.ID)
		if err != nil {
			logger.Warnw("checkout_session_sweep_failed", "session_id", session.ID, "error", err)
			continue
		}
		if expired {
			count++
		}
	}
	return count, nil
}

func (s *CheckoutService) invalidateSessionCache(ctx context.Context, sessionID uint) {
	if err := cache.InvalidateCheckoutSession(ctx, sessionID); err != nil {
		logger.Debugw("checkout_session_cache_invalidate_failed", "session_id", sessionID, "error", err)
	}
}

func (s *CheckoutService) buildView(session *models.CheckoutSession, items []models.CheckoutSessionItem, now time.Time) *CheckoutSessionView {
	view := &CheckoutSessionView{
		ID:           session.ID,
		SessionNo:    session.SessionNo,
		UserID:       session.UserID,
		Status:       effectiveSessionStatus(session.Status, session.ExpiresAt, now),
		Currency:     session.Currency,
		ExpiresAt:    session.ExpiresAt,
		ConsumedAt:   session.ConsumedAt,
		OrderGroupID: session.OrderGroupID,
		Providers:    make([]CheckoutProviderGroup, 0),
	}
	index := make(map[uint]int)
	selectedSubtotal := decimal.Zero
	selectedShipping := decimal.Zero
	for _, item := range items {
		idx, ok := index[item.SellerID]
		if !ok {
			idx = len(view.Providers)
			index[item.SellerID] = idx
			view.Providers = append(view.Providers, CheckoutProviderGroup{
				SellerID:         item.SellerID,
				SellerType:       item.SellerType,
				Items:            make([]models.CheckoutSessionItem, 0),
				Subtotal:         models.ZeroMoney(),
				SelectedSubtotal: models.ZeroMoney(),
			})
		}
		group := &view.Providers[idx]
		line := item.UnitPrice.MulQuantity(item.Quantity)
		group.Items = append(group.Items, item)
		group.Subtotal = models.NewMoneyFromDecimal(group.Subtotal.Decimal.Add(line))
		if item.IsSelected {
			if group.SelectedCount == 0 {
				selectedShipping = selectedShipping.Add(s.splitter.shippingFee)
			}
			group.SelectedCount++
			group.SelectedSubtotal = models.NewMoneyFromDecimal(group.SelectedSubtotal.Decimal.Add(line))
			selectedSubtotal = selectedSubtotal.Add(line)
		}
	}
	view.SelectedSubtotal = models.NewMoneyFromDecimal(selectedSubtotal)
	view.SelectedShipping = models.NewMoneyFromDecimal(selectedShipping)
	view.SelectedTotal = models.NewMoneyFromDecimal(selectedSubtotal.Add(selectedShipping))
	return view
}

func effectiveSessionStatus(status string, expiresAt time.Time, now time.Time) string {
	if status == constants.CheckoutSessionStatusOpen && !now.Before(expiresAt) {
		return constants.CheckoutSessionStatusExpired
	}
	return status
}

// checkSessionPayable 会话必须处于 open 且未过期
func checkSessionPayable(session *models.CheckoutSession, now time.Time) error {
	switch session.Status {
	case constants.CheckoutSessionStatusConsumed:
		return ErrSessionAlreadyConsumed
	case constants.CheckoutSessionStatusExpired:
		return ErrSessionExpired
	}
	if !now.Before(session.ExpiresAt) {
		return ErrSessionExpired
	}
	return nil
}

// validateSelection 校验并去重勾选项
func validateSelection(items []models.CheckoutSessionItem, itemIDs []uint) ([]uint, error) {
	known := make(map[uint]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}
	seen := make(map[uint]bool, len(itemIDs))
	ids := make([]uint, 0, len(itemIDs))
	for _, id := range itemIDs {
		if !known[id] {
			return nil, ErrCheckoutItemInvalid
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func toSplitItems(items []models.CheckoutSessionItem) []SplitItem {
	result := make([]SplitItem, 0, len(items))
	for _, item := range items {
		result = append(result, SplitItem{
			SellerID:   item.SellerID,
			SellerType: item.SellerType,
			ProductID:  item.ProductID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}
	return result
}

func itemIDsOf(items []models.CheckoutSessionItem) models.UintList {
	ids := make(models.UintList, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
