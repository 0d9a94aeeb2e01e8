package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":                   "请求参数错误",
		"error.unauthorized":                  "未登录或登录已失效",
		"error.forbidden":                     "无权访问",
		"error.not_found":                     "资源不存在",
		"error.internal":                      "服务器内部错误",
		"error.jwt_secret_missing":            "服务端未配置令牌密钥",
		"error.auth_header_missing":           "缺少 Authorization 请求头",
		"error.auth_header_invalid":           "Authorization 格式错误",
		"error.token_invalid":                 "令牌无效",
		"error.rate_limited":                  "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":        "限流服务不可用",
		"error.user_id_invalid":               "用户 ID 无效",
		"error.user_id_type_invalid":          "用户 ID 类型错误",
		"error.seller_id_invalid":             "卖家身份无效",
		"error.id_invalid":                    "ID 无效",
		"error.cart_item_invalid":             "购物车商品无效",
		"error.cart_empty":                    "购物车为空",
		"error.cart_fetch_failed":             "获取购物车失败",
		"error.cart_update_failed":            "更新购物车失败",
		"error.product_not_found":             "商品不存在",
		"error.product_not_available":         "商品已下架",
		"error.seller_type_conflict":          "同一卖家不能同时以供应商和设计师身份出现",
		"error.stock_insufficient":            "库存不足",
		"error.session_not_found":             "结算会话不存在",
		"error.session_expired":               "结算会话已过期",
		"error.session_consumed":              "结算会话已完成支付",
		"error.checkout_item_invalid":         "结算项无效",
		"error.nothing_selected":              "未勾选任何商品",
		"error.pay_method_invalid":            "支付方式无效",
		"error.checkout_busy":                 "支付处理中，请勿重复提交",
		"error.checkout_failed":               "创建结算会话失败",
		"error.checkout_pay_failed":           "支付失败",
		"error.insufficient_balance":          "钱包余额不足",
		"error.wallet_locked":                 "钱包已冻结",
		"error.wallet_not_found":              "钱包不存在",
		"error.wallet_amount_invalid":         "金额无效",
		"error.wallet_fetch_failed":           "获取钱包失败",
		"error.wallet_verify_failed":          "钱包对账失败",
		"error.ledger_reference_empty":        "缺少业务流水号",
		"error.withdraw_failed":               "提现失败",
		"error.recharge_failed":               "创建充值失败",
		"error.txn_ref_conflict":              "交易流水号冲突",
		"error.split_consistency":             "拆单金额校验失败",
		"error.payment_invalid":               "支付信息无效",
		"error.payment_not_found":             "支付记录不存在",
		"error.payment_status_invalid":        "支付状态无效",
		"error.payment_amount_mismatch":       "支付金额不一致",
		"error.payment_callback_failed":       "支付回调处理失败",
		"error.payment_signature_invalid":     "回调签名校验失败",
		"error.payment_callback_unconfigured": "服务端未配置回调密钥",
		"error.order_not_found":               "订单不存在",
		"error.order_fetch_failed":            "获取订单失败",
		"error.suborder_not_found":            "子订单不存在",
		"error.suborder_forbidden":            "无权操作该子订单",
		"error.invalid_state_transition":      "当前状态不允许该操作",
		"error.tracking_required":             "请填写物流公司与运单号",
		"error.fulfillment_failed":            "履约操作失败",
	},
	LocaleTW: {
		"error.bad_request":              "請求參數錯誤",
		"error.unauthorized":             "未登入或登入已失效",
		"error.forbidden":                "無權存取",
		"error.not_found":                "資源不存在",
		"error.internal":                 "伺服器內部錯誤",
		"error.token_invalid":            "權杖無效",
		"error.rate_limited":             "請求過於頻繁，請 %d 秒後再試",
		"error.insufficient_balance":     "錢包餘額不足",
		"error.session_expired":          "結帳工作階段已過期",
		"error.session_consumed":         "結帳工作階段已完成付款",
		"error.invalid_state_transition": "目前狀態不允許此操作",
		"error.suborder_forbidden":       "無權操作此子訂單",
		"error.payment_amount_mismatch":  "付款金額不一致",
	},
	LocaleEN: {
		"error.bad_request":                   "Invalid request",
		"error.unauthorized":                  "Not signed in or session expired",
		"error.forbidden":                     "Access denied",
		"error.not_found":                     "Resource not found",
		"error.internal":                      "Internal server error",
		"error.jwt_secret_missing":            "Token secret is not configured",
		"error.auth_header_missing":           "Authorization header is missing",
		"error.auth_header_invalid":           "Authorization header is malformed",
		"error.token_invalid":                 "Invalid token",
		"error.rate_limited":                  "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":        "Rate limiter unavailable",
		"error.user_id_invalid":               "Invalid user id",
		"error.user_id_type_invalid":          "Invalid user id type",
		"error.seller_id_invalid":             "Invalid seller identity",
		"error.id_invalid":                    "Invalid id",
		"error.cart_item_invalid":             "Invalid cart item",
		"error.cart_empty":                    "Cart is empty",
		"error.cart_fetch_failed":             "Failed to load cart",
		"error.cart_update_failed":            "Failed to update cart",
		"error.product_not_found":             "Product not found",
		"error.product_not_available":         "Product is not available",
		"error.seller_type_conflict":          "Seller id is registered with another seller type",
		"error.stock_insufficient":            "Insufficient stock",
		"error.session_not_found":             "Checkout session not found",
		"error.session_expired":               "Checkout session expired",
		"error.session_consumed":              "Checkout session already paid",
		"error.checkout_item_invalid":         "Invalid checkout item",
		"error.nothing_selected":              "No item selected",
		"error.pay_method_invalid":            "Invalid payment method",
		"error.checkout_busy":                 "Payment in progress",
		"error.checkout_failed":               "Failed to create checkout session",
		"error.checkout_pay_failed":           "Payment failed",
		"error.insufficient_balance":          "Insufficient wallet balance",
		"error.wallet_locked":                 "Wallet is locked",
		"error.wallet_not_found":              "Wallet not found",
		"error.wallet_amount_invalid":         "Invalid amount",
		"error.wallet_fetch_failed":           "Failed to load wallet",
		"error.wallet_verify_failed":          "Failed to verify wallet",
		"error.ledger_reference_empty":        "Reference is required",
		"error.withdraw_failed":               "Withdrawal failed",
		"error.recharge_failed":               "Failed to create recharge",
		"error.txn_ref_conflict":              "Transaction reference conflict",
		"error.split_consistency":             "Order split verification failed",
		"error.payment_invalid":               "Invalid payment",
		"error.payment_not_found":             "Payment not found",
		"error.payment_status_invalid":        "Invalid payment status",
		"error.payment_amount_mismatch":       "Payment amount mismatch",
		"error.payment_callback_failed":       "Failed to process payment callback",
		"error.payment_signature_invalid":     "Callback signature verification failed",
		"error.payment_callback_unconfigured": "Callback secret is not configured",
		"error.order_not_found":               "Order not found",
		"error.order_fetch_failed":            "Failed to load order",
		"error.suborder_not_found":            "Sub-order not found",
		"error.suborder_forbidden":            "Sub-order belongs to another seller",
		"error.invalid_state_transition":      "Operation not allowed in the current state",
		"error.tracking_required":             "Carrier and tracking number are required",
		"error.fulfillment_failed":            "Fulfillment action failed",
	},
}
