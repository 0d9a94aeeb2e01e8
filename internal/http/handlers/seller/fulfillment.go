package seller

import (
	"context"
	"fmt"

	"github.com/modamart/internal/constants"
	handlershared "github.com/modamart/internal/http/handlers/shared"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

// 履约动作名（路由最后一段）
const (
	ActionConfirm = "confirm"
	ActionProcess = "process"
	ActionShip    = "ship"
	ActionDeliver = "deliver"
	ActionCancel  = "cancel"
	ActionReturn  = "return"
)

// Actions 全部履约动作
var Actions = []string{ActionConfirm, ActionProcess, ActionShip, ActionDeliver, ActionCancel, ActionReturn}

// FulfillmentActionRequest 履约动作请求
type FulfillmentActionRequest struct {
	Reason     string `json:"reason"`
	Carrier    string `json:"carrier"`
	TrackingNo string `json:"tracking_no"`
}

var fulfillmentErrorRules = []handlershared.MappedError{
	{Target: service.ErrSubOrderNotFound, Code: response.CodeNotFound, Key: "error.suborder_not_found"},
	{Target: service.ErrForbiddenSubOrder, Code: response.CodeForbidden, Key: "error.suborder_forbidden"},
	{Target: service.ErrInvalidStateTransition, Code: response.CodeConflict, Key: "error.invalid_state_transition"},
	{Target: service.ErrTrackingInfoRequired, Code: response.CodeBadRequest, Key: "error.tracking_required"},
	{Target: service.ErrInsufficientBalance, Code: response.CodeInternal, Key: "error.insufficient_balance"},
}

type fulfillmentFunc func(ctx context.Context, actor service.Actor, subOrderID uint, req FulfillmentActionRequest) (*models.SubOrder, error)

func (h *Handler) fulfillmentAction(action string) (fulfillmentFunc, error) {
	svc := h.FulfillmentService
	switch action {
	case ActionConfirm:
		return func(ctx context.Context, actor service.Actor, id uint, _ FulfillmentActionRequest) (*models.SubOrder, error) {
			return svc.Confirm(ctx, actor, id)
		}, nil
	case ActionProcess:
		return func(ctx context.Context, actor service.Actor, id uint, _ FulfillmentActionRequest) (*models.SubOrder, error) {
			return svc.StartProcessing(ctx, actor, id)
		}, nil
	case ActionShip:
		return func(ctx context.Context, actor service.Actor, id uint, req FulfillmentActionRequest) (*models.SubOrder, error) {
			return svc.Ship(ctx, actor, id, service.TrackingInfo{Carrier: req.Carrier, TrackingNo: req.TrackingNo})
		}, nil
	case ActionDeliver:
		return func(ctx context.Context, actor service.Actor, id uint, _ FulfillmentActionRequest) (*models.SubOrder, error) {
			return svc.Deliver(ctx, actor, id)
		}, nil
	case ActionCancel:
		return func(ctx context.Context, actor service.Actor, id uint, req FulfillmentActionRequest) (*models.SubOrder, error) {
			return svc.Cancel(ctx, actor, id, req.Reason)
		}, nil
	case ActionReturn:
		return func(ctx context.Context, actor service.Actor, id uint, req FulfillmentActionRequest) (*models.SubOrder, error) {
			return svc.Return(ctx, actor, id, req.Reason)
		}, nil
	}
	return nil, fmt.Errorf("unknown fulfillment action %q", action)
}

// SubOrderAction 返回指定履约动作的处理函数
func (h *Handler) SubOrderAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := handlershared.GetActor(c)
		if !ok {
			return
		}
		subOrderID, ok := handlershared.ParseIDParam(c, "id")
		if !ok {
			return
		}
		var req FulfillmentActionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, response.CodeBadRequest, "error.bad_request", err)
				return
			}
		}
		run, err := h.fulfillmentAction(action)
		if err != nil {
			respondError(c, response.CodeNotFound, "error.not_found", err)
			return
		}
		subOrder, err := run(c.Request.Context(), actor, subOrderID, req)
		if err != nil {
			handlershared.RespondWithMappedError(c, err, fulfillmentErrorRules, response.CodeInternal, "error.fulfillment_failed")
			return
		}
		response.Success(c, subOrder)
	}
}

// ListSubOrders 卖家分页查询自己的子订单
func (h *Handler) ListSubOrders(c *gin.Context) {
	actor, ok := handlershared.GetActor(c)
	if !ok {
		return
	}
	if actor.SellerID == 0 {
		respondError(c, response.CodeForbidden, "error.seller_id_invalid", nil)
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	status := c.Query("status")
	if status != "" && !isKnownFulfillmentStatus(status) {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	subOrders, total, err := h.OrderService.ListSellerSubOrders(repository.SubOrderListFilter{
		Page:     page,
		PageSize: pageSize,
		SellerID: actor.SellerID,
		Status:   status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, subOrders, response.NewPagination(page, pageSize, total))
}

func isKnownFulfillmentStatus(status string) bool {
	switch status {
	case constants.FulfillmentStatusPending,
		constants.FulfillmentStatusConfirmed,
		constants.FulfillmentStatusProcessing,
		constants.FulfillmentStatusShipped,
		constants.FulfillmentStatusDelivered,
		constants.FulfillmentStatusCanceled,
		constants.FulfillmentStatusReturned:
		return true
	}
	return false
}
