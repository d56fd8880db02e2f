package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/common/validation"
	"github.com/shopswift/storefront/services/order-service/models"
	"github.com/shopswift/storefront/services/order-service/services"
)

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// actor returns the identity attached by the guard. Routes without the guard
// never call it.
func actor(ctx *gin.Context) (identity.Identity, bool) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		ctx.Error(apperrors.Unauthenticated("Not authorized"))
		return identity.Identity{}, false
	}
	return id, true
}

// bind reports field-level binding failures as a 400.
func bind(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		ctx.Error(apperrors.New(apperrors.KindValidation, validation.Describe(err), err))
		return false
	}
	return true
}

// CreateOrder handles POST /api/orders
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	who, ok := actor(ctx)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if !bind(ctx, &req) {
		return
	}

	order, err := oc.orderService.CreateOrder(ctx.Request.Context(), who, req)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusCreated, order)
}

// GetMyOrders handles GET /api/orders/mine
func (oc *OrderController) GetMyOrders(ctx *gin.Context) {
	who, ok := actor(ctx)
	if !ok {
		return
	}

	orders, err := oc.orderService.ListMine(ctx.Request.Context(), who)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, orders)
}

// GetOrders handles GET /api/orders (admin)
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	who, ok := actor(ctx)
	if !ok {
		return
	}

	orders, err := oc.orderService.ListAll(ctx.Request.Context(), who)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, orders)
}

// GetOrderByID handles GET /api/orders/:id
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	order, err := oc.orderService.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// UpdateOrderToPaid handles PUT /api/orders/:id/pay
func (oc *OrderController) UpdateOrderToPaid(ctx *gin.Context) {
	who, ok := actor(ctx)
	if !ok {
		return
	}

	var req models.PayOrderRequest
	if !bind(ctx, &req) {
		return
	}

	order, err := oc.orderService.MarkPaid(ctx.Request.Context(), who, ctx.Param("id"), req)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

// UpdateOrderToDelivered handles PUT /api/orders/:id/deliver (admin)
func (oc *OrderController) UpdateOrderToDelivered(ctx *gin.Context) {
	who, ok := actor(ctx)
	if !ok {
		return
	}

	order, err := oc.orderService.MarkDelivered(ctx.Request.Context(), who, ctx.Param("id"))
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

func (oc *OrderController) GetTotalOrders(ctx *gin.Context) {
	res, err := oc.orderService.CountAll(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (oc *OrderController) GetTotalSales(ctx *gin.Context) {
	res, err := oc.orderService.TotalSales(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (oc *OrderController) GetTotalSalesByDate(ctx *gin.Context) {
	res, err := oc.orderService.SalesByDate(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
