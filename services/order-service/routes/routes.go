package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/order-service/controllers"
)

// RegisterOrderRoutes mounts the order API under /api/orders. The aggregate
// reports are public unless protectAggregates is set.
func RegisterOrderRoutes(r gin.IRouter, oc *controllers.OrderController, guard *identity.Guard, protectAggregates bool) {
	orders := r.Group("/api/orders")

	reports := orders.Group("")
	if protectAggregates {
		reports.Use(guard.Authenticate(), guard.AuthorizeAdmin())
	}
	reports.GET("/total-orders", oc.GetTotalOrders)
	reports.GET("/total-sales", oc.GetTotalSales)
	reports.GET("/total-sales-by-date", oc.GetTotalSalesByDate)

	authed := orders.Group("")
	authed.Use(guard.Authenticate())
	authed.POST("", oc.CreateOrder)
	authed.GET("/mine", oc.GetMyOrders)
	authed.GET("/:id", oc.GetOrderByID)
	authed.PUT("/:id/pay", oc.UpdateOrderToPaid)

	admin := orders.Group("")
	admin.Use(guard.Authenticate(), guard.AuthorizeAdmin())
	admin.GET("", oc.GetOrders)
	admin.PUT("/:id/deliver", oc.UpdateOrderToDelivered)
}
