package models

import (
	"time"

	"github.com/shopswift/storefront/services/common/users"
)

// OrderItem is a line of an order. Price is the catalog price captured when
// the order was created.
type OrderItem struct {
	Product string `json:"product"`
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
	Qty     int    `json:"qty" binding:"required,min=1"`
	Price   Money  `json:"price"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResult is the provider confirmation recorded when an order is paid.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// Totals are computed once at creation and never recomputed.
type Totals struct {
	ItemsPrice    Money
	ShippingPrice Money
	TaxPrice      Money
	TotalPrice    Money
}

type Order struct {
	ID              string          `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	User            string          `json:"user" gorm:"column:user_id;type:varchar(36);index;not null"`
	OrderItems      []OrderItem     `json:"orderItems" gorm:"serializer:json;type:jsonb;not null"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"serializer:json;type:jsonb"`
	PaymentMethod   string          `json:"paymentMethod" gorm:"type:varchar(64)"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty" gorm:"serializer:json;type:jsonb"`
	ItemsPrice      Money           `json:"itemsPrice" gorm:"type:numeric(12,2);not null"`
	ShippingPrice   Money           `json:"shippingPrice" gorm:"type:numeric(12,2);not null"`
	TaxPrice        Money           `json:"taxPrice" gorm:"type:numeric(12,2);not null"`
	TotalPrice      Money           `json:"totalPrice" gorm:"type:numeric(12,2);not null"`
	IsPaid          bool            `json:"isPaid" gorm:"not null;index"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered" gorm:"not null"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	Version         int64           `json:"version" gorm:"not null"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ApplyTotals copies computed prices onto the order.
func (o *Order) ApplyTotals(t Totals) {
	o.ItemsPrice = t.ItemsPrice
	o.ShippingPrice = t.ShippingPrice
	o.TaxPrice = t.TaxPrice
	o.TotalPrice = t.TotalPrice
}

// OrderView is an order with its owner resolved.
type OrderView struct {
	Order
	User users.Summary `json:"user"`
}

// DailySales is the paid revenue of one UTC calendar day.
type DailySales struct {
	Date       string `json:"_id"`
	TotalSales Money  `json:"totalSales"`
}

// CatalogProduct is what the order core reads from the catalog.
type CatalogProduct struct {
	ID    string
	Name  string
	Image string
	Price Money
}

type OrderItemInput struct {
	Product string `json:"_id" binding:"required,notblank"`
	Name    string `json:"name"`
	Qty     int    `json:"qty" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	OrderItems      []OrderItemInput `json:"orderItems" binding:"dive"`
	ShippingAddress ShippingAddress  `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type Payer struct {
	EmailAddress string `json:"email_address"`
}

type PayOrderRequest struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
	Payer      Payer  `json:"payer"`
}

type TotalOrdersResponse struct {
	TotalOrders int64 `json:"totalOrders"`
}

type TotalSalesResponse struct {
	TotalSales Money `json:"totalSales"`
}
