package services

import (
	"github.com/shopspring/decimal"

	"github.com/shopswift/storefront/services/order-service/models"
)

var (
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShippingPrice     = decimal.NewFromInt(10)
	taxRate               = decimal.RequireFromString("0.15")
)

// CalcPrices derives order totals from priced items. Orders strictly above
// 100.00 ship free; tax is 15% of the items price.
func CalcPrices(items []models.OrderItem) models.Totals {
	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	itemsPrice = itemsPrice.Round(2)

	shippingPrice := flatShippingPrice
	if itemsPrice.GreaterThan(freeShippingThreshold) {
		shippingPrice = decimal.Zero
	}

	taxPrice := itemsPrice.Mul(taxRate).Round(2)
	totalPrice := itemsPrice.Add(shippingPrice).Add(taxPrice)

	return models.Totals{
		ItemsPrice:    models.NewMoney(itemsPrice),
		ShippingPrice: models.NewMoney(shippingPrice),
		TaxPrice:      models.NewMoney(taxPrice),
		TotalPrice:    models.NewMoney(totalPrice),
	}
}
