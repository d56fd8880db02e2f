package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/shopswift/storefront/services/order-service/models"
)

func TestAmount_WritesDecimal128(t *testing.T) {
	raw, err := bson.Marshal(orderItemDocument{Name: "Mouse", Qty: 1, Price: amount{models.MustMoney("25.5")}})
	require.NoError(t, err)

	price := bson.Raw(raw).Lookup("price")
	require.Equal(t, bsontype.Decimal128, price.Type)
	assert.Equal(t, "25.50", price.Decimal128().String())

	var back orderItemDocument
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, "25.50", back.Price.String())
}
