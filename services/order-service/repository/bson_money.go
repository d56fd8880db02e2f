package repository

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shopswift/storefront/services/order-service/models"
)

func toDecimal128(m models.Money) (primitive.Decimal128, error) {
	d, err := primitive.ParseDecimal128(m.StringFixed(2))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", m, err)
	}
	return d, nil
}

func fromDecimal128(d primitive.Decimal128) (models.Money, error) {
	return models.ParseMoney(d.String())
}

// amount is written as Decimal128. Reads also accept the double and integer
// encodings found in older documents.
type amount struct {
	models.Money
}

func (a amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := toDecimal128(a.Money)
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(d)
}

func (a *amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	m, err := moneyFromRaw(bson.RawValue{Type: t, Value: data})
	if err != nil {
		return err
	}
	a.Money = m
	return nil
}

// moneyFromRaw decodes an amount stored in any numeric encoding.
func moneyFromRaw(v bson.RawValue) (models.Money, error) {
	switch v.Type {
	case bsontype.Decimal128:
		return fromDecimal128(v.Decimal128())
	case bsontype.Double:
		return models.NewMoney(decimal.NewFromFloat(v.Double())), nil
	case bsontype.Int32:
		return models.NewMoney(decimal.NewFromInt32(v.Int32())), nil
	case bsontype.Int64:
		return models.NewMoney(decimal.NewFromInt(v.Int64())), nil
	case bsontype.Null, bsontype.Undefined, 0:
		return models.Money{}, nil
	default:
		return models.Money{}, fmt.Errorf("unsupported amount type %s", v.Type)
	}
}
