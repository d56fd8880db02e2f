package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopswift/storefront/services/order-service/models"
)

// OrdersCollection is where orders live in the document store.
const OrdersCollection = "orders"

type orderItemDocument struct {
	Product primitive.ObjectID `bson:"product"`
	Name    string             `bson:"name"`
	Image   string             `bson:"image,omitempty"`
	Qty     int                `bson:"qty"`
	Price   amount             `bson:"price"`
}

type shippingAddressDocument struct {
	Address    string `bson:"address"`
	City       string `bson:"city"`
	PostalCode string `bson:"postalCode"`
	Country    string `bson:"country"`
}

type paymentResultDocument struct {
	ID           string `bson:"id"`
	Status       string `bson:"status"`
	UpdateTime   string `bson:"update_time"`
	EmailAddress string `bson:"email_address"`
}

type orderDocument struct {
	ID              primitive.ObjectID      `bson:"_id"`
	User            primitive.ObjectID      `bson:"user"`
	OrderItems      []orderItemDocument     `bson:"orderItems"`
	ShippingAddress shippingAddressDocument `bson:"shippingAddress"`
	PaymentMethod   string                  `bson:"paymentMethod"`
	PaymentResult   *paymentResultDocument  `bson:"paymentResult,omitempty"`
	ItemsPrice      amount                  `bson:"itemsPrice"`
	ShippingPrice   amount                  `bson:"shippingPrice"`
	TaxPrice        amount                  `bson:"taxPrice"`
	TotalPrice      amount                  `bson:"totalPrice"`
	IsPaid          bool                    `bson:"isPaid"`
	PaidAt          *time.Time              `bson:"paidAt,omitempty"`
	IsDelivered     bool                    `bson:"isDelivered"`
	DeliveredAt     *time.Time              `bson:"deliveredAt,omitempty"`
	Version         int64                   `bson:"version"`
	CreatedAt       time.Time               `bson:"createdAt"`
	UpdatedAt       time.Time               `bson:"updatedAt"`
}

func newOrderDocument(o *models.Order) (*orderDocument, error) {
	user, err := primitive.ObjectIDFromHex(o.User)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", o.User, err)
	}
	doc := &orderDocument{
		User: user,
		ShippingAddress: shippingAddressDocument{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.PaymentResult != nil {
		doc.PaymentResult = &paymentResultDocument{
			ID:           o.PaymentResult.ID,
			Status:       o.PaymentResult.Status,
			UpdateTime:   o.PaymentResult.UpdateTime,
			EmailAddress: o.PaymentResult.EmailAddress,
		}
	}
	for _, it := range o.OrderItems {
		product, err := primitive.ObjectIDFromHex(it.Product)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", it.Product, err)
		}
		doc.OrderItems = append(doc.OrderItems, orderItemDocument{
			Product: product,
			Name:    it.Name,
			Image:   it.Image,
			Qty:     it.Qty,
			Price:   amount{it.Price},
		})
	}
	doc.ItemsPrice = amount{o.ItemsPrice}
	doc.ShippingPrice = amount{o.ShippingPrice}
	doc.TaxPrice = amount{o.TaxPrice}
	doc.TotalPrice = amount{o.TotalPrice}
	return doc, nil
}

func (d *orderDocument) toModel() *models.Order {
	o := &models.Order{
		ID:   d.ID.Hex(),
		User: d.User.Hex(),
		ShippingAddress: models.ShippingAddress{
			Address:    d.ShippingAddress.Address,
			City:       d.ShippingAddress.City,
			PostalCode: d.ShippingAddress.PostalCode,
			Country:    d.ShippingAddress.Country,
		},
		PaymentMethod: d.PaymentMethod,
		IsPaid:        d.IsPaid,
		PaidAt:        d.PaidAt,
		IsDelivered:   d.IsDelivered,
		DeliveredAt:   d.DeliveredAt,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		OrderItems:    make([]models.OrderItem, 0, len(d.OrderItems)),
	}
	if d.PaymentResult != nil {
		o.PaymentResult = &models.PaymentResult{
			ID:           d.PaymentResult.ID,
			Status:       d.PaymentResult.Status,
			UpdateTime:   d.PaymentResult.UpdateTime,
			EmailAddress: d.PaymentResult.EmailAddress,
		}
	}
	for _, it := range d.OrderItems {
		o.OrderItems = append(o.OrderItems, models.OrderItem{
			Product: it.Product.Hex(),
			Name:    it.Name,
			Image:   it.Image,
			Qty:     it.Qty,
			Price:   it.Price.Money,
		})
	}
	o.ItemsPrice = d.ItemsPrice.Money
	o.ShippingPrice = d.ShippingPrice.Money
	o.TaxPrice = d.TaxPrice.Money
	o.TotalPrice = d.TotalPrice.Money
	return o
}

// MongoOrderRepository implements OrderRepository on the orders collection.
type MongoOrderRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection(OrdersCollection), now: time.Now}
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := r.now().UTC()
	order.Version = 1
	order.CreatedAt = now
	order.UpdatedAt = now

	doc, err := newOrderDocument(order)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.ID = doc.ID.Hex()
	return nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc orderDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoOrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []models.Order{}, nil
	}
	return r.find(ctx, bson.M{"user": oid})
}

func (r *MongoOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	out := make([]models.Order, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *MongoOrderRepository) UpdateLifecycle(ctx context.Context, order *models.Order) error {
	oid, err := primitive.ObjectIDFromHex(order.ID)
	if err != nil {
		return ErrNotFound
	}

	updatedAt := r.now().UTC()
	set := bson.M{
		"isPaid":      order.IsPaid,
		"isDelivered": order.IsDelivered,
		"updatedAt":   updatedAt,
	}
	if order.PaidAt != nil {
		set["paidAt"] = order.PaidAt
	}
	if order.DeliveredAt != nil {
		set["deliveredAt"] = order.DeliveredAt
	}
	if pr := order.PaymentResult; pr != nil {
		set["paymentResult"] = paymentResultDocument{
			ID:           pr.ID,
			Status:       pr.Status,
			UpdateTime:   pr.UpdateTime,
			EmailAddress: pr.EmailAddress,
		}
	}

	filter := bson.M{"_id": oid, "version": order.Version}
	if order.Version == 0 {
		// documents written before versioning carry no version field
		filter["version"] = nil
	}
	res, err := r.coll.UpdateOne(ctx, filter,
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	order.Version++
	order.UpdatedAt = updatedAt
	return nil
}

func (r *MongoOrderRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *MongoOrderRepository) SumTotalPrice(ctx context.Context) (models.Money, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.Money{}, fmt.Errorf("sum orders: %w", err)
	}
	var rows []struct {
		TotalSales bson.RawValue `bson:"totalSales"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return models.Money{}, fmt.Errorf("decode order sum: %w", err)
	}
	if len(rows) == 0 {
		return models.Money{}, nil
	}
	return moneyFromRaw(rows[0].TotalSales)
}

func (r *MongoOrderRepository) SalesByPaidDate(ctx context.Context) ([]models.DailySales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "isPaid", Value: true}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$paidAt"},
			}}}},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	var rows []struct {
		Date       string        `bson:"_id"`
		TotalSales bson.RawValue `bson:"totalSales"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}

	out := make([]models.DailySales, 0, len(rows))
	for _, row := range rows {
		total, err := moneyFromRaw(row.TotalSales)
		if err != nil {
			return nil, err
		}
		out = append(out, models.DailySales{Date: row.Date, TotalSales: total})
	}
	return out, nil
}
