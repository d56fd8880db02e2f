package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"github.com/shopswift/storefront/services/order-service/models"
)

// ProductsCollection is owned by the catalog; orders only read it.
const ProductsCollection = "products"

// MongoCatalogRepository resolves products from the products collection.
type MongoCatalogRepository struct {
	coll *mongo.Collection
}

func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{coll: db.Collection(ProductsCollection)}
}

// Resolve returns the products that exist among ids. Malformed ids are simply
// absent from the result.
func (r *MongoCatalogRepository) Resolve(ctx context.Context, ids []string) (map[string]models.CatalogProduct, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	out := make(map[string]models.CatalogProduct, len(oids))
	if len(oids) == 0 {
		return out, nil
	}

	cur, err := r.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"name": 1, "image": 1, "price": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Image string             `bson:"image"`
		Price bson.RawValue      `bson:"price"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	for _, d := range docs {
		price, err := moneyFromRaw(d.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", d.ID.Hex(), err)
		}
		out[d.ID.Hex()] = models.CatalogProduct{ID: d.ID.Hex(), Name: d.Name, Image: d.Image, Price: price}
	}
	return out, nil
}

type productRow struct {
	ID    string
	Name  string
	Image string
	Price decimal.Decimal
}

// GormCatalogRepository resolves products from the products table.
type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) Resolve(ctx context.Context, ids []string) (map[string]models.CatalogProduct, error) {
	out := make(map[string]models.CatalogProduct, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []productRow
	if err := r.db.WithContext(ctx).
		Table(ProductsCollection).
		Select("id", "name", "image", "price").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = models.CatalogProduct{ID: p.ID, Name: p.Name, Image: p.Image, Price: models.NewMoney(p.Price)}
	}
	return out, nil
}
