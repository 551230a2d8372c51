package repository

import (
	"context"
	"time"

	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CartRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{coll: db.Collection(model.CartsCollection), now: time.Now}
}

// Get returns the cart, or a wrapped mongo.ErrNoDocuments.
func (r *CartRepository) Get(ctx context.Context, id string) (*model.Cart, error) {
	var cart model.Cart
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&cart); err != nil {
		return nil, dberr.Wrap(err, model.CartsCollection)
	}
	return &cart, nil
}

// Save upserts the whole cart.
func (r *CartRepository) Save(ctx context.Context, cart *model.Cart) error {
	cart.UpdatedAt = r.now()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart, options.Replace().SetUpsert(true))
	return dberr.Wrap(err, model.CartsCollection)
}

// Delete removes the cart, or returns a wrapped mongo.ErrNoDocuments.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return dberr.Wrap(err, model.CartsCollection)
	}
	if res.DeletedCount == 0 {
		return dberr.Wrap(mongo.ErrNoDocuments, model.CartsCollection)
	}
	return nil
}
