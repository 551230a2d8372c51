package repository

import (
	"context"

	"github.com/deppfellow/storefront/internal/model"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Brands        *Collection[model.Brand, *model.Brand]
	Illustrations *Collection[model.Illustration, *model.Illustration]
	Products      *Collection[model.Product, *model.Product]
	Typefaces     *Collection[model.Typeface, *model.Typeface]
	Carts         *CartRepository
	Uploads       *UploadRepository

	db *mongo.Database
}

// NewRepositories constructs every repository over db.
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Brands:        NewCollection[model.Brand](db.Collection(model.BrandsCollection)),
		Illustrations: NewCollection[model.Illustration](db.Collection(model.IllustrationsCollection)),
		Products:      NewCollection[model.Product](db.Collection(model.ProductsCollection)),
		Typefaces:     NewCollection[model.Typeface](db.Collection(model.TypefacesCollection)),
		Carts:         NewCartRepository(db),
		Uploads:       NewUploadRepository(db),
		db:            db,
	}
}

// indexes lists the unique keys the repositories rely on; a clash surfaces
// as a duplicate key error that dberr maps to a 400.
var indexes = map[string][]mongo.IndexModel{
	model.BrandsCollection: {
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	model.TypefacesCollection: {
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "foundry", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	model.ProductsCollection: {
		{Keys: bson.D{{Key: "category", Value: 1}}},
	},
	model.UploadsCollection: {
		{Keys: bson.D{{Key: "storedName", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates missing indexes. Existing ones are left alone.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	for collection, models := range indexes {
		if _, err := r.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes on %s", collection)
		}
	}
	return nil
}
