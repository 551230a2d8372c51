// Package repository handles all interactions with the database.
//
// It holds the MongoDB queries and methods to fetch, persist,
// or update documents, abstracting driver details away from the service
// layer. Driver errors leave this package tagged with their collection
// (dberr.Wrap) so they can be turned into API errors later.
package repository

import (
	"context"
	"time"

	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListOptions pages through a collection, newest first.
type ListOptions struct {
	Limit int64
	Skip  int64
}

// Collection is a typed CRUD repository over one MongoDB collection.
//
// PT is the pointer type of T; it lets the repository create documents
// and reach their identity and timestamps.
type Collection[T any, PT interface {
	*T
	model.Document
}] struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewCollection returns a repository over coll.
func NewCollection[T any, PT interface {
	*T
	model.Document
}](coll *mongo.Collection) *Collection[T, PT] {
	return &Collection[T, PT]{coll: coll, now: time.Now}
}

func (r *Collection[T, PT]) wrap(err error) error {
	return dberr.Wrap(err, r.coll.Name())
}

// List returns a page of documents and the total count.
func (r *Collection[T, PT]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, r.wrap(err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(opts.Limit).
		SetSkip(opts.Skip)

	cursor, err := r.coll.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, 0, r.wrap(err)
	}

	items := make([]T, 0, opts.Limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, r.wrap(err)
	}
	return items, total, nil
}

// FindByID returns the document with id, or a wrapped mongo.ErrNoDocuments.
func (r *Collection[T, PT]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var doc T
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, r.wrap(err)
	}
	return &doc, nil
}

// Create assigns a new id and timestamps to doc and inserts it.
// A creation time sent by the client is ignored.
func (r *Collection[T, PT]) Create(ctx context.Context, doc *T) error {
	p := PT(doc)
	p.SetID(primitive.NewObjectID())
	p.SetCreatedAt(time.Time{})
	p.Touch(r.now())

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return r.wrap(err)
	}
	return nil
}

// Update replaces the document with id by doc, keeping the stored identity
// and creation time, and returns the stored result. Optional fields left
// out of doc are removed.
func (r *Collection[T, PT]) Update(ctx context.Context, id primitive.ObjectID, doc *T) (*T, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var updated T
	err = r.coll.FindOneAndReplace(ctx, bson.M{"_id": id}, r.replacement(doc, current), opts).Decode(&updated)
	if err != nil {
		return nil, r.wrap(err)
	}
	return &updated, nil
}

// replacement stamps doc with the identity and creation time of current.
func (r *Collection[T, PT]) replacement(doc, current *T) *T {
	p := PT(doc)
	p.SetID(PT(current).GetID())
	p.SetCreatedAt(PT(current).GetCreatedAt())
	p.Touch(r.now())
	return doc
}

// Delete removes the document with id, or returns a wrapped mongo.ErrNoDocuments.
func (r *Collection[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return r.wrap(err)
	}
	if res.DeletedCount == 0 {
		return r.wrap(mongo.ErrNoDocuments)
	}
	return nil
}
