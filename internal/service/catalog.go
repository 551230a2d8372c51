package service

import (
	"context"

	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// CatalogStore is the persistence a CatalogService needs.
type CatalogStore[T any] interface {
	List(ctx context.Context, opts repository.ListOptions) ([]T, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*T, error)
	Create(ctx context.Context, doc *T) error
	Update(ctx context.Context, id primitive.ObjectID, doc *T) (*T, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Limit int64 `json:"limit"`
	Skip  int64 `json:"skip"`
}

// CatalogService serves CRUD for one catalog entity.
type CatalogService[T any] struct {
	store      CatalogStore[T]
	collection string
}

func NewCatalogService[T any](store CatalogStore[T], collection string) *CatalogService[T] {
	return &CatalogService[T]{store: store, collection: collection}
}

// ParseID turns a hex id from the URL into an ObjectID. An invalid id is
// a dberr.InvalidID error tagged with the collection.
func (s *CatalogService[T]) ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, dberr.Wrap(err, s.collection)
	}
	return id, nil
}

// List clamps limit to [1, MaxPageLimit] (0 means DefaultPageLimit) and skip to >= 0.
func (s *CatalogService[T]) List(ctx context.Context, limit, skip int64) (*Page[T], error) {
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	if skip < 0 {
		skip = 0
	}

	items, total, err := s.store.List(ctx, repository.ListOptions{Limit: limit, Skip: skip})
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Total: total, Limit: limit, Skip: skip}, nil
}

func (s *CatalogService[T]) Get(ctx context.Context, hexID string) (*T, error) {
	id, err := s.ParseID(hexID)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

func (s *CatalogService[T]) Create(ctx context.Context, doc *T) (*T, error) {
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *CatalogService[T]) Update(ctx context.Context, hexID string, doc *T) (*T, error) {
	id, err := s.ParseID(hexID)
	if err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, doc)
}

func (s *CatalogService[T]) Delete(ctx context.Context, hexID string) error {
	id, err := s.ParseID(hexID)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
