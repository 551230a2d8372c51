package repository

import (
	"context"

	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UploadRepository struct {
	coll *mongo.Collection
}

func NewUploadRepository(db *mongo.Database) *UploadRepository {
	return &UploadRepository{coll: db.Collection(model.UploadsCollection)}
}

// InsertMany records the metadata of freshly stored files, assigning ids.
func (r *UploadRepository) InsertMany(ctx context.Context, files []model.UploadedFile) error {
	if len(files) == 0 {
		return nil
	}

	docs := make([]any, len(files))
	for i := range files {
		files[i].ID = primitive.NewObjectID()
		docs[i] = files[i]
	}

	_, err := r.coll.InsertMany(ctx, docs)
	return dberr.Wrap(err, model.UploadsCollection)
}
