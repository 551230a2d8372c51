package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UploadsCollection = "uploads"

// UploadedFile records a file written to the upload directory. It is never updated.
type UploadedFile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	StoredName   string             `bson:"storedName" json:"storedName"`
	RelativePath string             `bson:"relativePath" json:"relativePath"`
	SizeBytes    int64              `bson:"sizeBytes" json:"sizeBytes"`
	ContentType  string             `bson:"contentType" json:"contentType"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
