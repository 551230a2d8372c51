// Package model defines the documents stored in MongoDB and their JSON shape.
//
// Prices are integers in minor currency units (cents).
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the identity and timestamps shared by catalog documents.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b *Base) GetID() primitive.ObjectID {
	return b.ID
}

func (b *Base) SetID(id primitive.ObjectID) {
	b.ID = id
}

func (b *Base) GetCreatedAt() time.Time {
	return b.CreatedAt
}

func (b *Base) SetCreatedAt(t time.Time) {
	b.CreatedAt = t
}

// Touch stamps UpdatedAt, and CreatedAt on first call.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Document is implemented by pointers to every catalog model.
type Document interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	Touch(now time.Time)
	Validate() error
}
