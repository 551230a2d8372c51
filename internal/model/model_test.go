package model

import (
	"context"
	"testing"
	"time"

	"github.com/deppfellow/storefront/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCartTotals(t *testing.T) {
	cart := &Cart{
		ID: "c1",
		Items: []CartItem{
			{ProductID: primitive.NewObjectID(), UnitPrice: 1250, Quantity: 2},
			{ProductID: primitive.NewObjectID(), UnitPrice: 300, Quantity: 3},
		},
	}

	assert.Equal(t, int64(3400), cart.Total())
	assert.Equal(t, 5, cart.ItemCount())
	assert.Equal(t, 1, cart.Find(cart.Items[1].ProductID))
	assert.Equal(t, -1, cart.Find(primitive.NewObjectID()))
}

func TestEmptyCartViewHasItemsArray(t *testing.T) {
	view := (&Cart{ID: "c1"}).View()

	assert.NotNil(t, view.Items)
	assert.Zero(t, view.Total)
}

func TestBaseTouch(t *testing.T) {
	var b Base
	first := time.Unix(100, 0)
	later := time.Unix(200, 0)

	b.Touch(first)
	b.Touch(later)

	assert.Equal(t, first, b.CreatedAt)
	assert.Equal(t, later, b.UpdatedAt)
}

func TestBrandValidateSanitizes(t *testing.T) {
	b := &Brand{Name: "  Acme  ", Slug: " ACME-Type "}

	require.NoError(t, validation.Sanitize(context.Background(), b))
	require.NoError(t, b.Validate())
	assert.Equal(t, "Acme", b.Name)
	assert.Equal(t, "acme-type", b.Slug)
}

func TestProductValidateCollectsErrors(t *testing.T) {
	p := &Product{Price: -1, Currency: "euro"}

	err := p.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "price")
	assert.Contains(t, err.Error(), "currency")
}
