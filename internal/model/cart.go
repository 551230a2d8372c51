package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CartsCollection = "carts"

// Cart is keyed by an id the client generates (a UUID) and keeps between visits.
type Cart struct {
	ID        string     `bson:"_id" json:"id"`
	Items     []CartItem `bson:"items" json:"items"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// CartItem snapshots the product name and price when it was added.
type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	UnitPrice int64              `bson:"unitPrice" json:"unitPrice"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Subtotal is UnitPrice * Quantity.
func (i CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Total sums every item's subtotal.
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// ItemCount is the number of units, not distinct products.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Find returns the index of productID in Items, or -1.
func (c *Cart) Find(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartView is the JSON returned for a cart, with derived totals.
type CartView struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	Total     int64      `json:"total"`
	ItemCount int        `json:"itemCount"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (c *Cart) View() CartView {
	items := c.Items
	if items == nil {
		items = []CartItem{}
	}
	return CartView{
		ID:        c.ID,
		Items:     items,
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
		UpdatedAt: c.UpdatedAt,
	}
}
