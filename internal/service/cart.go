package service

import (
	"context"

	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxItemQuantity caps the units of one product in a cart.
const MaxItemQuantity = 99

type CartStore interface {
	Get(ctx context.Context, id string) (*model.Cart, error)
	Save(ctx context.Context, cart *model.Cart) error
	Delete(ctx context.Context, id string) error
}

type ProductLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
}

type CartService struct {
	carts    CartStore
	products ProductLookup
}

func NewCartService(carts CartStore, products ProductLookup) *CartService {
	return &CartService{carts: carts, products: products}
}

// Get returns the cart. A cart that was never saved is returned empty.
func (s *CartService) Get(ctx context.Context, cartID string) (model.CartView, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return model.CartView{}, err
	}
	return cart.View(), nil
}

// AddItem adds quantity units of a product, merging with an existing line.
// The name and unit price are snapshotted from the product.
func (s *CartService) AddItem(ctx context.Context, cartID, productHex string, quantity int) (model.CartView, error) {
	productID, err := parseProductID(productHex)
	if err != nil {
		return model.CartView{}, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return model.CartView{}, err
	}

	cart, err := s.load(ctx, cartID)
	if err != nil {
		return model.CartView{}, err
	}

	if i := cart.Find(productID); i >= 0 {
		quantity += cart.Items[i].Quantity
		if quantity > MaxItemQuantity {
			return model.CartView{}, tooManyUnits()
		}
		cart.Items[i].Quantity = quantity
		cart.Items[i].Name = product.Name
		cart.Items[i].UnitPrice = product.Price
	} else {
		if quantity > MaxItemQuantity {
			return model.CartView{}, tooManyUnits()
		}
		cart.Items = append(cart.Items, model.CartItem{
			ProductID: productID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
		})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return model.CartView{}, err
	}
	return cart.View(), nil
}

// UpdateItem sets the quantity of a line; zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, cartID, productHex string, quantity int) (model.CartView, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, cartID, productHex)
	}

	cart, i, err := s.findItem(ctx, cartID, productHex)
	if err != nil {
		return model.CartView{}, err
	}

	cart.Items[i].Quantity = quantity
	if err := s.carts.Save(ctx, cart); err != nil {
		return model.CartView{}, err
	}
	return cart.View(), nil
}

// RemoveItem drops a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productHex string) (model.CartView, error) {
	cart, i, err := s.findItem(ctx, cartID, productHex)
	if err != nil {
		return model.CartView{}, err
	}

	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	if err := s.carts.Save(ctx, cart); err != nil {
		return model.CartView{}, err
	}
	return cart.View(), nil
}

// Clear deletes the cart.
func (s *CartService) Clear(ctx context.Context, cartID string) error {
	return s.carts.Delete(ctx, cartID)
}

func (s *CartService) load(ctx context.Context, cartID string) (*model.Cart, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if dberr.ErrCode(err) == dberr.NotFound {
		return &model.Cart{ID: cartID, Items: []model.CartItem{}}, nil
	}
	return cart, err
}

func (s *CartService) findItem(ctx context.Context, cartID, productHex string) (*model.Cart, int, error) {
	productID, err := parseProductID(productHex)
	if err != nil {
		return nil, 0, err
	}

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, 0, err
	}

	i := cart.Find(productID)
	if i < 0 {
		code := "CART_ITEM_NOT_FOUND"
		return nil, 0, errs.NewNotFoundError("Cart item not found", &code)
	}
	return cart, i, nil
}

func parseProductID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, dberr.Wrap(err, model.ProductsCollection)
	}
	return id, nil
}

func tooManyUnits() error {
	code := "CART_QUANTITY_EXCEEDED"
	return errs.NewBadRequestError("A cart line cannot hold more than 99 units", &code, nil)
}
