package cart

import (
	"context"
	"errors"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*Cart, error)
	UpsertCart(ctx context.Context, cart *Cart) error
	AddItem(ctx context.Context, userID string, item CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, productID, productType string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID, productType string) error
	DeleteCart(ctx context.Context, userID string) error
}
