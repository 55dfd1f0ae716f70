package cart

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	UserID    string     `bson:"user_id" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// CartItem is uniquely keyed by (ProductID, ProductType) within a cart.
// The same product id can appear once per type (e.g. "dumps" and "video"
// variants of the same exam).
type CartItem struct {
	ProductID   string    `bson:"product_id" json:"id"`
	ProductType string    `bson:"product_type" json:"type"`
	Title       string    `bson:"title" json:"title"`
	Price       float64   `bson:"price" json:"price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	ImageURL    string    `bson:"image_url" json:"imageUrl"`
	AddedAt     time.Time `bson:"added_at" json:"-"`
}
