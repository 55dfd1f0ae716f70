package coupon

import "time"

// Coupon entitles a cart to a fixed discount inside [StartDate, EndDate].
// Codes are stored uppercase and trimmed; the repository normalizes lookups
// the same way.
type Coupon struct {
	ID        string    `bson:"_id,omitempty"`
	Code      string    `bson:"code"`
	Name      string    `bson:"name"`
	Discount  float64   `bson:"discount"`
	StartDate time.Time `bson:"start_date"`
	EndDate   time.Time `bson:"end_date"`
}
