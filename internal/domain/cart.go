package domain

import "github.com/shopspring/decimal"

// Cart is a user's mutable pre-order selection. Placement consumes it by
// clearing its lines in the same transaction that writes the order; the cart
// row itself survives.
type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

type CartItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"image_url,omitempty"`
}
