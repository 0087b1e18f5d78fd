package gueststore

import "time"

// ProductSnapshot is the denormalized product record carried by a favorite
// so the favorites view renders without a catalog fetch.
type ProductSnapshot struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
	StoreID  int64   `json:"store_id,omitempty"`
}

// CartLine is one guest cart entry. Uniqueness key is (ProductID, SizeID).
type CartLine struct {
	ProductID int64  `json:"product_id"`
	SizeID    *int64 `json:"size_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// SameKey reports whether two lines share the upsert key.
func (l CartLine) SameKey(productID int64, sizeID *int64) bool {
	if l.ProductID != productID {
		return false
	}
	if l.SizeID == nil || sizeID == nil {
		return l.SizeID == nil && sizeID == nil
	}
	return *l.SizeID == *sizeID
}

// Favorite is one guest favorite, keyed by product id.
type Favorite struct {
	ProductID int64           `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
	AddedAt   time.Time       `json:"added_at"`
}

// Snapshot is the full guest state blob persisted under the store key.
type Snapshot struct {
	CartLines []CartLine `json:"cart_lines"`
	Favorites []Favorite `json:"favorites"`
}

// Empty reports whether both collections are empty.
func (s Snapshot) Empty() bool {
	return len(s.CartLines) == 0 && len(s.Favorites) == 0
}
