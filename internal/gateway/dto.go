package gateway

import (
	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/reconcile"
)

// LoginRequest is the credential-submission payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AddCartLineRequest adds or tops up one guest cart line.
type AddCartLineRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	SizeID    *int64 `json:"size_id,omitempty"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// AddFavoriteRequest favorites a product, carrying the denormalized snapshot
// the favorites view renders from.
type AddFavoriteRequest struct {
	Product gueststore.ProductSnapshot `json:"product" validate:"required"`
}

// SessionResponse is the actor + status read exposed to the host app.
type SessionResponse struct {
	Status authz.Status `json:"status"`
	Actor  authz.Actor  `json:"actor"`
}

// SettlementResponse reports the outcome of a probe, login or logout,
// including the reconciliation summary when one ran.
type SettlementResponse struct {
	Status    authz.Status       `json:"status"`
	Actor     authz.Actor        `json:"actor"`
	Reconcile *reconcile.Summary `json:"reconcile,omitempty"`
}
