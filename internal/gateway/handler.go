package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/platform/httpx"
	"github.com/meridian-shop/meridian/internal/remote"
	"github.com/meridian-shop/meridian/internal/shared"
)

// Handler exposes the subsystem to the host application: session settlement
// endpoints, guest cart/favorite mutators, and the gated admin surface.
type Handler struct {
	logger    *slog.Logger
	engine    *authz.Engine
	guard     Guard
	validator *validator.Validate
	metrics   http.Handler
}

// NewHandler constructs a Handler. metricsHandler serves the gated
// /admin/metrics endpoint and may be nil.
func NewHandler(logger *slog.Logger, engine *authz.Engine, metricsHandler http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		engine:    engine,
		guard:     Guard{Engine: engine, Logger: logger},
		validator: validator.New(),
		metrics:   metricsHandler,
	}
}

// MountRoutes registers the facade routes. The caller has already installed
// SessionMiddleware on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/session", h.ShowSession)
	r.Post("/session/probe", h.Probe)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/session/login", h.Login)
	})
	r.Post("/session/logout", h.Logout)
	r.Post("/session/reconcile", h.RetryReconcile)

	r.Get("/cart", h.ShowCart)
	r.Post("/cart/items", h.AddCartLine)
	r.Delete("/cart/items/{productID}", h.RemoveCartLine)

	r.Get("/favorites", h.ShowFavorites)
	r.Post("/favorites", h.AddFavorite)
	r.Delete("/favorites/{productID}", h.RemoveFavorite)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoute(authz.RouteAdminDashboard))
		r.Get("/admin/dashboard", h.ShowDashboard)
		if h.metrics != nil {
			r.Handle("/admin/metrics", h.metrics)
		}
	})
}

// respondErr maps the subsystem's error taxonomy onto problem responses.
func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", "email or password is not valid")
	case errors.Is(err, shared.ErrSessionBusy):
		httpx.Problem(w, http.StatusConflict, "Session Busy", "another sign-in attempt is already in flight")
	case errors.Is(err, shared.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", err.Error())
	case errors.Is(err, shared.ErrGuestOnly):
		httpx.Problem(w, http.StatusConflict, "Guest Only", "guest cart and favorites are unavailable while signed in or while a sign-in is settling")
	case errors.Is(err, shared.ErrNoSession):
		httpx.Problem(w, http.StatusUnauthorized, "No Session", "sign in first")
	case shared.IsTransport(err):
		httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "the account service did not respond; try again")
	default:
		h.logger.Error("gateway failure", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// ShowSession returns the current actor and status.
func (h *Handler) ShowSession(w http.ResponseWriter, r *http.Request) {
	core := coreFromContext(r.Context())
	actor := core.Machine.Actor()
	httpx.JSON(w, http.StatusOK, SessionResponse{Status: actor.Status, Actor: actor})
}

// Probe runs a session probe against the system of record.
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	core := coreFromContext(r.Context())
	actor, summary, err := core.Machine.Probe(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SettlementResponse{Status: actor.Status, Actor: actor, Reconcile: summary})
}

// Login submits credentials.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}
	core := coreFromContext(r.Context())
	actor, summary, err := core.Machine.SubmitCredentials(r.Context(), remote.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SettlementResponse{Status: actor.Status, Actor: actor, Reconcile: summary})
}

// Logout signs the actor out and clears guest state.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	core := coreFromContext(r.Context())
	if err := core.Machine.SignOut(r.Context()); err != nil {
		h.respondErr(w, err)
		return
	}
	actor := core.Machine.Actor()
	httpx.JSON(w, http.StatusOK, SettlementResponse{Status: actor.Status, Actor: actor})
}

// RetryReconcile re-merges residual guest data after a partial
// reconciliation.
func (h *Handler) RetryReconcile(w http.ResponseWriter, r *http.Request) {
	core := coreFromContext(r.Context())
	summary, err := core.Machine.RetryReconcile(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	actor := core.Machine.Actor()
	httpx.JSON(w, http.StatusOK, SettlementResponse{Status: actor.Status, Actor: actor, Reconcile: summary})
}

// guestCore returns the request's core when the actor may mutate guest
// state. Guest mutators are unavailable once authenticated, when the
// server-side cart is the system of record, and while a settlement is in
// flight: a mutation racing the reconciler could land between its read and
// its clear and be lost.
func (h *Handler) guestCore(w http.ResponseWriter, r *http.Request) *Core {
	core := coreFromContext(r.Context())
	switch core.Machine.Status() {
	case authz.StatusAuthenticated, authz.StatusAuthenticating:
		h.respondErr(w, shared.ErrGuestOnly)
		return nil
	}
	return core
}

// ShowCart returns the guest cart snapshot.
func (h *Handler) ShowCart(w http.ResponseWriter, r *http.Request) {
	core := h.guestCore(w, r)
	if core == nil {
		return
	}
	snap, err := core.Store.ReadAll(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cart_lines": snap.CartLines})
}

// AddCartLine upserts a guest cart line.
func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	core := h.guestCore(w, r)
	if core == nil {
		return
	}
	var req AddCartLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id and quantity are required")
		return
	}
	if err := core.Store.AddCartLine(r.Context(), req.ProductID, req.SizeID, req.Quantity); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveCartLine removes a guest cart line; absence is a no-op.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	core := h.guestCore(w, r)
	if core == nil {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "product id must be an integer")
		return
	}
	var sizeID *int64
	if raw := r.URL.Query().Get("size_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "size id must be an integer")
			return
		}
		sizeID = &id
	}
	if err := core.Store.RemoveCartLine(r.Context(), productID, sizeID); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShowFavorites returns the guest favorites.
func (h *Handler) ShowFavorites(w http.ResponseWriter, r *http.Request) {
	core := h.guestCore(w, r)
	if core == nil {
		return
	}
	snap, err := core.Store.ReadAll(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"favorites": snap.Favorites})
}

// AddFavorite favorites a product for the guest.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	core := h.guestCore(w, r)
	if core == nil {
		return
	}
	var req AddFavoriteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "body must be valid JSON")
		return
	}
	if req.Product.ID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product.id is required")
		return
	}
	if err := core.Store.AddFavorite(r.Context(), req.Product); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite unfavorites a product; absence is a no-op.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	core := h.guestCore(w, r)
	if core == nil {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "product id must be an integer")
		return
	}
	if err := core.Store.RemoveFavorite(r.Context(), productID); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShowDashboard is the gated admin landing payload.
func (h *Handler) ShowDashboard(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":        actor.Status,
		"can_manage":    h.engine.CanManage(actor, authz.ResourceProducts),
		"can_view_logs": h.engine.CanAccessRoute(actor, authz.RouteAdminAuditLogs),
	})
}
