// Package gateway is the host-facing facade: it binds each browser session
// to its session machine and guest store, and exposes the session,
// authorization-gated and guest-mutator endpoints over HTTP.
package gateway

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/reconcile"
	"github.com/meridian-shop/meridian/internal/session"
	"github.com/meridian-shop/meridian/internal/shared"
)

// CookieName carries the browser session identifier.
const CookieName = "meridian_sid"

// Core bundles the per-browser session state machine with its guest store.
type Core struct {
	SessionID string
	Machine   *session.Machine
	Store     *gueststore.Store

	mu       sync.Mutex
	lastSeen time.Time
}

func (c *Core) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Core) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// RegistryConfig collects the collaborators every core shares.
type RegistryConfig struct {
	KV           gueststore.KV
	API          session.API
	Reconciler   session.Reconciler
	Retry        session.RetryEnqueuer
	Audit        *shared.AuditLogger
	Logger       *slog.Logger
	OnTransition func(from, to authz.Status)
	OnReconcile  func(summary reconcile.Summary)
	IdleTTL      time.Duration
	CookieSecure bool
}

// Registry lazily creates and caches one Core per browser session id. Cores
// idle past the TTL are swept so abandoned browsers don't pin memory; their
// guest blobs age out of Redis independently.
type Registry struct {
	mu    sync.Mutex
	cores map[string]*Core
	cfg   RegistryConfig
	now   func() time.Time
}

// NewRegistry constructs a Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 12 * time.Hour
	}
	return &Registry{
		cores: make(map[string]*Core),
		cfg:   cfg,
		now:   time.Now,
	}
}

func (reg *Registry) build(sid string) *Core {
	store := gueststore.New(reg.cfg.KV, sid)
	machine := session.NewMachine(session.Config{
		SessionID:    sid,
		API:          reg.cfg.API,
		Reconciler:   reg.cfg.Reconciler,
		Store:        store,
		Retry:        reg.cfg.Retry,
		Audit:        reg.cfg.Audit,
		Logger:       reg.cfg.Logger,
		OnTransition: reg.cfg.OnTransition,
		OnReconcile:  reg.cfg.OnReconcile,
	})
	return &Core{SessionID: sid, Machine: machine, Store: store, lastSeen: reg.now()}
}

// Resolve returns the core for the request's session cookie, issuing a fresh
// cookie when none is present.
func (reg *Registry) Resolve(w http.ResponseWriter, r *http.Request) *Core {
	sid := ""
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		sid = cookie.Value
	}
	if sid == "" {
		sid = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			Secure:   reg.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	core, ok := reg.cores[sid]
	if !ok {
		core = reg.build(sid)
		reg.cores[sid] = core
	}
	core.touch(reg.now())
	return core
}

// Sweep drops cores idle past the TTL. Called periodically by the server.
func (reg *Registry) Sweep() int {
	now := reg.now()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	removed := 0
	for sid, core := range reg.cores {
		if core.idleSince(now) > reg.cfg.IdleTTL {
			delete(reg.cores, sid)
			removed++
		}
	}
	return removed
}

// Len returns the number of live cores.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.cores)
}
