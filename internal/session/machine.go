// Package session owns the actor's authentication status and drives the
// anonymous → authenticating → guest | authenticated lifecycle. The machine
// is the only writer of the actor record; every other component reads it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/reconcile"
	"github.com/meridian-shop/meridian/internal/remote"
	"github.com/meridian-shop/meridian/internal/shared"
)

// API is the slice of the system of record the machine drives.
type API interface {
	Probe(ctx context.Context, token string) (*remote.Profile, error)
	Login(ctx context.Context, creds remote.Credentials) (*remote.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Reconciler merges guest state into the authenticated actor's server-side
// cart and favorites.
type Reconciler interface {
	Merge(ctx context.Context, token string, actorID int64, store *gueststore.Store) (reconcile.Summary, error)
}

// RetryEnqueuer schedules a background re-merge of residual guest data after
// a partial reconciliation.
type RetryEnqueuer interface {
	EnqueueRetry(ctx context.Context, sessionID, token string, actorID int64) error
}

// Config collects the machine's collaborators. Audit, Retry and OnTransition
// are optional.
type Config struct {
	SessionID    string
	API          API
	Reconciler   Reconciler
	Store        *gueststore.Store
	Retry        RetryEnqueuer
	Audit        *shared.AuditLogger
	Logger       *slog.Logger
	OnTransition func(from, to authz.Status)
	OnReconcile  func(summary reconcile.Summary)
}

// Machine serializes session transitions for one browser session. A single
// probe or credential submission may be in flight at a time; a concurrent
// attempt is rejected synchronously with shared.ErrSessionBusy and leaves
// the actor untouched.
type Machine struct {
	mu       sync.Mutex
	inflight bool

	sessionID   string
	actor       authz.Actor
	token       string
	api         API
	reconciler  Reconciler
	store       *gueststore.Store
	retry       RetryEnqueuer
	audit       *shared.AuditLogger
	logger      *slog.Logger
	onChange    func(from, to authz.Status)
	onReconcile func(summary reconcile.Summary)
}

// NewMachine constructs a machine in the Anonymous state.
func NewMachine(cfg Config) *Machine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		sessionID:   cfg.SessionID,
		actor:       authz.Anonymous(authz.StatusAnonymous),
		api:         cfg.API,
		reconciler:  cfg.Reconciler,
		store:       cfg.Store,
		retry:       cfg.Retry,
		audit:       cfg.Audit,
		logger:      logger,
		onChange:    cfg.OnTransition,
		onReconcile: cfg.OnReconcile,
	}
}

// Actor returns a copy of the current actor.
func (m *Machine) Actor() authz.Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actor
}

// Status returns the current session status.
func (m *Machine) Status() authz.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actor.Status
}

// Store exposes the guest store bound to this session.
func (m *Machine) Store() *gueststore.Store {
	return m.store
}

// Token returns the current bearer token, empty unless authenticated.
func (m *Machine) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Machine) transitionLocked(to authz.Status) {
	from := m.actor.Status
	if from == to {
		return
	}
	m.actor.Status = to
	if m.onChange != nil {
		m.onChange(from, to)
	}
}

// begin claims the single in-flight slot and enters Authenticating.
func (m *Machine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight {
		return shared.ErrSessionBusy
	}
	m.inflight = true
	m.transitionLocked(authz.StatusAuthenticating)
	return nil
}

// Probe asks the system of record for an existing session. "No session" is
// an expected outcome and lands in Guest; a transport fault lands back in
// Anonymous so the caller may re-probe.
func (m *Machine) Probe(ctx context.Context) (authz.Actor, *reconcile.Summary, error) {
	if err := m.begin(); err != nil {
		return m.Actor(), nil, err
	}
	profile, err := m.api.Probe(ctx, m.Token())
	if err != nil {
		return m.settleFailure(ctx, err)
	}
	return m.settleAuthenticated(ctx, profile, m.Token(), shared.AuditProbe)
}

// SubmitCredentials performs a login. Success populates the actor and runs
// reconciliation before the Authenticated transition becomes observable;
// rejection lands in Guest with the reason surfaced to the caller.
func (m *Machine) SubmitCredentials(ctx context.Context, creds remote.Credentials) (authz.Actor, *reconcile.Summary, error) {
	if err := m.begin(); err != nil {
		return m.Actor(), nil, err
	}
	result, err := m.api.Login(ctx, creds)
	if err != nil {
		return m.settleFailure(ctx, err)
	}
	return m.settleAuthenticated(ctx, &result.Profile, result.Token, shared.AuditSignIn)
}

// settleFailure maps a probe/login error to its terminal state.
func (m *Machine) settleFailure(ctx context.Context, err error) (authz.Actor, *reconcile.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = false
	m.token = ""
	m.actor = authz.Anonymous(m.actor.Status)
	switch {
	case errors.Is(err, shared.ErrNoSession):
		// Checked, not logged in: distinguishable from "never checked".
		m.transitionLocked(authz.StatusGuest)
		return m.actor, nil, nil
	case errors.Is(err, shared.ErrInvalidCredentials):
		m.transitionLocked(authz.StatusGuest)
		return m.actor, nil, err
	default:
		m.transitionLocked(authz.StatusAnonymous)
		return m.actor, nil, err
	}
}

// settleAuthenticated reconciles guest state and then publishes the
// Authenticated actor. Consumers never observe Authenticated alongside
// unreconciled guest data.
func (m *Machine) settleAuthenticated(ctx context.Context, profile *remote.Profile, token, auditAction string) (authz.Actor, *reconcile.Summary, error) {
	summary, err := m.reconciler.Merge(ctx, token, profile.Identity.ID, m.store)
	if err != nil {
		// The guest store is left intact and sign-in itself still completes;
		// the unfinished merge is surfaced to the caller and retried.
		m.logger.Warn("reconcile failed", slog.Any("error", err))
		summary.Deferred = true
	}
	if m.onReconcile != nil {
		m.onReconcile(summary)
	}

	m.mu.Lock()
	identity := profile.Identity
	m.actor = authz.Actor{
		Status:       m.actor.Status,
		Identity:     &identity,
		Roles:        append([]string(nil), profile.Roles...),
		Permissions:  append([]string(nil), profile.Permissions...),
		Subscription: profile.Subscription,
	}
	m.token = token
	m.transitionLocked(authz.StatusAuthenticated)
	m.inflight = false
	actor := m.actor
	m.mu.Unlock()

	m.recordAudit(ctx, identity.ID, auditAction, map[string]any{"email": identity.Email})
	if summary.Partial() || summary.Deferred {
		m.recordAudit(ctx, identity.ID, shared.AuditReconcilePartial, summaryMeta(summary))
		if m.retry != nil {
			if err := m.retry.EnqueueRetry(ctx, m.sessionID, token, identity.ID); err != nil {
				m.logger.Warn("enqueue reconcile retry", slog.Any("error", err))
			}
		}
	} else if summary.CartSubmitted+summary.FavoritesSubmitted+summary.FavoritesDuplicate > 0 {
		m.recordAudit(ctx, identity.ID, shared.AuditReconcileComplete, summaryMeta(summary))
	}
	return actor, &summary, nil
}

// RetryReconcile re-merges residual guest data while authenticated, e.g.
// after a partial reconciliation at sign-in.
func (m *Machine) RetryReconcile(ctx context.Context) (*reconcile.Summary, error) {
	m.mu.Lock()
	if m.actor.Status != authz.StatusAuthenticated || m.actor.Identity == nil {
		m.mu.Unlock()
		return nil, shared.ErrNoSession
	}
	token := m.token
	actorID := m.actor.Identity.ID
	m.mu.Unlock()

	summary, err := m.reconciler.Merge(ctx, token, actorID, m.store)
	if err != nil {
		return nil, err
	}
	if m.onReconcile != nil {
		m.onReconcile(summary)
	}
	return &summary, nil
}

// SignOut clears identity, roles, permissions and the guest store. A fresh
// guest session must not inherit the previous actor's leftovers, in either
// direction. The remote logout is fire-and-forget.
func (m *Machine) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.inflight {
		m.mu.Unlock()
		return shared.ErrSessionBusy
	}
	token := m.token
	var actorID int64
	if m.actor.Identity != nil {
		actorID = m.actor.Identity.ID
	}
	m.token = ""
	m.actor = authz.Anonymous(m.actor.Status)
	m.transitionLocked(authz.StatusGuest)
	m.mu.Unlock()

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.logger.Warn("remote logout", slog.Any("error", err))
		}
	}
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.recordAudit(ctx, actorID, shared.AuditSignOut, nil)
	return nil
}

func (m *Machine) recordAudit(ctx context.Context, actorID int64, action string, meta map[string]any) {
	if err := m.audit.Record(ctx, shared.AuditEntry{
		SessionID: m.sessionID,
		ActorID:   actorID,
		Action:    action,
		Meta:      meta,
	}); err != nil {
		m.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func summaryMeta(s reconcile.Summary) map[string]any {
	return map[string]any{
		"cart_submitted":      s.CartSubmitted,
		"cart_failed":         s.CartFailed,
		"favorites_submitted": s.FavoritesSubmitted,
		"favorites_duplicate": s.FavoritesDuplicate,
		"favorites_failed":    s.FavoritesFailed,
		"deferred":            s.Deferred,
	}
}
