// Package jobs holds the background task definitions and the Asynq worker
// bootstrap. Its single concern is retrying the migration of residual guest
// data after a partial reconciliation at sign-in.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/reconcile"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReconcileRetry re-merges residual guest data left behind by a
	// partial reconciliation.
	TaskTypeReconcileRetry = "reconcile:retry"
)

// ReconcileRetryPayload identifies the guest session and actor to re-merge.
type ReconcileRetryPayload struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ActorID   int64  `json:"actor_id"`
}

// NewReconcileRetryTask constructs an Asynq task.
func NewReconcileRetryTask(payload ReconcileRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReconcileRetry, data), nil
}

// Enqueuer schedules reconcile retries on the default queue.
type Enqueuer struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(client *asynq.Client, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{client: client, logger: logger}
}

// EnqueueRetry schedules a re-merge shortly after the partial failure; Asynq
// applies its own backoff on subsequent failures.
func (e *Enqueuer) EnqueueRetry(ctx context.Context, sessionID, token string, actorID int64) error {
	task, err := NewReconcileRetryTask(ReconcileRetryPayload{
		SessionID: sessionID,
		Token:     token,
		ActorID:   actorID,
	})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.ProcessIn(time.Minute),
	)
	return err
}

// ReconcileRetryHandler processes TaskTypeReconcileRetry tasks in the worker
// process. It rebuilds the guest store for the session and re-runs the
// merge; items that fail again stay in the store for the next attempt.
type ReconcileRetryHandler struct {
	kv      gueststore.KV
	service *reconcile.Service
	logger  *slog.Logger
}

// NewReconcileRetryHandler constructs the handler.
func NewReconcileRetryHandler(kv gueststore.KV, service *reconcile.Service, logger *slog.Logger) *ReconcileRetryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileRetryHandler{kv: kv, service: service, logger: logger}
}

// Handle runs one retry attempt.
func (h *ReconcileRetryHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReconcileRetryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	store := gueststore.New(h.kv, payload.SessionID)
	summary, err := h.service.Merge(ctx, payload.Token, payload.ActorID, store)
	if err != nil {
		return err
	}
	if summary.Partial() {
		h.logger.Warn("reconcile retry still partial",
			slog.String("session_id", payload.SessionID),
			slog.Int("failed", summary.Failed()))
		// Returning an error hands the remaining items to Asynq's backoff.
		return errAttemptIncomplete
	}
	h.logger.Info("reconcile retry complete",
		slog.String("session_id", payload.SessionID),
		slog.Int("cart_submitted", summary.CartSubmitted),
		slog.Int("favorites_submitted", summary.FavoritesSubmitted))
	return nil
}

var errAttemptIncomplete = &incompleteError{}

type incompleteError struct{}

func (*incompleteError) Error() string { return "reconcile retry left residual guest data" }
