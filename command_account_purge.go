package trust

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type PurgeAccountMessage struct {
	UserID string `json:"user_id" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Identifier of the account being deleted"`
}

// PurgeAccountHandler removes every emergency access record tied to a
// deleted account, on both sides of the grant. Each record's delete is
// retried per policy; a record that keeps failing is skipped, not allowed
// to abort the purge of the rest.
type PurgeAccountHandler struct {
	repo     RepositoryManager
	retry    RetryPolicy
	activity ActivitySink
	logger   Logger
}

// NewPurgeAccountHandler creates a handler with sane defaults.
func NewPurgeAccountHandler(repo RepositoryManager) *PurgeAccountHandler {
	return &PurgeAccountHandler{
		repo:     repo,
		retry:    DefaultPurgeRetryPolicy,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithRetryPolicy overrides the per-record retry policy.
func (h *PurgeAccountHandler) WithRetryPolicy(policy RetryPolicy) *PurgeAccountHandler {
	h.retry = policy
	return h
}

// WithActivitySink sets the sink used to emit revocation events.
func (h *PurgeAccountHandler) WithActivitySink(sink ActivitySink) *PurgeAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *PurgeAccountHandler) WithLogger(logger Logger) *PurgeAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *PurgeAccountHandler) Execute(ctx context.Context, event PurgeAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account purge",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PurgeAccountHandler) execute(ctx context.Context, event PurgeAccountMessage) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user identifier").
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	granted, err := h.repo.EmergencyAccesses().FindAllByGrantor(ctx, userID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list granted records")
	}

	received, err := h.repo.EmergencyAccesses().FindAllByGrantee(ctx, userID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list received records")
	}

	var failed int
	for _, record := range append(granted, received...) {
		record := record
		err := h.retry.Do(ctx, func(ctx context.Context) error {
			return h.repo.EmergencyAccesses().DeleteRecord(ctx, record)
		})
		if err != nil {
			failed++
			h.logger.Error("account purge: could not delete record %s: %v", record.ID, err)
			continue
		}

		if aerr := h.activity.Record(ctx, ActivityEvent{
			EventType:  ActivityEventAccessRevoked,
			Actor:      ActorRef{ID: event.UserID, Type: "system"},
			RecordID:   record.ID.String(),
			GrantorID:  record.GrantorID.String(),
			FromStatus: record.Status,
			Metadata: map[string]any{
				"reason": "account deleted",
			},
		}); aerr != nil {
			h.logger.Warn("account purge activity sink error: %v", aerr)
		}
	}

	if failed > 0 {
		return goerrors.New("account purge completed with failures", goerrors.CategoryOperation).
			WithTextCode("PURGE_PARTIAL_FAILURE").
			WithMetadata(map[string]any{
				"user_id": event.UserID,
				"failed":  failed,
			})
	}

	return nil
}
