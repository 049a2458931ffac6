package trust

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	textCodeInvalidTransition = "INVALID_EMERGENCY_ACCESS_TRANSITION"
	textCodeInvalidInvite     = "INVALID_EMERGENCY_ACCESS_INVITE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid emergency access transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidInvite is returned when an invite request fails validation.
var ErrInvalidInvite = goerrors.New("invalid emergency access invite", goerrors.CategoryBadInput).
	WithTextCode(textCodeInvalidInvite).
	WithCode(goerrors.CodeBadRequest)

// InviteRequest carries the grantor's invite parameters.
type InviteRequest struct {
	GrantorID    uuid.UUID
	Email        string
	Type         EmergencyAccessType
	WaitTimeDays int
}

func (r InviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.WaitTimeDays, validation.Required, validation.Min(1)),
		validation.Field(&r.Type, validation.In(EmergencyAccessView, EmergencyAccessTakeover)),
	)
}

// EmergencyAccessStateMachine drives delegation records through their
// lifecycle. User actions move the record forward one status at a time;
// the time-gated tail (timeout approval, reminders) is exposed for the
// scheduler.
type EmergencyAccessStateMachine interface {
	Invite(ctx context.Context, actor ActorRef, req InviteRequest) (*EmergencyAccess, error)
	Accept(ctx context.Context, actor ActorRef, record *EmergencyAccess, granteeID uuid.UUID) (*EmergencyAccess, error)
	Confirm(ctx context.Context, actor ActorRef, record *EmergencyAccess, keyEncrypted string) (*EmergencyAccess, error)
	InitiateRecovery(ctx context.Context, actor ActorRef, record *EmergencyAccess) (*EmergencyAccess, error)
	ApproveRecovery(ctx context.Context, actor ActorRef, record *EmergencyAccess) (*EmergencyAccess, error)
	RejectRecovery(ctx context.Context, actor ActorRef, record *EmergencyAccess) (*EmergencyAccess, error)
	Revoke(ctx context.Context, actor ActorRef, record *EmergencyAccess) error

	// ApproveTimedOut applies the timeout rule: when the waiting period has
	// elapsed the record advances to RecoveryApproved and both parties are
	// notified. Returns true only when this call performed the transition.
	ApproveTimedOut(ctx context.Context, record *EmergencyAccess) (bool, error)
	// SendReminderIfDue applies the reminder rule: at most one reminder per
	// 24h window, and only once the waiting period is about to lapse.
	// Returns true when a reminder was stamped and dispatched.
	SendReminderIfDue(ctx context.Context, record *EmergencyAccess) (bool, error)

	CurrentStatus(record *EmergencyAccess) EmergencyAccessStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accessStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accessStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accessStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink and mail failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accessStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewEmergencyAccessStateMachine returns the default implementation backed
// by the provided repositories and mailer.
func NewEmergencyAccessStateMachine(repo RepositoryManager, mailer Mailer, opts ...StateMachineOption) EmergencyAccessStateMachine {
	sm := &accessStateMachine{
		repo:   repo,
		mailer: normalizeMailer(mailer),
		transitions: map[EmergencyAccessStatus]map[EmergencyAccessStatus]struct{}{
			EmergencyAccessInvited: {
				EmergencyAccessAccepted: {},
			},
			EmergencyAccessAccepted: {
				EmergencyAccessConfirmed: {},
			},
			EmergencyAccessConfirmed: {
				EmergencyAccessRecoveryInitiated: {},
			},
			EmergencyAccessRecoveryInitiated: {
				EmergencyAccessRecoveryApproved: {},
				EmergencyAccessConfirmed:        {},
			},
			EmergencyAccessRecoveryApproved: {
				EmergencyAccessConfirmed: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accessStateMachine struct {
	repo         RepositoryManager
	mailer       Mailer
	transitions  map[EmergencyAccessStatus]map[EmergencyAccessStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

func (sm *accessStateMachine) Invite(ctx context.Context, actor ActorRef, req InviteRequest) (*EmergencyAccess, error) {
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidInvite.WithMetadata(map[string]any{
			"validation": err.Error(),
		})
	}

	record := NewEmergencyAccess(req.GrantorID, req.Email, req.Type, req.WaitTimeDays)
	record.CreatedAt = sm.now()
	record.UpdatedAt = record.CreatedAt

	if err := sm.repo.EmergencyAccesses().Save(ctx, record); err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccessInvited,
		Actor:     actor,
		RecordID:  record.ID.String(),
		GrantorID: record.GrantorID.String(),
		ToStatus:  EmergencyAccessInvited,
		Metadata: map[string]any{
			"email": req.Email,
			"type":  req.Type.String(),
		},
	})

	return record, nil
}

// Accept binds the grantee to the record. The invite email stays on the
// record for auditing until confirmation.
func (sm *accessStateMachine) Accept(ctx context.Context, actor ActorRef, record *EmergencyAccess, granteeID uuid.UUID) (*EmergencyAccess, error) {
	if err := sm.guard(record, EmergencyAccessAccepted); err != nil {
		return nil, err
	}

	from := record.Status
	record.GranteeID = &granteeID
	record.Status = EmergencyAccessAccepted

	if err := sm.repo.EmergencyAccesses().Save(ctx, record); err != nil {
		return nil, err
	}

	sm.recordTransition(ctx, ActivityEventAccessAccepted, actor, record, from)
	return record, nil
}

// Confirm stores the key the grantor encrypted for the grantee and settles
// the record in Confirmed, the resting state.
func (sm *accessStateMachine) Confirm(ctx context.Context, actor ActorRef, record *EmergencyAccess, keyEncrypted string) (*EmergencyAccess, error) {
	if err := sm.guard(record, EmergencyAccessConfirmed); err != nil {
		return nil, err
	}

	from := record.Status
	record.KeyEncrypted = &keyEncrypted
	record.Email = nil
	record.Status = EmergencyAccessConfirmed

	if err := sm.repo.EmergencyAccesses().Save(ctx, record); err != nil {
		return nil, err
	}

	sm.recordTransition(ctx, ActivityEventAccessConfirmed, actor, record, from)
	return record, nil
}

func (sm *accessStateMachine) InitiateRecovery(ctx context.Context, actor ActorRef, record *EmergencyAccess) (*EmergencyAccess, error) {
	if err := sm.guard(record, EmergencyAccessRecoveryInitiated); err != nil {
		return nil, err
	}

	from := record.Status
	now := sm.now()
	record.Status = EmergencyAccessRecoveryInitiated
	record.RecoveryInitiatedAt = &now
	record.LastNotificationAt = nil

	if err := sm.repo.EmergencyAccesses().Save(ctx, record); err != nil {
		return nil, err
	}

	sm.recordTransition(ctx, ActivityEventRecoveryInitiated, actor, record, from)
	return record, nil
}

// ApproveRecovery is the grantor waiving the remaining waiting period. The
// write is conditional on the record still being in RecoveryInitiated so a
// concurrent scheduler approval cannot double-apply.
func (sm *accessStateMachine) ApproveRecovery(ctx context.Context, actor ActorRef, record *EmergencyAccess) (*EmergencyAccess, error) {
	if err := sm.guard(record, EmergencyAccessRecoveryApproved); err != nil {
		return nil, err
	}

	from := record.Status
	applied, err := sm.repo.EmergencyAccesses().UpdateStatusIf(ctx, record, from, EmergencyAccessRecoveryApproved)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"id":     record.ID.String(),
			"reason": "record changed concurrently",
		})
	}
	record.Status = EmergencyAccessRecoveryApproved

	if grantor, grantee, lerr := sm.parties(ctx, record); lerr != nil {
		sm.logger.Warn("approve recovery: could not load parties for notification: %v", lerr)
	} else if merr := sm.mailer.SendRecoveryApproved(ctx, grantee.Email, grantor.Name); merr != nil {
		sm.logger.Error("approve recovery: grantee notification failed: %v", merr)
	}

	sm.recordTransition(ctx, ActivityEventRecoveryApproved, actor, record, from)
	return record, nil
}

// RejectRecovery returns the record to Confirmed, conditioned on its
// current status for the same reason as ApproveRecovery.
func (sm *accessStateMachine) RejectRecovery(ctx context.Context, actor ActorRef, record *EmergencyAccess) (*EmergencyAccess, error) {
	if err := sm.guard(record, EmergencyAccessConfirmed); err != nil {
		return nil, err
	}

	from := record.Status
	applied, err := sm.repo.EmergencyAccesses().UpdateStatusIf(ctx, record, from, EmergencyAccessConfirmed)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"id":     record.ID.String(),
			"reason": "record changed concurrently",
		})
	}
	record.Status = EmergencyAccessConfirmed
	record.RecoveryInitiatedAt = nil
	record.LastNotificationAt = nil

	sm.recordTransition(ctx, ActivityEventRecoveryRejected, actor, record, from)
	return record, nil
}

func (sm *accessStateMachine) Revoke(ctx context.Context, actor ActorRef, record *EmergencyAccess) error {
	if record == nil {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "record is nil",
		})
	}

	if err := sm.repo.EmergencyAccesses().DeleteRecord(ctx, record); err != nil {
		return err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccessRevoked,
		Actor:      actor,
		RecordID:   record.ID.String(),
		GrantorID:  record.GrantorID.String(),
		FromStatus: record.Status,
	})
	return nil
}

func (sm *accessStateMachine) ApproveTimedOut(ctx context.Context, record *EmergencyAccess) (bool, error) {
	if record == nil || record.Status != EmergencyAccessRecoveryInitiated || record.RecoveryInitiatedAt == nil {
		return false, nil
	}

	deadline := record.RecoveryInitiatedAt.Add(time.Duration(record.WaitTimeDays) * 24 * time.Hour)
	if sm.now().Before(deadline) {
		return false, nil
	}

	applied, err := sm.repo.EmergencyAccesses().UpdateStatusIf(ctx, record, EmergencyAccessRecoveryInitiated, EmergencyAccessRecoveryApproved)
	if err != nil {
		return false, err
	}
	if !applied {
		// Another writer (grantor approval or rejection) won the race.
		return false, nil
	}
	record.Status = EmergencyAccessRecoveryApproved

	// The transition is the source of truth; notification is advisory.
	grantor, grantee, err := sm.parties(ctx, record)
	if err != nil {
		sm.logger.Warn("recovery timeout: could not load parties for notification: %v", err)
	} else {
		if merr := sm.mailer.SendRecoveryAutoApproved(ctx, grantor.Email, grantee.Name, record.Type.String()); merr != nil {
			sm.logger.Error("recovery timeout: grantor notification failed: %v", merr)
		}
		if merr := sm.mailer.SendRecoveryApproved(ctx, grantee.Email, grantor.Name); merr != nil {
			sm.logger.Error("recovery timeout: grantee notification failed: %v", merr)
		}
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventRecoveryAutoApproved,
		Actor:      ActorRef{Type: "scheduler"},
		RecordID:   record.ID.String(),
		GrantorID:  record.GrantorID.String(),
		FromStatus: EmergencyAccessRecoveryInitiated,
		ToStatus:   EmergencyAccessRecoveryApproved,
	})
	return true, nil
}

func (sm *accessStateMachine) SendReminderIfDue(ctx context.Context, record *EmergencyAccess) (bool, error) {
	if record == nil || record.Status != EmergencyAccessRecoveryInitiated || record.RecoveryInitiatedAt == nil {
		return false, nil
	}

	now := sm.now()
	remindAfter := record.RecoveryInitiatedAt.Add(time.Duration(record.WaitTimeDays-1) * 24 * time.Hour)
	if now.Before(remindAfter) {
		return false, nil
	}
	if record.LastNotificationAt != nil && now.Before(record.LastNotificationAt.Add(24*time.Hour)) {
		return false, nil
	}

	// Stamp first so a mail failure cannot cause a reminder storm.
	applied, err := sm.repo.EmergencyAccesses().MarkReminderSent(ctx, record, now)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	record.LastNotificationAt = &now

	grantor, grantee, err := sm.parties(ctx, record)
	if err != nil {
		sm.logger.Warn("recovery reminder: could not load parties for notification: %v", err)
	} else if merr := sm.mailer.SendRecoveryReminder(ctx, grantor.Email, grantee.Name, record.Type.String(), record.WaitTimeDays); merr != nil {
		sm.logger.Error("recovery reminder: grantor notification failed: %v", merr)
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventRecoveryReminderSent,
		Actor:      ActorRef{Type: "scheduler"},
		RecordID:   record.ID.String(),
		GrantorID:  record.GrantorID.String(),
		FromStatus: EmergencyAccessRecoveryInitiated,
		ToStatus:   EmergencyAccessRecoveryInitiated,
	})
	return true, nil
}

func (sm *accessStateMachine) CurrentStatus(record *EmergencyAccess) EmergencyAccessStatus {
	if record == nil {
		return EmergencyAccessInvited
	}
	return record.Status
}

func (sm *accessStateMachine) guard(record *EmergencyAccess, target EmergencyAccessStatus) error {
	if record == nil {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target.String(),
			"reason": "record is nil",
		})
	}

	if allowed, ok := sm.transitions[record.Status]; ok {
		if _, exists := allowed[target]; exists {
			return nil
		}
	}

	return ErrInvalidTransition.WithMetadata(map[string]any{
		"id":   record.ID.String(),
		"from": record.Status.String(),
		"to":   target.String(),
	})
}

func (sm *accessStateMachine) parties(ctx context.Context, record *EmergencyAccess) (*User, *User, error) {
	grantor, err := sm.repo.Users().FindByUUID(ctx, record.GrantorID)
	if err != nil {
		return nil, nil, err
	}

	if record.GranteeID == nil {
		return nil, nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"id":     record.ID.String(),
			"reason": "record has no bound grantee",
		})
	}

	grantee, err := sm.repo.Users().FindByUUID(ctx, *record.GranteeID)
	if err != nil {
		return nil, nil, err
	}

	return grantor, grantee, nil
}

func (sm *accessStateMachine) recordTransition(ctx context.Context, event ActivityEventType, actor ActorRef, record *EmergencyAccess, from EmergencyAccessStatus) {
	sm.recordActivity(ctx, ActivityEvent{
		EventType:  event,
		Actor:      actor,
		RecordID:   record.ID.String(),
		GrantorID:  record.GrantorID.String(),
		FromStatus: from,
		ToStatus:   record.Status,
	})
}

func (sm *accessStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}
