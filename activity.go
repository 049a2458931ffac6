package trust

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccessInvited        ActivityEventType = "emergency_access.invited"
	ActivityEventAccessAccepted       ActivityEventType = "emergency_access.accepted"
	ActivityEventAccessConfirmed      ActivityEventType = "emergency_access.confirmed"
	ActivityEventAccessRevoked        ActivityEventType = "emergency_access.revoked"
	ActivityEventRecoveryInitiated    ActivityEventType = "emergency_access.recovery.initiated"
	ActivityEventRecoveryApproved     ActivityEventType = "emergency_access.recovery.approved"
	ActivityEventRecoveryAutoApproved ActivityEventType = "emergency_access.recovery.auto_approved"
	ActivityEventRecoveryRejected     ActivityEventType = "emergency_access.recovery.rejected"
	ActivityEventRecoveryReminderSent ActivityEventType = "emergency_access.recovery.reminder_sent"
)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	RecordID   string
	GrantorID  string
	FromStatus EmergencyAccessStatus
	ToStatus   EmergencyAccessStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
