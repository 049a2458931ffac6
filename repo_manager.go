package trust

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager aggregates the persistence surface the guard chain,
// state machine, and scheduler share.
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error

	Users() Users
	Devices() Devices
	Memberships() Memberships
	EmergencyAccesses() EmergencyAccesses
}

type mngr struct {
	db                *bun.DB
	users             Users
	devices           Devices
	memberships       Memberships
	emergencyAccesses EmergencyAccesses
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	users := NewUsersRepository(db)
	return &mngr{
		db:                db,
		users:             users,
		devices:           NewDevicesRepository(db),
		memberships:       NewMembershipsRepository(db),
		emergencyAccesses: NewEmergencyAccessesRepository(db, users),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.devices == nil {
		return errors.New("repository devices should be initialized")
	}

	if m.memberships == nil {
		return errors.New("repository memberships should be initialized")
	}

	if m.emergencyAccesses == nil {
		return errors.New("repository emergencyAccesses should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Devices() Devices {
	return m.devices
}

func (m mngr) Memberships() Memberships {
	return m.memberships
}

func (m mngr) EmergencyAccesses() EmergencyAccesses {
	return m.emergencyAccesses
}
