package trust

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EmergencyAccesses persists delegation records. Saves are upserts keyed by
// id, and every mutation bumps the grantor's revision marker so their
// clients resync.
type EmergencyAccesses interface {
	repository.Repository[*EmergencyAccess]

	Save(ctx context.Context, record *EmergencyAccess) error
	SaveTx(ctx context.Context, tx bun.IDB, record *EmergencyAccess) error

	FindByUUID(ctx context.Context, id uuid.UUID) (*EmergencyAccess, error)
	FindByUUIDAndGrantor(ctx context.Context, id, grantorID uuid.UUID) (*EmergencyAccess, error)
	FindAllByGrantor(ctx context.Context, grantorID uuid.UUID) ([]*EmergencyAccess, error)
	FindAllByGrantee(ctx context.Context, granteeID uuid.UUID) ([]*EmergencyAccess, error)
	// FindAllRecoveries returns every record with recovery in progress; it
	// is the scheduler's work queue.
	FindAllRecoveries(ctx context.Context) ([]*EmergencyAccess, error)

	// UpdateStatusIf performs a conditional status advance guarded on the
	// expected prior status. It reports false when another writer got there
	// first, which is how scheduler/user races resolve to a single winner.
	// Leaving the recovery states clears the recovery timestamps, and a
	// winning write bumps the grantor's revision.
	UpdateStatusIf(ctx context.Context, record *EmergencyAccess, from, to EmergencyAccessStatus) (bool, error)
	// MarkReminderSent stamps last_notification_at, but only while the
	// record is still in RecoveryInitiated. A winning write bumps the
	// grantor's revision.
	MarkReminderSent(ctx context.Context, record *EmergencyAccess, at time.Time) (bool, error)

	DeleteRecord(ctx context.Context, record *EmergencyAccess) error
	DeleteRecordTx(ctx context.Context, tx bun.IDB, record *EmergencyAccess) error
	// DeleteAllByUser removes every record where the user is grantor or
	// grantee; used when an account is purged.
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type emergencyAccesses struct {
	repository.Repository[*EmergencyAccess]
	db    *bun.DB
	users Users
}

var _ EmergencyAccesses = (*emergencyAccesses)(nil)

func NewEmergencyAccessesRepository(db *bun.DB, users Users) EmergencyAccesses {
	repo := repository.NewRepository[*EmergencyAccess](db, repository.ModelHandlers[*EmergencyAccess]{
		NewRecord: func() *EmergencyAccess { return &EmergencyAccess{} },
		GetID: func(e *EmergencyAccess) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *EmergencyAccess, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
	})

	return &emergencyAccesses{
		Repository: repo,
		db:         db,
		users:      users,
	}
}

func (a *emergencyAccesses) Save(ctx context.Context, record *EmergencyAccess) error {
	return a.SaveTx(ctx, a.db, record)
}

// SaveTx upserts the record by id. Insert-or-update is a single statement,
// so concurrent savers of the same id settle on one logical row.
func (a *emergencyAccesses) SaveTx(ctx context.Context, tx bun.IDB, record *EmergencyAccess) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.UpdatedAt = time.Now()

	if err := a.users.UpdateRevisionTx(ctx, tx, record.GrantorID); err != nil {
		return err
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("grantee_id = EXCLUDED.grantee_id").
		Set("email = EXCLUDED.email").
		Set("key_encrypted = EXCLUDED.key_encrypted").
		Set("atype = EXCLUDED.atype").
		Set("status = EXCLUDED.status").
		Set("wait_time_days = EXCLUDED.wait_time_days").
		Set("recovery_initiated_at = EXCLUDED.recovery_initiated_at").
		Set("last_notification_at = EXCLUDED.last_notification_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func (a *emergencyAccesses) FindByUUID(ctx context.Context, id uuid.UUID) (*EmergencyAccess, error) {
	record := &EmergencyAccess{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *emergencyAccesses) FindByUUIDAndGrantor(ctx context.Context, id, grantorID uuid.UUID) (*EmergencyAccess, error) {
	record := &EmergencyAccess{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.grantor_id = ?", grantorID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String(), "grantor_id": grantorID.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *emergencyAccesses) FindAllByGrantor(ctx context.Context, grantorID uuid.UUID) ([]*EmergencyAccess, error) {
	var records []*EmergencyAccess
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.grantor_id = ?", grantorID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *emergencyAccesses) FindAllByGrantee(ctx context.Context, granteeID uuid.UUID) ([]*EmergencyAccess, error) {
	var records []*EmergencyAccess
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.grantee_id = ?", granteeID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *emergencyAccesses) FindAllRecoveries(ctx context.Context) ([]*EmergencyAccess, error) {
	var records []*EmergencyAccess
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", EmergencyAccessRecoveryInitiated).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *emergencyAccesses) UpdateStatusIf(ctx context.Context, record *EmergencyAccess, from, to EmergencyAccessStatus) (bool, error) {
	var applied bool
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		update := tx.NewUpdate().
			Model((*EmergencyAccess)(nil)).
			Set("status = ?", to).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", record.ID).
			Where("status = ?", from)

		// Below RecoveryInitiated the recovery timestamps must not
		// survive, or the row would look like a recovery in progress.
		if to < EmergencyAccessRecoveryInitiated {
			update = update.
				Set("recovery_initiated_at = NULL").
				Set("last_notification_at = NULL")
		}

		res, err := update.Exec(ctx)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		applied = true
		return a.users.UpdateRevisionTx(ctx, tx, record.GrantorID)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (a *emergencyAccesses) MarkReminderSent(ctx context.Context, record *EmergencyAccess, at time.Time) (bool, error) {
	var applied bool
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*EmergencyAccess)(nil)).
			Set("last_notification_at = ?", at).
			Set("updated_at = ?", at).
			Where("id = ?", record.ID).
			Where("status = ?", EmergencyAccessRecoveryInitiated).
			Exec(ctx)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		applied = true
		return a.users.UpdateRevisionTx(ctx, tx, record.GrantorID)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (a *emergencyAccesses) DeleteRecord(ctx context.Context, record *EmergencyAccess) error {
	return a.DeleteRecordTx(ctx, a.db, record)
}

func (a *emergencyAccesses) DeleteRecordTx(ctx context.Context, tx bun.IDB, record *EmergencyAccess) error {
	if err := a.users.UpdateRevisionTx(ctx, tx, record.GrantorID); err != nil {
		return err
	}

	_, err := tx.NewDelete().
		Model((*EmergencyAccess)(nil)).
		Where("id = ?", record.ID).
		Exec(ctx)
	return err
}

func (a *emergencyAccesses) DeleteAllByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := a.db.NewDelete().
		Model((*EmergencyAccess)(nil)).
		Where("grantor_id = ?", userID).
		WhereOr("grantee_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
