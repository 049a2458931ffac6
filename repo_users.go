package trust

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var rotateSecurityStampSQL = `UPDATE "users" AS "usr"
SET
	"security_stamp" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users persists account records. The trust layer only reads them, bumps
// their revision marker, and rotates security stamps; account registration
// and profile editing live elsewhere.
type Users interface {
	repository.Repository[*User]

	FindByUUID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdateRevision bumps updated_at so clients know to resync after a
	// mutation to something the user owns.
	UpdateRevision(ctx context.Context, id uuid.UUID) error
	UpdateRevisionTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	// RotateSecurityStamp invalidates every outstanding login token.
	RotateSecurityStamp(ctx context.Context, id uuid.UUID) (*User, error)
	RotateSecurityStampTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByUUID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindByUUIDTx(ctx, a.db, id)
}

func (a *users) FindByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
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

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) UpdateRevision(ctx context.Context, id uuid.UUID) error {
	return a.UpdateRevisionTx(ctx, a.db, id)
}

func (a *users) UpdateRevisionTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) RotateSecurityStamp(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.RotateSecurityStampTx(ctx, a.db, id)
}

func (a *users) RotateSecurityStampTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, rotateSecurityStampSQL, uuid.New().String(), time.Now(), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}
