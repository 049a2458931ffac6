package trust

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Devices persists registered client installations.
type Devices interface {
	repository.Repository[*Device]

	FindByUUID(ctx context.Context, id uuid.UUID) (*Device, error)
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*Device, error)
}

type devices struct {
	repository.Repository[*Device]
	db *bun.DB
}

var _ Devices = (*devices)(nil)

func NewDevicesRepository(db *bun.DB) Devices {
	repo := repository.NewRepository[*Device](db, repository.ModelHandlers[*Device]{
		NewRecord: func() *Device { return &Device{} },
		GetID: func(d *Device) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *Device, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
	})

	return &devices{
		Repository: repo,
		db:         db,
	}
}

func (a *devices) FindByUUID(ctx context.Context, id uuid.UUID) (*Device, error) {
	record := &Device{}
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

func (a *devices) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*Device, error) {
	var records []*Device
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
