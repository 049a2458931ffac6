package trust

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Memberships persists user-organization links.
type Memberships interface {
	repository.Repository[*Membership]

	FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error)
	FindConfirmedByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
}

type memberships struct {
	repository.Repository[*Membership]
	db *bun.DB
}

var _ Memberships = (*memberships)(nil)

func NewMembershipsRepository(db *bun.DB) Memberships {
	repo := repository.NewRepository[*Membership](db, repository.ModelHandlers[*Membership]{
		NewRecord: func() *Membership { return &Membership{} },
		GetID: func(m *Membership) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Membership, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})

	return &memberships{
		Repository: repo,
		db:         db,
	}
}

func (a *memberships) FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	record := &Membership{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.organization_id = ?", orgID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id":         userID.String(),
					"organization_id": orgID.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

// FindConfirmedByUser returns the memberships that feed the per-role
// organization lists on login claims.
func (a *memberships) FindConfirmedByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error) {
	var records []*Membership
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.status = ?", MembershipConfirmed).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
