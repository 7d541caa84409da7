package db

import (
	"context"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// InteractionRepository provides data access for the interactions table.
type InteractionRepository struct {
	db DBTX
}

// NewInteractionRepository creates an InteractionRepository backed by the
// given connection.
func NewInteractionRepository(db DBTX) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Create inserts a logged contact. The caller (service layer) follows up
// with the lifecycle engine to complete any matching pending appointment.
func (r *InteractionRepository) Create(ctx context.Context, i *types.Interaction) error {
	if _, err := types.ParseInteractionKind(string(i.Kind)); err != nil {
		return types.NewAppError(types.ErrCodeValidationUnknownEnum, "interaction kind", err)
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO interactions (id, client_id, kind, date, channel, description, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		i.ID, i.ClientID, string(i.Kind), i.Date, string(i.Channel), i.Description, i.Notes,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "inserting interaction", err)
	}
	return nil
}
