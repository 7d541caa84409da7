package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// ClientRepository provides data access for the clients table.
type ClientRepository struct {
	db DBTX
}

// NewClientRepository creates a ClientRepository backed by the given
// connection (pool or transaction).
func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, name, cnpj, contract_start, initial_meeting_date,
	onboarding_status, relationship_status, owner_id, contacts, notes,
	created_at, updated_at`

// Get loads a single client by id. Returns not_found_client when absent.
func (r *ClientRepository) Get(ctx context.Context, id string) (*types.Client, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundClient, "client not found", err)
		}
		return nil, err
	}
	return c, nil
}

// scanClient maps one row onto a Client, decoding the JSONB contact list.
func scanClient(row pgx.Row) (*types.Client, error) {
	var (
		c           types.Client
		cnpj        *string
		notes       *string
		contactsRaw []byte
		onbStatus   string
		relStatus   string
	)
	err := row.Scan(
		&c.ID, &c.Name, &cnpj, &c.ContractStart, &c.InitialMeetingDate,
		&onbStatus, &relStatus, &c.OwnerID, &contactsRaw, &notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning client row", err)
	}

	if cnpj != nil {
		c.CNPJ = *cnpj
	}
	if notes != nil {
		c.Notes = *notes
	}
	onb, err := types.ParseOnboardingStatus(onbStatus)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationUnknownEnum, "onboarding status", err)
	}
	rel, err := types.ParseRelationshipStatus(relStatus)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationUnknownEnum, "relationship status", err)
	}
	c.OnboardingStatus = onb
	c.RelationshipStatus = rel

	if len(contactsRaw) > 0 {
		if err := json.Unmarshal(contactsRaw, &c.Contacts); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "decoding client contacts", err)
		}
	}
	return &c, nil
}
