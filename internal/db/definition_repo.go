package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// DefinitionRepository provides read access to maintenance_definitions.
type DefinitionRepository struct {
	db DBTX
}

// NewDefinitionRepository creates a new DefinitionRepository backed by the
// given database connection (pool or transaction).
func NewDefinitionRepository(db DBTX) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

// GetDefinition loads a definition by ID. The recurrence column is JSONB.
func (r *DefinitionRepository) GetDefinition(ctx context.Context, id string) (*types.MaintenanceDefinition, error) {
	var (
		d            types.MaintenanceDefinition
		userID       *string
		description  *string
		instructions *string
		priority     *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, name, description, instructions, priority, recurrence, created_at
		 FROM maintenance_definitions
		 WHERE id = $1`,
		id,
	).Scan(&d.ID, &userID, &d.Name, &description, &instructions, &priority, &d.Recurrence, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundDef, "maintenance definition not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve maintenance definition", err)
	}
	if userID != nil {
		d.UserID = *userID
	}
	if description != nil {
		d.Description = *description
	}
	if instructions != nil {
		d.Instructions = *instructions
	}
	if priority != nil {
		d.Priority = types.Priority(*priority)
	}
	return &d, nil
}
