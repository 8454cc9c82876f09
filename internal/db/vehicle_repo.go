package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// VehicleRepository provides read access to the vehicles table. Mileage is
// maintained by the vehicle CRUD surface, never here.
type VehicleRepository struct {
	db DBTX
}

// NewVehicleRepository creates a new VehicleRepository backed by the given
// database connection (pool or transaction).
func NewVehicleRepository(db DBTX) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `id, user_id, COALESCE(name, ''), COALESCE(make, ''), COALESCE(model, ''), COALESCE(year, 0), current_mileage`

func scanVehicle(row pgx.Row) (*types.Vehicle, error) {
	var v types.Vehicle
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Make, &v.Model, &v.Year, &v.CurrentMileage); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUser returns every vehicle owned by userID.
func (r *VehicleRepository) ListByUser(ctx context.Context, userID string) ([]types.Vehicle, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+vehicleColumns+`
		 FROM vehicles
		 WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list vehicles", err)
	}
	defer rows.Close()

	var vehicles []types.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan vehicle", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating vehicles", err)
	}
	return vehicles, nil
}

// GetVehicle returns a vehicle only if it belongs to userID.
func (r *VehicleRepository) GetVehicle(ctx context.Context, userID, vehicleID string) (*types.Vehicle, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+vehicleColumns+`
		 FROM vehicles
		 WHERE id = $1 AND user_id = $2`,
		vehicleID,
		userID,
	)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundVehicle, "vehicle not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve vehicle", err)
	}
	return v, nil
}
