package wiring

import (
	"context"

	"fleetcare/internal/db"
	"fleetcare/internal/maintenance"
)

// TxManager runs record mutations in one Postgres transaction, binding every
// repository in maintenance.Repos to it.
type TxManager struct {
	conn db.TxBeginner
}

// NewTxManager returns a TxManager that begins transactions on conn.
func NewTxManager(conn db.TxBeginner) *TxManager {
	return &TxManager{conn: conn}
}

// RunInTx commits when fn returns nil and rolls back otherwise. fn's error is
// returned unchanged.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, repos maintenance.Repos) error) error {
	return db.RunInTx(ctx, m.conn, func(tx db.DBTX) error {
		return fn(ctx, reposFor(tx))
	})
}

func reposFor(tx db.DBTX) maintenance.Repos {
	return maintenance.Repos{
		Records:     db.NewRecordRepository(tx),
		Schedules:   db.NewScheduleRepository(tx),
		Vehicles:    db.NewVehicleRepository(tx),
		Definitions: db.NewDefinitionRepository(tx),
	}
}

var _ maintenance.TxManager = (*TxManager)(nil)
