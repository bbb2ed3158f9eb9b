package stationrepo

import (
	"context"
	"database/sql"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
)

type Repo interface {
	// GetUnitPlacement reads the last hardware-reported position of a power
	// bank. The IoT sync path writing this row lives outside this core.
	GetUnitPlacement(ctx context.Context, unitID int64) (*model.UnitPlacement, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) GetUnitPlacement(ctx context.Context, unitID int64) (*model.UnitPlacement, error) {
	const q = `
SELECT id, station_id, slot_number, slot_state, last_synced_at
FROM units
WHERE id=$1`
	var p model.UnitPlacement
	err := r.db.QueryRowContext(ctx, q, unitID).Scan(
		&p.UnitID, &p.StationID, &p.SlotNumber, &p.SlotState, &p.LastSyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
