package repo

import (
	"context"
	"time"

	"csms/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MeterValuesRepo struct{ db *pgxpool.Pool }

func NewMeterValuesRepo(db *pgxpool.Pool) *MeterValuesRepo { return &MeterValuesRepo{db: db} }

// InsertBatch writes all samples of one MeterValues message inside a single
// database transaction, so a mid-batch failure never leaves a partial batch.
func (r *MeterValuesRepo) InsertBatch(ctx context.Context, samples []models.MeterSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range samples {
		if _, err := tx.Exec(ctx, `
			insert into meter_values
			  (charge_point_id, connector_id, transaction_id, ts, measurand, value, unit, context)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
		`, s.ChargePointID, s.ConnectorID, s.TransactionID, s.Ts, s.Measurand, s.Value, s.Unit, s.Context); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// EnergyTotal sums energy register samples of a charge point over [from, to).
func (r *MeterValuesRepo) EnergyTotal(ctx context.Context, chargePointID string, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `
		select coalesce(sum(value), 0)
		from meter_values
		where charge_point_id=$1
		  and measurand=$2
		  and ts >= $3 and ts < $4
	`, chargePointID, "Energy.Active.Import.Register", from, to).Scan(&total)
	return total, err
}
