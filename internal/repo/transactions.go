package repo

import (
	"context"
	"errors"
	"time"

	"csms/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionsRepo struct{ db *pgxpool.Pool }

func NewTransactionsRepo(db *pgxpool.Pool) *TransactionsRepo { return &TransactionsRepo{db: db} }

// Start inserts an Active transaction and returns the generated id. Ids come
// from the database sequence and are never reused.
func (r *TransactionsRepo) Start(ctx context.Context, tx models.Transaction) (int, error) {
	row := r.db.QueryRow(ctx, `
		insert into transactions (charge_point_id, connector_id, id_tag, meter_start, start_ts, status)
		values ($1,$2,$3,$4,$5,'Active')
		returning id
	`, tx.ChargePointID, tx.ConnectorID, tx.IdTag, tx.MeterStart, tx.StartTs)

	var id int
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

// Complete marks the referenced transaction Completed and returns how many
// rows matched, so the caller can apply its stop policy. With onlyActive the
// update touches nothing unless the row is still Active; without it the
// update is unconditional, matching the permissive stop behavior.
func (r *TransactionsRepo) Complete(ctx context.Context, id int, meterStop float64, stopTs time.Time, onlyActive bool) (int64, error) {
	q := `
		update transactions
		set meter_stop=$2, stop_ts=$3, status='Completed'
		where id=$1
	`
	if onlyActive {
		q += ` and status='Active'`
	}
	tag, err := r.db.Exec(ctx, q, id, meterStop, stopTs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TransactionsRepo) GetByID(ctx context.Context, id int) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		select id, charge_point_id, connector_id, id_tag, meter_start, start_ts, meter_stop, stop_ts, status
		from transactions where id=$1
	`, id)

	var tx models.Transaction
	if err := row.Scan(&tx.ID, &tx.ChargePointID, &tx.ConnectorID, &tx.IdTag, &tx.MeterStart, &tx.StartTs, &tx.MeterStop, &tx.StopTs, &tx.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionsRepo) ListByChargePoint(ctx context.Context, chargePointID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		select id, charge_point_id, connector_id, id_tag, meter_start, start_ts, meter_stop, stop_ts, status
		from transactions where charge_point_id=$1
		order by start_ts desc
		limit $2
	`, chargePointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.ChargePointID, &tx.ConnectorID, &tx.IdTag, &tx.MeterStart, &tx.StartTs, &tx.MeterStop, &tx.StopTs, &tx.Status); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
