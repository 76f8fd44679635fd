package repo

import (
	"context"

	"csms/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectorStatusRepo struct{ db *pgxpool.Pool }

func NewConnectorStatusRepo(db *pgxpool.Pool) *ConnectorStatusRepo {
	return &ConnectorStatusRepo{db: db}
}

// Append writes one status event. The log is append-only; rows are never
// updated.
func (r *ConnectorStatusRepo) Append(ctx context.Context, ev models.ConnectorStatusEvent) error {
	_, err := r.db.Exec(ctx, `
		insert into connector_status (charge_point_id, connector_id, status, error_code, ts)
		values ($1,$2,$3,$4,$5)
	`, ev.ChargePointID, ev.ConnectorID, ev.Status, ev.ErrorCode, ev.Ts)
	return err
}

// ListLatest returns the most recent status per connector of a charge point.
func (r *ConnectorStatusRepo) ListLatest(ctx context.Context, chargePointID string) ([]models.ConnectorStatusEvent, error) {
	rows, err := r.db.Query(ctx, `
		select distinct on (connector_id)
		       charge_point_id, connector_id, status, error_code, ts
		from connector_status
		where charge_point_id=$1
		order by connector_id asc, ts desc
	`, chargePointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConnectorStatusEvent
	for rows.Next() {
		var ev models.ConnectorStatusEvent
		if err := rows.Scan(&ev.ChargePointID, &ev.ConnectorID, &ev.Status, &ev.ErrorCode, &ev.Ts); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
