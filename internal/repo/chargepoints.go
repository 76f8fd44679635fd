package repo

import (
	"context"
	"errors"

	"csms/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChargePointsRepo struct{ db *pgxpool.Pool }

func NewChargePointsRepo(db *pgxpool.Pool) *ChargePointsRepo { return &ChargePointsRepo{db: db} }

// Upsert records a BootNotification. The id is the connection path segment;
// it is never generated server-side.
func (r *ChargePointsRepo) Upsert(ctx context.Context, cp models.ChargePoint) error {
	_, err := r.db.Exec(ctx, `
		insert into charge_points (id, ocpp_version, model, vendor, last_boot)
		values ($1,$2,$3,$4,$5)
		on conflict (id) do update set
		  ocpp_version=excluded.ocpp_version,
		  model=excluded.model,
		  vendor=excluded.vendor,
		  last_boot=excluded.last_boot
	`, cp.ID, cp.OcppVersion, cp.Model, cp.Vendor, cp.LastBoot)
	return err
}

func (r *ChargePointsRepo) Get(ctx context.Context, id string) (*models.ChargePoint, error) {
	row := r.db.QueryRow(ctx, `
		select id, coalesce(ocpp_version,'1.6'), coalesce(model,''), coalesce(vendor,''), last_boot
		from charge_points where id=$1
	`, id)

	var cp models.ChargePoint
	if err := row.Scan(&cp.ID, &cp.OcppVersion, &cp.Model, &cp.Vendor, &cp.LastBoot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cp, nil
}
