package repo

import (
	"context"

	"csms/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ConfigKeysRepo struct{ db *pgxpool.Pool }

func NewConfigKeysRepo(db *pgxpool.Pool) *ConfigKeysRepo { return &ConfigKeysRepo{db: db} }

func (r *ConfigKeysRepo) List(ctx context.Context, chargePointID string) ([]models.ConfigKey, error) {
	rows, err := r.db.Query(ctx, `
		select charge_point_id, key, value, updated_at
		from config_keys where charge_point_id=$1
		order by key asc
	`, chargePointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConfigKey
	for rows.Next() {
		var ck models.ConfigKey
		if err := rows.Scan(&ck.ChargePointID, &ck.Key, &ck.Value, &ck.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ck)
	}
	return out, rows.Err()
}

func (r *ConfigKeysRepo) Upsert(ctx context.Context, ck models.ConfigKey) error {
	_, err := r.db.Exec(ctx, `
		insert into config_keys (charge_point_id, key, value, updated_at)
		values ($1,$2,$3, now())
		on conflict (charge_point_id, key) do update set
		  value=excluded.value,
		  updated_at=now()
	`, ck.ChargePointID, ck.Key, ck.Value)
	return err
}
