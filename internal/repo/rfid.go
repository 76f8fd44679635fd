package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RfidRepo struct{ db *pgxpool.Pool }

func NewRfidRepo(db *pgxpool.Pool) *RfidRepo { return &RfidRepo{db: db} }

// IsAuthorized returns the stored flag for an id tag. An unknown tag is not
// authorized (fail closed).
func (r *RfidRepo) IsAuthorized(ctx context.Context, idTag string) (bool, error) {
	var authorized bool
	err := r.db.QueryRow(ctx, `select is_authorized from rfid_tags where id_tag=$1`, idTag).Scan(&authorized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return authorized, nil
}

// UpsertTag provisions or updates a tag. Used by the seed tool, not by the
// message engine.
func (r *RfidRepo) UpsertTag(ctx context.Context, idTag string, authorized bool) error {
	_, err := r.db.Exec(ctx, `
		insert into rfid_tags (id_tag, is_authorized)
		values ($1,$2)
		on conflict (id_tag) do update set is_authorized=excluded.is_authorized
	`, idTag, authorized)
	return err
}
