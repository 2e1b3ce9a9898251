package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

type accessDB struct {
	ID       int64          `db:"id"`
	Key      string         `db:"key"`
	IP       sql.NullString `db:"ip"`
	Country  sql.NullString `db:"country"`
	City     sql.NullString `db:"city"`
	UA       sql.NullString `db:"ua"`
	Referer  sql.NullString `db:"referer"`
	AccessAt int64          `db:"access_at"`
}

func (a *accessDB) toEntity() entity.Access {
	return entity.Access{
		ID:       a.ID,
		Key:      a.Key,
		AccessAt: fromMillis(a.AccessAt),
		Requester: entity.Requester{
			IP:        a.IP.String,
			Country:   a.Country.String,
			City:      a.City.String,
			UserAgent: a.UA.String,
			Referer:   a.Referer.String,
		},
	}
}

// AccessRepository is the append-only access ledger of one entry kind.
// Links and files keep their records in separate tables.
type AccessRepository struct {
	db    *sqlx.DB
	table string
}

func NewLinkAccessRepository(db *sqlx.DB) *AccessRepository {
	return &AccessRepository{db: db, table: "link_access"}
}

func NewFileAccessRepository(db *sqlx.DB) *AccessRepository {
	return &AccessRepository{db: db, table: "file_access"}
}

func (r *AccessRepository) Record(ctx context.Context, access *entity.Access) error {
	const op = "adapter.repository.postgres.AccessRepository.Record"
	query := `INSERT INTO ` + r.table + `(key, ip, country, city, ua, referer, access_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	err := r.db.GetContext(ctx, &access.ID, query,
		access.Key,
		toNullString(access.IP),
		toNullString(access.Country),
		toNullString(access.City),
		toNullString(access.UserAgent),
		toNullString(access.Referer),
		toMillis(access.AccessAt),
	)
	if err != nil {
		return storeError(op, "failed to insert into "+r.table+" table", err)
	}

	return nil
}

// ListByKey returns every record of key, newest first.
func (r *AccessRepository) ListByKey(ctx context.Context, key string) ([]entity.Access, error) {
	const op = "adapter.repository.postgres.AccessRepository.ListByKey"
	query := `SELECT id, key, ip, country, city, ua, referer, access_at FROM ` + r.table + `
		WHERE key = $1 ORDER BY access_at DESC, id DESC`

	var rows []accessDB

	if err := r.db.SelectContext(ctx, &rows, query, key); err != nil {
		return nil, storeError(op, "failed to select from "+r.table+" table", err)
	}

	accesses := make([]entity.Access, 0, len(rows))
	for i := range rows {
		accesses = append(accesses, rows[i].toEntity())
	}

	return accesses, nil
}

func (r *AccessRepository) DeleteByKey(ctx context.Context, key string) error {
	const op = "adapter.repository.postgres.AccessRepository.DeleteByKey"
	query := `DELETE FROM ` + r.table + ` WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return storeError(op, "failed to delete from "+r.table+" table", err)
	}

	return nil
}
