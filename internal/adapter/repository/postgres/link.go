package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

const linkColumns = "key, destination, created_at, expire_at, access_count"

var linkListColumns = map[string]string{
	"destination":  "destination",
	"created_at":   "created_at",
	"expire_at":    "expire_at",
	"access_count": "access_count",
}

type linkDB struct {
	Key         string        `db:"key"`
	Destination string        `db:"destination"`
	CreatedAt   int64         `db:"created_at"`
	ExpireAt    sql.NullInt64 `db:"expire_at"`
	AccessCount int64         `db:"access_count"`
}

func (l *linkDB) toEntity() *entity.Link {
	return &entity.Link{
		Key:         l.Key,
		Destination: l.Destination,
		CreatedAt:   fromMillis(l.CreatedAt),
		ExpireAt:    fromNullMillis(l.ExpireAt),
		AccessCount: l.AccessCount,
	}
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, link *entity.Link) error {
	const op = "adapter.repository.postgres.LinkRepository.Save"
	const query = `INSERT INTO links(key, destination, created_at, expire_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query,
		link.Key, link.Destination, toMillis(link.CreatedAt), toNullMillis(link.ExpireAt))
	if err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%s: %w", op, entity.ErrDuplicateKey)
		}

		return storeError(op, "failed to insert into links table", err)
	}

	return nil
}

func (r *LinkRepository) Exists(ctx context.Context, key string) (bool, error) {
	const op = "adapter.repository.postgres.LinkRepository.Exists"
	const query = `SELECT EXISTS(SELECT 1 FROM links WHERE key = $1)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, key); err != nil {
		return false, storeError(op, "failed to check links table", err)
	}

	return exists, nil
}

func (r *LinkRepository) Get(ctx context.Context, key string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Get"
	const query = `SELECT ` + linkColumns + ` FROM links WHERE key = $1`

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		}

		return nil, storeError(op, "failed to get row from links table", err)
	}

	return link.toEntity(), nil
}

func (r *LinkRepository) List(ctx context.Context, q entity.ListQuery) ([]entity.Link, int64, error) {
	const op = "adapter.repository.postgres.LinkRepository.List"

	stmt, err := buildListStatement(q, linkListColumns)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int64

	if err := r.db.GetContext(ctx, &total, stmt.countQuery("links"), stmt.args...); err != nil {
		return nil, 0, storeError(op, "failed to count links", err)
	}

	query, args := stmt.pageQuery("links", linkColumns, q)

	var rows []linkDB

	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, storeError(op, "failed to select links", err)
	}

	links := make([]entity.Link, 0, len(rows))
	for i := range rows {
		links = append(links, *rows[i].toEntity())
	}

	return links, total, nil
}

func (r *LinkRepository) IncrementAccessCount(ctx context.Context, key string) error {
	const op = "adapter.repository.postgres.LinkRepository.IncrementAccessCount"
	const query = `UPDATE links SET access_count = access_count + 1 WHERE key = $1`

	res, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return storeError(op, "failed to update links table row", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return storeError(op, "failed to get number of affected rows", err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}

	return nil
}

// Delete removes the link row. Deleting an absent key is not an error.
func (r *LinkRepository) Delete(ctx context.Context, key string) error {
	const op = "adapter.repository.postgres.LinkRepository.Delete"
	const query = `DELETE FROM links WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return storeError(op, "failed to delete from links table", err)
	}

	return nil
}

// DeleteExpired removes every link that expired before now and returns how many were removed.
func (r *LinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "adapter.repository.postgres.LinkRepository.DeleteExpired"
	const query = `DELETE FROM links WHERE expire_at IS NOT NULL AND expire_at < $1`

	res, err := r.db.ExecContext(ctx, query, toMillis(now))
	if err != nil {
		return 0, storeError(op, "failed to delete from links table", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, storeError(op, "failed to get number of affected rows", err)
	}

	return rowsAffected, nil
}
