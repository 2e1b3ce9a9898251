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

const fileColumns = "key, mime, filename, filesize, blob_path, created_at, expire_at, access_count"

var fileListColumns = map[string]string{
	"filename":     "filename",
	"mime":         "mime",
	"filesize":     "filesize",
	"created_at":   "created_at",
	"expire_at":    "expire_at",
	"access_count": "access_count",
}

type fileDB struct {
	Key         string        `db:"key"`
	MIME        string        `db:"mime"`
	Filename    string        `db:"filename"`
	Size        int64         `db:"filesize"`
	BlobPath    string        `db:"blob_path"`
	CreatedAt   int64         `db:"created_at"`
	ExpireAt    sql.NullInt64 `db:"expire_at"`
	AccessCount int64         `db:"access_count"`
}

func (f *fileDB) toEntity() *entity.File {
	return &entity.File{
		Key:         f.Key,
		MIME:        f.MIME,
		Filename:    f.Filename,
		Size:        f.Size,
		BlobPath:    f.BlobPath,
		CreatedAt:   fromMillis(f.CreatedAt),
		ExpireAt:    fromNullMillis(f.ExpireAt),
		AccessCount: f.AccessCount,
	}
}

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Save(ctx context.Context, file *entity.File) error {
	const op = "adapter.repository.postgres.FileRepository.Save"
	const query = `INSERT INTO files(key, mime, filename, filesize, blob_path, created_at, expire_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		file.Key, file.MIME, file.Filename, file.Size, file.BlobPath,
		toMillis(file.CreatedAt), toNullMillis(file.ExpireAt))
	if err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%s: %w", op, entity.ErrDuplicateKey)
		}

		return storeError(op, "failed to insert into files table", err)
	}

	return nil
}

func (r *FileRepository) Exists(ctx context.Context, key string) (bool, error) {
	const op = "adapter.repository.postgres.FileRepository.Exists"
	const query = `SELECT EXISTS(SELECT 1 FROM files WHERE key = $1)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, key); err != nil {
		return false, storeError(op, "failed to check files table", err)
	}

	return exists, nil
}

func (r *FileRepository) Get(ctx context.Context, key string) (*entity.File, error) {
	const op = "adapter.repository.postgres.FileRepository.Get"
	const query = `SELECT ` + fileColumns + ` FROM files WHERE key = $1`

	var file fileDB

	if err := r.db.GetContext(ctx, &file, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		}

		return nil, storeError(op, "failed to get row from files table", err)
	}

	return file.toEntity(), nil
}

func (r *FileRepository) List(ctx context.Context, q entity.ListQuery) ([]entity.File, int64, error) {
	const op = "adapter.repository.postgres.FileRepository.List"

	stmt, err := buildListStatement(q, fileListColumns)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int64

	if err := r.db.GetContext(ctx, &total, stmt.countQuery("files"), stmt.args...); err != nil {
		return nil, 0, storeError(op, "failed to count files", err)
	}

	query, args := stmt.pageQuery("files", fileColumns, q)

	var rows []fileDB

	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, storeError(op, "failed to select files", err)
	}

	files := make([]entity.File, 0, len(rows))
	for i := range rows {
		files = append(files, *rows[i].toEntity())
	}

	return files, total, nil
}

func (r *FileRepository) IncrementAccessCount(ctx context.Context, key string) error {
	const op = "adapter.repository.postgres.FileRepository.IncrementAccessCount"
	const query = `UPDATE files SET access_count = access_count + 1 WHERE key = $1`

	res, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return storeError(op, "failed to update files table row", err)
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

// Delete removes the file row. Deleting an absent key is not an error.
func (r *FileRepository) Delete(ctx context.Context, key string) error {
	const op = "adapter.repository.postgres.FileRepository.Delete"
	const query = `DELETE FROM files WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return storeError(op, "failed to delete from files table", err)
	}

	return nil
}

// ListExpired returns the files that expired before now, oldest expiration first.
func (r *FileRepository) ListExpired(ctx context.Context, now time.Time) ([]entity.File, error) {
	const op = "adapter.repository.postgres.FileRepository.ListExpired"
	const query = `SELECT ` + fileColumns + ` FROM files
		WHERE expire_at IS NOT NULL AND expire_at < $1 ORDER BY expire_at`

	var rows []fileDB

	if err := r.db.SelectContext(ctx, &rows, query, toMillis(now)); err != nil {
		return nil, storeError(op, "failed to select expired files", err)
	}

	files := make([]entity.File, 0, len(rows))
	for i := range rows {
		files = append(files, *rows[i].toEntity())
	}

	return files, nil
}
