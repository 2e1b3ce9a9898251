package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

const defaultContentType = "application/octet-stream"

type fileRepository interface {
	Save(ctx context.Context, file *entity.File) error
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*entity.File, error)
	List(ctx context.Context, q entity.ListQuery) ([]entity.File, int64, error)
	IncrementAccessCount(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// FileUpload is a payload to be stored as a file entry.
type FileUpload struct {
	Body        io.ReadSeeker
	Filename    string
	ContentType string // ContentType is guessed from Filename when empty.
	TTLDays     int
}

// FileUseCase manages files, their payloads and their access records.
type FileUseCase struct {
	settings
	keys       keyAllocator
	fileRepo   fileRepository
	accessRepo accessRepository
	blobs      blobStore
}

func NewFileUseCase(fileRepo fileRepository, accessRepo accessRepository, blobs blobStore, opts ...Option) *FileUseCase {
	s := newSettings(opts)

	return &FileUseCase{
		settings:   s,
		keys:       newKeyAllocator(s.keyLength),
		fileRepo:   fileRepo,
		accessRepo: accessRepo,
		blobs:      blobs,
	}
}

// CreateFile writes the payload to the blob store and then records its metadata
// under a freshly allocated key. When the metadata insert fails for any reason
// other than a lost key race, the stored blob is left behind.
func (uc *FileUseCase) CreateFile(ctx context.Context, in FileUpload) (*entity.File, error) {
	const op = "usecase.FileUseCase.CreateFile"

	if in.Body == nil || strings.TrimSpace(in.Filename) == "" {
		return nil, fmt.Errorf("%s: missing payload or filename: %w", op, entity.ErrInvalidInput)
	}

	now := uc.now()
	file := &entity.File{
		MIME:      detectContentType(in.ContentType, in.Filename),
		Filename:  in.Filename,
		CreatedAt: now,
		ExpireAt:  entity.ExpireAfterDays(now, in.TTLDays),
	}

	attempt := 0
	key, err := uc.keys.allocate(ctx, uc.fileRepo.Exists, func(ctx context.Context, key string) error {
		attempt++
		if attempt > 1 {
			if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("failed to rewind payload: %w", err)
			}
		}

		file.Key = key
		file.BlobPath = fileBlobPath(key)

		size, err := uc.blobs.Put(ctx, file.BlobPath, in.Body, file.MIME, file.Filename)
		if err != nil {
			return fmt.Errorf("failed to store payload: %w", err)
		}
		file.Size = size

		if err := uc.fileRepo.Save(ctx, file); err != nil {
			if errors.Is(err, entity.ErrDuplicateKey) {
				// The payload of this attempt lives at its own path and is not referenced by any row.
				if err := uc.blobs.Delete(ctx, file.BlobPath); err != nil {
					uc.logger.WarnContext(ctx, "failed to discard payload of lost key race",
						slog.String("op", op),
						slog.String("path", file.BlobPath),
						slog.Any("err", err),
					)
				}
				return err
			}

			uc.logger.ErrorContext(ctx, "file metadata not saved, payload orphaned",
				slog.String("op", op),
				slog.String("path", file.BlobPath),
				slog.Any("err", err),
			)
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create file: %w", op, err)
	}

	file.AccessURL = uc.accessURL("f", key)

	return file, nil
}

// AccessFile resolves a file for a public request, recording the access and
// bumping the access counter. The caller must close the returned blob.
// Expired files are removed and reported as not found. A file whose payload is
// gone is removed too and leaves no access record.
func (uc *FileUseCase) AccessFile(ctx context.Context, rawKey string, req entity.Requester) (*entity.File, *entity.Blob, error) {
	const op = "usecase.FileUseCase.AccessFile"

	file, err := uc.lookup(ctx, rawKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	blob, err := uc.blobs.Get(ctx, file.BlobPath)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			if err := uc.remove(ctx, file); err != nil {
				uc.logger.WarnContext(ctx, "failed to remove file without payload",
					slog.String("key", file.Key),
					slog.Any("err", err),
				)
			}
			return nil, nil, fmt.Errorf("%s: %s: %w", op, file.Key, entity.ErrPayloadMissing)
		}

		return nil, nil, fmt.Errorf("%s: failed to open payload: %w", op, err)
	}

	access := &entity.Access{
		Key:       file.Key,
		AccessAt:  uc.now(),
		Requester: req,
	}
	if err := uc.accessRepo.Record(ctx, access); err != nil {
		blob.Body.Close()
		return nil, nil, fmt.Errorf("%s: failed to record access: %w", op, err)
	}

	if err := uc.fileRepo.IncrementAccessCount(ctx, file.Key); err != nil {
		uc.logger.WarnContext(ctx, "failed to increment access count",
			slog.String("op", op),
			slog.String("key", file.Key),
			slog.Any("err", err),
		)
	} else {
		file.AccessCount++
	}

	return file, blob, nil
}

// GetFile returns file metadata without recording an access.
func (uc *FileUseCase) GetFile(ctx context.Context, rawKey string) (*entity.File, error) {
	const op = "usecase.FileUseCase.GetFile"

	file, err := uc.lookup(ctx, rawKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return file, nil
}

// ListFiles returns one page of the unexpired files matching q.
func (uc *FileUseCase) ListFiles(ctx context.Context, q entity.ListQuery) (*entity.Page[entity.File], error) {
	const op = "usecase.FileUseCase.ListFiles"

	q, err := entity.FileSchema.Normalize(q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	q.Now = uc.now()

	files, total, err := uc.fileRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list files: %w", op, err)
	}

	for i := range files {
		files[i].AccessURL = uc.accessURL("f", files[i].Key)
	}

	return &entity.Page[entity.File]{
		Items:    files,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

// GetFileAccesses returns every access record of a key, newest first. Records
// outlive the file they belong to.
func (uc *FileUseCase) GetFileAccesses(ctx context.Context, rawKey string) ([]entity.Access, error) {
	const op = "usecase.FileUseCase.GetFileAccesses"

	key, err := uc.keys.normalize(rawKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	accesses, err := uc.accessRepo.ListByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list accesses: %w", op, err)
	}

	return accesses, nil
}

// DeleteFile removes a file's metadata and payload. Access records are kept.
// Deleting an absent file is not an error.
func (uc *FileUseCase) DeleteFile(ctx context.Context, rawKey string) error {
	const op = "usecase.FileUseCase.DeleteFile"

	key, err := uc.keys.normalize(rawKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	file, err := uc.fileRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: failed to get file: %w", op, err)
	}

	if err := uc.remove(ctx, file); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (uc *FileUseCase) lookup(ctx context.Context, rawKey string) (*entity.File, error) {
	key, err := uc.keys.normalize(rawKey)
	if err != nil {
		return nil, err
	}

	file, err := uc.fileRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	if entity.IsExpired(file.ExpireAt, uc.now()) {
		if err := uc.remove(ctx, file); err != nil {
			uc.logger.WarnContext(ctx, "failed to remove expired file",
				slog.String("key", key),
				slog.Any("err", err),
			)
		}
		return nil, fmt.Errorf("file %s expired: %w", key, entity.ErrNotFound)
	}

	file.AccessURL = uc.accessURL("f", key)

	return file, nil
}

func (uc *FileUseCase) remove(ctx context.Context, file *entity.File) error {
	return removeFile(ctx, uc.fileRepo, uc.blobs, file)
}

type fileDeleter interface {
	Delete(ctx context.Context, key string) error
}

// fileBlobPath returns a fresh payload path for one upload attempt under key.
// Attempts racing for the same key never share a path.
func fileBlobPath(key string) string {
	return "files/" + key + "/" + uuid.NewString()
}

// removeFile deletes the metadata row and then the payload of a file.
func removeFile(ctx context.Context, files fileDeleter, blobs blobStore, file *entity.File) error {
	if err := files.Delete(ctx, file.Key); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if err := blobs.Delete(ctx, file.BlobPath); err != nil {
		return fmt.Errorf("failed to delete payload: %w", err)
	}

	return nil
}

func detectContentType(contentType, filename string) string {
	if contentType != "" {
		return contentType
	}

	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}

	return defaultContentType
}
