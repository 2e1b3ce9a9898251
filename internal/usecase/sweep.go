package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

type expiredLinkRepository interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type expiredFileRepository interface {
	ListExpired(ctx context.Context, now time.Time) ([]entity.File, error)
	Delete(ctx context.Context, key string) error
}

// blobCleaner is implemented by blob stores that reclaim space from deleted payloads lazily.
type blobCleaner interface {
	Cleanup() error
}

// SweepReport summarises one sweep.
type SweepReport struct {
	ID           string
	At           time.Time
	LinksDeleted int64
	FilesDeleted int64
}

// Sweeper removes every expired link and file regardless of read traffic.
type Sweeper struct {
	settings
	linkRepo expiredLinkRepository
	fileRepo expiredFileRepository
	blobs    blobStore
}

func NewSweeper(linkRepo expiredLinkRepository, fileRepo expiredFileRepository, blobs blobStore, opts ...Option) *Sweeper {
	return &Sweeper{
		settings: newSettings(opts),
		linkRepo: linkRepo,
		fileRepo: fileRepo,
		blobs:    blobs,
	}
}

// Sweep deletes the links and files that expired before now. Expired link rows
// are removed in bulk and their access records are kept. Each expired file goes
// through the full deletion so its payload is removed with it; the first failing
// file stops the run and the remaining ones are left for the next run.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	const op = "usecase.Sweeper.Sweep"

	report := &SweepReport{
		ID: uuid.NewString(),
		At: s.now(),
	}

	n, err := s.linkRepo.DeleteExpired(ctx, report.At)
	if err != nil {
		return report, fmt.Errorf("%s: failed to delete expired links: %w", op, err)
	}
	report.LinksDeleted = n

	files, err := s.fileRepo.ListExpired(ctx, report.At)
	if err != nil {
		return report, fmt.Errorf("%s: failed to fetch expired files: %w", op, err)
	}

	for i := range files {
		if err := removeFile(ctx, s.fileRepo, s.blobs, &files[i]); err != nil {
			return report, fmt.Errorf("%s: file %s: %w", op, files[i].Key, err)
		}
		report.FilesDeleted++
	}

	if c, ok := s.blobs.(blobCleaner); ok && report.FilesDeleted > 0 {
		if err := c.Cleanup(); err != nil {
			s.logger.WarnContext(ctx, "failed to reclaim blob store space",
				slog.String("run_id", report.ID), slog.Any("err", err))
		}
	}

	return report, nil
}

// Run sweeps once per interval until ctx is done. A failed sweep is logged and
// left for the next tick.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := s.logger.With(slog.String("component", "sweeper"))
	logger.InfoContext(ctx, "starting sweeper", slog.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "sweep failed",
					slog.String("run_id", report.ID),
					slog.Int64("links_deleted", report.LinksDeleted),
					slog.Int64("files_deleted", report.FilesDeleted),
					slog.Any("err", err),
				)
				continue
			}

			logger.InfoContext(ctx, "sweep finished",
				slog.String("run_id", report.ID),
				slog.Int64("links_deleted", report.LinksDeleted),
				slog.Int64("files_deleted", report.FilesDeleted),
			)
		case <-ctx.Done():
			logger.InfoContext(ctx, "stopping sweeper")
			return nil
		}
	}
}
