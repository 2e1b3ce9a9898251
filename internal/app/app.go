package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkdrop/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/linkdrop/internal/adapter/storage/badger"
	"github.com/vadimbarashkov/linkdrop/internal/adapter/storage/s3"
	"github.com/vadimbarashkov/linkdrop/internal/config"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
	"github.com/vadimbarashkov/linkdrop/internal/usecase"
	"github.com/vadimbarashkov/linkdrop/pkg/middleware/ratelimit"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/linkdrop/internal/adapter/delivery/http"
	pgpkg "github.com/vadimbarashkov/linkdrop/pkg/postgres"
)

const appName = "linkdrop"

type blobStore interface {
	Put(ctx context.Context, path string, body io.Reader, contentType, filename string) (int64, error)
	Get(ctx context.Context, path string) (*entity.Blob, error)
	Delete(ctx context.Context, path string) error
}

// NewLogger returns the request logger used by the router and the use cases.
func NewLogger(env string) *httplog.Logger {
	return httplog.NewLogger(appName, httplog.Options{
		JSON:     env != config.EnvDev,
		LogLevel: slog.LevelInfo,
		Concise:  env == config.EnvDev,
		Tags: map[string]string{
			"env": env,
		},
	})
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg.Env)

	db, err := pgpkg.New(
		ctx,
		cfg.Postgres.DSN(),
		pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		pgpkg.WithConnectRetry(cfg.Postgres.ConnectAttempts, cfg.Postgres.ConnectRetryDelay),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	version, err := pgpkg.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

	blobs, closeBlobs, err := openBlobStore(cfg.BlobStore)
	if err != nil {
		return fmt.Errorf("%s: failed to open blob store: %w", op, err)
	}
	defer func() {
		if err := closeBlobs(); err != nil {
			logger.Error("failed to close blob store", slog.Any("err", err))
		}
	}()
	logger.Info("blob store ready", slog.String("driver", cfg.BlobStore.Driver))

	links, files, sweeper := newUseCases(db, blobs, cfg, logger.Logger)

	routerOpts := []delivery.RouterOption{
		delivery.WithMaxUploadSize(int64(cfg.MaxUploadSize)),
		delivery.WithDocsPath(cfg.HTTPServer.DocsPath),
	}
	if cfg.RateLimit.Enabled {
		var limitOpts []ratelimit.Option
		if cfg.RateLimit.ClientIPHeader != "" {
			limitOpts = append(limitOpts, ratelimit.WithClientIPHeader(cfg.RateLimit.ClientIPHeader))
		}

		limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limitOpts...)
		routerOpts = append(routerOpts, delivery.WithPublicMiddleware(limiter.Middleware))
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, links, files, sweeper, routerOpts...),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("max_upload_size", cfg.MaxUploadSize.String()),
		)

		if cfg.HTTPServer.CertFile != "" && cfg.HTTPServer.KeyFile != "" {
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	if cfg.Sweeper.Interval > 0 {
		g.Go(func() error {
			return sweeper.Run(ctx, cfg.Sweeper.Interval)
		})
	}

	return g.Wait()
}

func newUseCases(
	db *sqlx.DB,
	blobs blobStore,
	cfg *config.Config,
	logger *slog.Logger,
) (*usecase.LinkUseCase, *usecase.FileUseCase, *usecase.Sweeper) {
	opts := []usecase.Option{
		usecase.WithKeyLength(cfg.KeyLength),
		usecase.WithBaseURL(cfg.BaseURL),
		usecase.WithLogger(logger),
	}

	linkRepo := postgres.NewLinkRepository(db)
	fileRepo := postgres.NewFileRepository(db)

	links := usecase.NewLinkUseCase(linkRepo, postgres.NewLinkAccessRepository(db), opts...)
	files := usecase.NewFileUseCase(fileRepo, postgres.NewFileAccessRepository(db), blobs, opts...)
	sweeper := usecase.NewSweeper(linkRepo, fileRepo, blobs, opts...)

	return links, files, sweeper
}

// openBlobStore builds the configured payload store and a func releasing it.
func openBlobStore(cfg config.BlobStore) (blobStore, func() error, error) {
	switch cfg.Driver {
	case config.BlobDriverS3:
		store, err := s3.NewBlobStore(cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case config.BlobDriverBadger:
		store, err := badger.Open(cfg.Badger.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob store driver %q", cfg.Driver)
	}
}
