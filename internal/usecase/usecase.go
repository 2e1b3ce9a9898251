// Package usecase implements the directory service: creating, serving,
// inspecting, listing and deleting links and files, and sweeping out the ones
// that have expired.
package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

type accessRepository interface {
	Record(ctx context.Context, access *entity.Access) error
	ListByKey(ctx context.Context, key string) ([]entity.Access, error)
	DeleteByKey(ctx context.Context, key string) error
}

type blobStore interface {
	Put(ctx context.Context, path string, body io.Reader, contentType, filename string) (int64, error)
	Get(ctx context.Context, path string) (*entity.Blob, error)
	Delete(ctx context.Context, path string) error
}

// Option configures a use case.
type Option func(*settings)

type settings struct {
	keyLength int
	baseURL   string
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// WithKeyLength sets the length of allocated keys.
func WithKeyLength(n int) Option {
	return func(s *settings) {
		s.keyLength = n
	}
}

// WithBaseURL sets the public address access URLs are built from.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock used for creation times and expiration checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.nowFunc = now
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		keyLength: DefaultKeyLength,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		nowFunc:   time.Now,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// now returns the current time at the millisecond precision entries are stored with.
func (s settings) now() time.Time {
	return time.UnixMilli(s.nowFunc().UnixMilli())
}

func (s settings) accessURL(prefix, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, prefix, key)
}
