package usecase

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

type MockLinkRepository struct {
	mock.Mock
}

func (r *MockLinkRepository) Save(ctx context.Context, link *entity.Link) error {
	args := r.Called(ctx, link)
	return args.Error(0)
}

func (r *MockLinkRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := r.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (r *MockLinkRepository) Get(ctx context.Context, key string) (*entity.Link, error) {
	args := r.Called(ctx, key)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) List(ctx context.Context, q entity.ListQuery) ([]entity.Link, int64, error) {
	args := r.Called(ctx, q)
	links, _ := args.Get(0).([]entity.Link)
	return links, args.Get(1).(int64), args.Error(2)
}

func (r *MockLinkRepository) IncrementAccessCount(ctx context.Context, key string) error {
	args := r.Called(ctx, key)
	return args.Error(0)
}

func (r *MockLinkRepository) Delete(ctx context.Context, key string) error {
	args := r.Called(ctx, key)
	return args.Error(0)
}

func (r *MockLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := r.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockFileRepository struct {
	mock.Mock
}

func (r *MockFileRepository) Save(ctx context.Context, file *entity.File) error {
	args := r.Called(ctx, file)
	return args.Error(0)
}

func (r *MockFileRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := r.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (r *MockFileRepository) Get(ctx context.Context, key string) (*entity.File, error) {
	args := r.Called(ctx, key)
	file, _ := args.Get(0).(*entity.File)
	return file, args.Error(1)
}

func (r *MockFileRepository) List(ctx context.Context, q entity.ListQuery) ([]entity.File, int64, error) {
	args := r.Called(ctx, q)
	files, _ := args.Get(0).([]entity.File)
	return files, args.Get(1).(int64), args.Error(2)
}

func (r *MockFileRepository) IncrementAccessCount(ctx context.Context, key string) error {
	args := r.Called(ctx, key)
	return args.Error(0)
}

func (r *MockFileRepository) Delete(ctx context.Context, key string) error {
	args := r.Called(ctx, key)
	return args.Error(0)
}

func (r *MockFileRepository) ListExpired(ctx context.Context, now time.Time) ([]entity.File, error) {
	args := r.Called(ctx, now)
	files, _ := args.Get(0).([]entity.File)
	return files, args.Error(1)
}

type MockAccessRepository struct {
	mock.Mock
}

func (r *MockAccessRepository) Record(ctx context.Context, access *entity.Access) error {
	args := r.Called(ctx, access)
	return args.Error(0)
}

func (r *MockAccessRepository) ListByKey(ctx context.Context, key string) ([]entity.Access, error) {
	args := r.Called(ctx, key)
	accesses, _ := args.Get(0).([]entity.Access)
	return accesses, args.Error(1)
}

func (r *MockAccessRepository) DeleteByKey(ctx context.Context, key string) error {
	args := r.Called(ctx, key)
	return args.Error(0)
}

type MockBlobStore struct {
	mock.Mock
}

func (s *MockBlobStore) Put(ctx context.Context, path string, body io.Reader, contentType, filename string) (int64, error) {
	args := s.Called(ctx, path, body, contentType, filename)
	return args.Get(0).(int64), args.Error(1)
}

func (s *MockBlobStore) Get(ctx context.Context, path string) (*entity.Blob, error) {
	args := s.Called(ctx, path)
	blob, _ := args.Get(0).(*entity.Blob)
	return blob, args.Error(1)
}

func (s *MockBlobStore) Delete(ctx context.Context, path string) error {
	args := s.Called(ctx, path)
	return args.Error(0)
}
