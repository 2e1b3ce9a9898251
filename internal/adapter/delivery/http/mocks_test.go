package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
	"github.com/vadimbarashkov/linkdrop/internal/usecase"
)

type MockLinkUseCase struct {
	mock.Mock
}

func (m *MockLinkUseCase) CreateLink(ctx context.Context, destination string, ttlDays int) (*entity.Link, error) {
	args := m.Called(ctx, destination, ttlDays)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (m *MockLinkUseCase) AccessLink(ctx context.Context, rawKey string, req entity.Requester) (*entity.Link, error) {
	args := m.Called(ctx, rawKey, req)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (m *MockLinkUseCase) GetLink(ctx context.Context, rawKey string) (*entity.Link, error) {
	args := m.Called(ctx, rawKey)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (m *MockLinkUseCase) ListLinks(ctx context.Context, q entity.ListQuery) (*entity.Page[entity.Link], error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(*entity.Page[entity.Link])
	return page, args.Error(1)
}

func (m *MockLinkUseCase) GetLinkAccesses(ctx context.Context, rawKey string) ([]entity.Access, error) {
	args := m.Called(ctx, rawKey)
	accesses, _ := args.Get(0).([]entity.Access)
	return accesses, args.Error(1)
}

func (m *MockLinkUseCase) DeleteLink(ctx context.Context, rawKey string) error {
	args := m.Called(ctx, rawKey)
	return args.Error(0)
}

type MockFileUseCase struct {
	mock.Mock
}

func (m *MockFileUseCase) CreateFile(ctx context.Context, in usecase.FileUpload) (*entity.File, error) {
	args := m.Called(ctx, in)
	file, _ := args.Get(0).(*entity.File)
	return file, args.Error(1)
}

func (m *MockFileUseCase) AccessFile(ctx context.Context, rawKey string, req entity.Requester) (*entity.File, *entity.Blob, error) {
	args := m.Called(ctx, rawKey, req)
	file, _ := args.Get(0).(*entity.File)
	blob, _ := args.Get(1).(*entity.Blob)
	return file, blob, args.Error(2)
}

func (m *MockFileUseCase) GetFile(ctx context.Context, rawKey string) (*entity.File, error) {
	args := m.Called(ctx, rawKey)
	file, _ := args.Get(0).(*entity.File)
	return file, args.Error(1)
}

func (m *MockFileUseCase) ListFiles(ctx context.Context, q entity.ListQuery) (*entity.Page[entity.File], error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(*entity.Page[entity.File])
	return page, args.Error(1)
}

func (m *MockFileUseCase) GetFileAccesses(ctx context.Context, rawKey string) ([]entity.Access, error) {
	args := m.Called(ctx, rawKey)
	accesses, _ := args.Get(0).([]entity.Access)
	return accesses, args.Error(1)
}

func (m *MockFileUseCase) DeleteFile(ctx context.Context, rawKey string) error {
	args := m.Called(ctx, rawKey)
	return args.Error(0)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Sweep(ctx context.Context) (*usecase.SweepReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*usecase.SweepReport)
	return report, args.Error(1)
}
