package usecase

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memLinkRepo is an in-memory link store that rejects duplicate keys.
// When blindExists is set, Exists always reports a key as free, so uniqueness
// rests on Save alone.
type memLinkRepo struct {
	mu          sync.Mutex
	links       map[string]entity.Link
	blindExists bool
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{links: make(map[string]entity.Link)}
}

func (r *memLinkRepo) Save(_ context.Context, link *entity.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[link.Key]; ok {
		return entity.ErrDuplicateKey
	}
	r.links[link.Key] = *link
	return nil
}

func (r *memLinkRepo) Exists(_ context.Context, key string) (bool, error) {
	if r.blindExists {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.links[key]
	return ok, nil
}

func (r *memLinkRepo) Get(_ context.Context, key string) (*entity.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[key]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &link, nil
}

func (r *memLinkRepo) List(_ context.Context, q entity.ListQuery) ([]entity.Link, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []entity.Link
	for _, link := range r.links {
		if !q.Now.IsZero() && entity.IsExpired(link.ExpireAt, q.Now) {
			continue
		}
		all = append(all, link)
	}
	slices.SortFunc(all, func(a, b entity.Link) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	start := min(q.Offset(), len(all))
	end := min(start+q.PageSize, len(all))

	return slices.Clone(all[start:end]), int64(len(all)), nil
}

func (r *memLinkRepo) IncrementAccessCount(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[key]
	if !ok {
		return entity.ErrNotFound
	}
	link.AccessCount++
	r.links[key] = link
	return nil
}

func (r *memLinkRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.links, key)
	return nil
}

func (r *memLinkRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key, link := range r.links {
		if link.ExpireAt != nil && link.ExpireAt.Before(now) {
			delete(r.links, key)
			n++
		}
	}
	return n, nil
}

// memFileRepo is the file counterpart of memLinkRepo, with the same blindExists switch.
type memFileRepo struct {
	mu          sync.Mutex
	files       map[string]entity.File
	blindExists bool
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: make(map[string]entity.File)}
}

func (r *memFileRepo) Save(_ context.Context, file *entity.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[file.Key]; ok {
		return entity.ErrDuplicateKey
	}
	r.files[file.Key] = *file
	return nil
}

func (r *memFileRepo) Exists(_ context.Context, key string) (bool, error) {
	if r.blindExists {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.files[key]
	return ok, nil
}

func (r *memFileRepo) Get(_ context.Context, key string) (*entity.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[key]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &file, nil
}

func (r *memFileRepo) List(_ context.Context, q entity.ListQuery) ([]entity.File, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []entity.File
	for _, file := range r.files {
		if !q.Now.IsZero() && entity.IsExpired(file.ExpireAt, q.Now) {
			continue
		}
		all = append(all, file)
	}
	slices.SortFunc(all, func(a, b entity.File) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	start := min(q.Offset(), len(all))
	end := min(start+q.PageSize, len(all))

	return slices.Clone(all[start:end]), int64(len(all)), nil
}

func (r *memFileRepo) IncrementAccessCount(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[key]
	if !ok {
		return entity.ErrNotFound
	}
	file.AccessCount++
	r.files[key] = file
	return nil
}

func (r *memFileRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.files, key)
	return nil
}

func (r *memFileRepo) ListExpired(_ context.Context, now time.Time) ([]entity.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []entity.File
	for _, file := range r.files {
		if file.ExpireAt != nil && file.ExpireAt.Before(now) {
			expired = append(expired, file)
		}
	}
	slices.SortFunc(expired, func(a, b entity.File) int {
		return a.ExpireAt.Compare(*b.ExpireAt)
	})
	return expired, nil
}

type memAccessRepo struct {
	mu       sync.Mutex
	accesses []entity.Access
}

func (r *memAccessRepo) Record(_ context.Context, access *entity.Access) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	access.ID = int64(len(r.accesses) + 1)
	r.accesses = append(r.accesses, *access)
	return nil
}

func (r *memAccessRepo) ListByKey(_ context.Context, key string) ([]entity.Access, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Access
	for i := len(r.accesses) - 1; i >= 0; i-- {
		if r.accesses[i].Key == key {
			out = append(out, r.accesses[i])
		}
	}
	return out, nil
}

func (r *memAccessRepo) DeleteByKey(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accesses = slices.DeleteFunc(r.accesses, func(a entity.Access) bool {
		return a.Key == key
	})
	return nil
}

type memBlob struct {
	data        []byte
	contentType string
	filename    string
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string]memBlob
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string]memBlob)}
}

func (s *memBlobStore) Put(_ context.Context, path string, body io.Reader, contentType, filename string) (int64, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[path] = memBlob{data: data, contentType: contentType, filename: filename}
	return int64(len(data)), nil
}

func (s *memBlobStore) Get(_ context.Context, path string) (*entity.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[path]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &entity.Blob{
		Body:        io.NopCloser(bytes.NewReader(b.data)),
		Size:        int64(len(b.data)),
		ContentType: b.contentType,
	}, nil
}

func (s *memBlobStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, path)
	return nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.blobs)
}

func (s *memBlobStore) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.blobs[path]
	return ok
}
