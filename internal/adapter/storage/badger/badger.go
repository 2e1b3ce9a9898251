// Package badger stores file payloads in an embedded BadgerDB instance. It
// backs single-node deployments that run without an object store.
//
// A payload is split into chunks kept under data/<path>/<index>. The content
// type under type/<path> is written last and marks the payload as complete.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vadimbarashkov/linkdrop/internal/entity"

	badgerdb "github.com/dgraph-io/badger/v3"
)

const (
	dataPrefix = "data/"
	typePrefix = "type/"

	// chunkSize stays well below the 1MiB value limit of in-memory mode.
	chunkSize = 256 << 10

	gcDiscardRatio = 0.5

	// maxErrLen bounds badger error text, which may quote whole values.
	maxErrLen = 256
)

type BlobStore struct {
	db *badgerdb.DB
}

// Open opens the database in dir. An empty dir keeps everything in memory.
// It is up to the caller to Close the store.
func Open(dir string) (*BlobStore, error) {
	const op = "adapter.storage.badger.Open"

	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open badger db: %w", op, err)
	}

	return &BlobStore{db: db}, nil
}

func (s *BlobStore) Close() error {
	return s.db.Close()
}

func chunkPrefix(path string) []byte {
	return []byte(dataPrefix + path + "/")
}

func chunkKey(path string, i int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08x", dataPrefix, path, i))
}

func storeError(op, msg string, err error) error {
	return fmt.Errorf("%s: %s: %w: %.*s", op, msg, entity.ErrStoreUnavailable, maxErrLen, err.Error())
}

// Put stores the payload in chunks together with its content type under path.
func (s *BlobStore) Put(ctx context.Context, path string, body io.Reader, contentType, _ string) (int64, error) {
	const op = "adapter.storage.badger.BlobStore.Put"

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	var size int64

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		// The batch keeps a reference to every value until it is flushed.
		chunk := make([]byte, chunkSize)

		n, err := io.ReadFull(body, chunk)
		if n > 0 {
			if err := wb.Set(chunkKey(path, i), chunk[:n]); err != nil {
				return 0, storeError(op, "failed to write chunk", err)
			}
			size += int64(n)
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%s: failed to read payload: %w", op, err)
		}
	}

	if err := wb.Set([]byte(typePrefix+path), []byte(contentType)); err != nil {
		return 0, storeError(op, "failed to write content type", err)
	}

	if err := wb.Flush(); err != nil {
		return 0, storeError(op, "failed to flush payload", err)
	}

	return size, nil
}

func (s *BlobStore) Get(ctx context.Context, path string) (*entity.Blob, error) {
	const op = "adapter.storage.badger.BlobStore.Get"

	var (
		data        bytes.Buffer
		contentType []byte
	)

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(typePrefix + path))
		if err != nil {
			return err
		}

		// Values are only valid inside the transaction.
		if contentType, err = item.ValueCopy(nil); err != nil {
			return err
		}

		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = chunkPrefix(path)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := it.Item().Value(func(v []byte) error {
				data.Write(v)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, badgerdb.ErrKeyNotFound):
			return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, storeError(op, "failed to read payload", err)
	}

	return &entity.Blob{
		Body:        io.NopCloser(bytes.NewReader(data.Bytes())),
		Size:        int64(data.Len()),
		ContentType: string(contentType),
	}, nil
}

// Delete removes the payload under path. Deleting an absent payload is not an error.
func (s *BlobStore) Delete(ctx context.Context, path string) error {
	const op = "adapter.storage.badger.BlobStore.Delete"

	keys := [][]byte{[]byte(typePrefix + path)}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = chunkPrefix(path)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}

		return nil
	})
	if err != nil {
		return storeError(op, "failed to list chunks", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return storeError(op, "failed to delete chunk", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return storeError(op, "failed to flush delete", err)
	}

	return nil
}

// Cleanup runs value log garbage collection, reclaiming space held by deleted payloads.
func (s *BlobStore) Cleanup() error {
	const op = "adapter.storage.badger.BlobStore.Cleanup"

	if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) && !errors.Is(err, badgerdb.ErrGCInMemoryMode) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
