// Package entity defines the entities and errors used in the application.
// It includes the Link and File directory entries, the access records
// produced when an entry is served, and the error definitions shared by
// every layer.
package entity

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrInvalidInput is returned when a request is missing a required value or carries a malformed one.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidKey is returned when a key is shorter than the configured key length.
	ErrInvalidKey = errors.New("invalid key")
	// ErrNotFound is returned when an entry is absent or has expired.
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicateKey is returned by a store when the key is already taken within its kind.
	ErrDuplicateKey = errors.New("key exists")
	// ErrAllocationExhausted is returned when no free key was found within the retry bound.
	ErrAllocationExhausted = errors.New("key allocation exhausted")
	// ErrStoreUnavailable is returned when the metadata or blob store call fails.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrPayloadMissing is returned when a file entry exists but its blob does not.
	ErrPayloadMissing = errors.New("payload missing")
)

// Kind distinguishes the two entry namespaces.
type Kind string

const (
	KindLink Kind = "link"
	KindFile Kind = "file"
)

func (k Kind) String() string {
	return string(k)
}

// Link maps a key to a redirect destination.
type Link struct {
	Key         string     // Key is the allocated identifier, unique among links.
	Destination string     // Destination is stored verbatim and need not be a URL.
	CreatedAt   time.Time  // CreatedAt is set once at creation.
	ExpireAt    *time.Time // ExpireAt is nil when the link never expires.
	AccessCount int64      // AccessCount is the number of audited accesses.
	AccessURL   string     // AccessURL is the public address of the link; it is not persisted.
}

// File maps a key to a stored binary object.
type File struct {
	Key         string
	MIME        string
	Filename    string
	Size        int64
	BlobPath    string // BlobPath locates the payload in the blob store. Each upload gets its own.
	CreatedAt   time.Time
	ExpireAt    *time.Time
	AccessCount int64
	AccessURL   string
}

// Requester carries the optional metadata describing who accessed an entry.
// Empty fields mean the value was not supplied.
type Requester struct {
	IP        string
	Country   string
	City      string
	UserAgent string
	Referer   string
}

// Access is one audit record of a successful public access.
type Access struct {
	ID       int64
	Key      string
	AccessAt time.Time
	Requester
}

// Blob is a stored payload opened for reading. The caller must close Body.
type Blob struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}
