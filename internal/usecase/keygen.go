package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vadimbarashkov/linkdrop/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// KeyAlphabet holds the symbols keys are drawn from. Characters that are easily
// confused in print (I, L, i, l, 1) are left out.
const KeyAlphabet = "ABCDEFGHJKMNOPQRSTUVWXYZabcdefghjkmnopqrstuvwxyz023456789"

const (
	DefaultKeyLength = 10
	maxKeyAttempts   = 10
)

type keyAllocator struct {
	alphabet string
	length   int
}

func newKeyAllocator(length int) keyAllocator {
	if length <= 0 {
		length = DefaultKeyLength
	}
	return keyAllocator{alphabet: KeyAlphabet, length: length}
}

// allocate draws random candidates until one is free in the namespace checked by
// exists and is accepted by insert. A candidate rejected by insert with
// entity.ErrDuplicateKey lost a race with a concurrent allocator and is replaced
// by a fresh one. After maxKeyAttempts candidates entity.ErrAllocationExhausted
// is returned.
func (a keyAllocator) allocate(
	ctx context.Context,
	exists func(ctx context.Context, key string) (bool, error),
	insert func(ctx context.Context, key string) error,
) (string, error) {
	const op = "usecase.keyAllocator.allocate"

	for i := 0; i < maxKeyAttempts; i++ {
		key, err := gonanoid.Generate(a.alphabet, a.length)
		if err != nil {
			return "", fmt.Errorf("%s: failed to generate key: %w", op, err)
		}

		taken, err := exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check key: %w", op, err)
		}
		if taken {
			continue
		}

		if err := insert(ctx, key); err != nil {
			if errors.Is(err, entity.ErrDuplicateKey) {
				continue
			}

			return "", fmt.Errorf("%s: %w", op, err)
		}

		return key, nil
	}

	return "", fmt.Errorf("%s: %d attempts of length %d: %w", op, maxKeyAttempts, a.length, entity.ErrAllocationExhausted)
}

// normalize validates a raw key taken from a request. Anything after the first
// length characters is ignored; the rest must come from the alphabet.
func (a keyAllocator) normalize(rawKey string) (string, error) {
	const op = "usecase.keyAllocator.normalize"

	if len(rawKey) < a.length {
		return "", fmt.Errorf("%s: key %q is shorter than %d: %w", op, rawKey, a.length, entity.ErrInvalidKey)
	}

	key := rawKey[:a.length]
	if i := strings.IndexFunc(key, func(r rune) bool {
		return !strings.ContainsRune(a.alphabet, r)
	}); i >= 0 {
		return "", fmt.Errorf("%s: key %q has a symbol outside the alphabet at %d: %w", op, key, i, entity.ErrInvalidKey)
	}

	return key, nil
}
