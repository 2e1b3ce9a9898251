package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

type linkRepository interface {
	Save(ctx context.Context, link *entity.Link) error
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*entity.Link, error)
	List(ctx context.Context, q entity.ListQuery) ([]entity.Link, int64, error)
	IncrementAccessCount(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// LinkUseCase manages links and their access records.
type LinkUseCase struct {
	settings
	keys       keyAllocator
	linkRepo   linkRepository
	accessRepo accessRepository
}

func NewLinkUseCase(linkRepo linkRepository, accessRepo accessRepository, opts ...Option) *LinkUseCase {
	s := newSettings(opts)

	return &LinkUseCase{
		settings:   s,
		keys:       newKeyAllocator(s.keyLength),
		linkRepo:   linkRepo,
		accessRepo: accessRepo,
	}
}

// CreateLink stores destination under a freshly allocated key. A ttlDays of zero
// or less creates a link that never expires.
func (uc *LinkUseCase) CreateLink(ctx context.Context, destination string, ttlDays int) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.CreateLink"

	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("%s: empty destination: %w", op, entity.ErrInvalidInput)
	}

	now := uc.now()
	link := &entity.Link{
		Destination: destination,
		CreatedAt:   now,
		ExpireAt:    entity.ExpireAfterDays(now, ttlDays),
	}

	key, err := uc.keys.allocate(ctx, uc.linkRepo.Exists, func(ctx context.Context, key string) error {
		link.Key = key
		return uc.linkRepo.Save(ctx, link)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create link: %w", op, err)
	}

	link.AccessURL = uc.accessURL("s", key)

	return link, nil
}

// AccessLink resolves a link for a public request, recording the access and
// bumping the access counter. Expired links are removed and reported as not found.
func (uc *LinkUseCase) AccessLink(ctx context.Context, rawKey string, req entity.Requester) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.AccessLink"

	link, err := uc.lookup(ctx, rawKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	access := &entity.Access{
		Key:       link.Key,
		AccessAt:  uc.now(),
		Requester: req,
	}
	if err := uc.accessRepo.Record(ctx, access); err != nil {
		return nil, fmt.Errorf("%s: failed to record access: %w", op, err)
	}

	if err := uc.linkRepo.IncrementAccessCount(ctx, link.Key); err != nil {
		uc.logger.WarnContext(ctx, "failed to increment access count",
			slog.String("op", op),
			slog.String("key", link.Key),
			slog.Any("err", err),
		)
	} else {
		link.AccessCount++
	}

	return link, nil
}

// GetLink returns a link without recording an access.
func (uc *LinkUseCase) GetLink(ctx context.Context, rawKey string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.GetLink"

	link, err := uc.lookup(ctx, rawKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

// ListLinks returns one page of the unexpired links matching q.
func (uc *LinkUseCase) ListLinks(ctx context.Context, q entity.ListQuery) (*entity.Page[entity.Link], error) {
	const op = "usecase.LinkUseCase.ListLinks"

	q, err := entity.LinkSchema.Normalize(q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	q.Now = uc.now()

	links, total, err := uc.linkRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	for i := range links {
		links[i].AccessURL = uc.accessURL("s", links[i].Key)
	}

	return &entity.Page[entity.Link]{
		Items:    links,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

// GetLinkAccesses returns every access record of a key, newest first.
func (uc *LinkUseCase) GetLinkAccesses(ctx context.Context, rawKey string) ([]entity.Access, error) {
	const op = "usecase.LinkUseCase.GetLinkAccesses"

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

// DeleteLink removes a link together with its access records. Deleting an
// absent link is not an error.
func (uc *LinkUseCase) DeleteLink(ctx context.Context, rawKey string) error {
	const op = "usecase.LinkUseCase.DeleteLink"

	key, err := uc.keys.normalize(rawKey)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := uc.remove(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// lookup fetches an unexpired link, deleting it when it has expired.
func (uc *LinkUseCase) lookup(ctx context.Context, rawKey string) (*entity.Link, error) {
	key, err := uc.keys.normalize(rawKey)
	if err != nil {
		return nil, err
	}

	link, err := uc.linkRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	if entity.IsExpired(link.ExpireAt, uc.now()) {
		if err := uc.remove(ctx, key); err != nil {
			uc.logger.WarnContext(ctx, "failed to remove expired link",
				slog.String("key", key),
				slog.Any("err", err),
			)
		}
		return nil, fmt.Errorf("link %s expired: %w", key, entity.ErrNotFound)
	}

	link.AccessURL = uc.accessURL("s", key)

	return link, nil
}

// remove deletes the link row and cascades to its access records.
func (uc *LinkUseCase) remove(ctx context.Context, key string) error {
	if err := uc.linkRepo.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if err := uc.accessRepo.DeleteByKey(ctx, key); err != nil {
		return fmt.Errorf("failed to delete link accesses: %w", err)
	}

	return nil
}
