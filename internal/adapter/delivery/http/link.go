package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

const maxDestinationBytes = 64 << 10

type linkUseCase interface {
	CreateLink(ctx context.Context, destination string, ttlDays int) (*entity.Link, error)
	AccessLink(ctx context.Context, rawKey string, req entity.Requester) (*entity.Link, error)
	GetLink(ctx context.Context, rawKey string) (*entity.Link, error)
	ListLinks(ctx context.Context, q entity.ListQuery) (*entity.Page[entity.Link], error)
	GetLinkAccesses(ctx context.Context, rawKey string) ([]entity.Access, error)
	DeleteLink(ctx context.Context, rawKey string) error
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate) *linkHandler {
	return &linkHandler{
		useCase:  useCase,
		validate: validate,
	}
}

// createLink stores the raw request body as the destination of a new link.
// Bodies over maxDestinationBytes are rejected, never cut short.
func (h *linkHandler) createLink(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDestinationBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, payloadTooLargeResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if len(body) == 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, emptyRequestBodyResponse)
		return
	}

	req := createLinkRequest{Destination: string(body)}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, err := h.useCase.CreateLink(r.Context(), req.Destination, ttlDays(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, createdResponse{Key: link.Key, AccessURL: link.AccessURL})
}

// accessLink redirects to the destination and records the access.
func (h *linkHandler) accessLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.useCase.AccessLink(r.Context(), chi.URLParam(r, "key"), requesterFromRequest(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	// The destination is opaque and sent back verbatim.
	w.Header().Set("Location", link.Destination)
	w.WriteHeader(http.StatusFound)
}

func (h *linkHandler) getLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.useCase.GetLink(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	req := listLinksRequest{
		listRequest: readListRequest(r),
		Dest:        r.URL.Query().Get("dest"),
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	q, err := req.toListQuery()
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidInputResponse)
		return
	}

	if req.Dest != "" {
		q.Filter = append(q.Filter, entity.Predicate{Column: "destination", Op: entity.OpContains, Value: req.Dest})
	}

	page, err := h.useCase.ListLinks(r.Context(), q)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toPageResponse(page, toLinkResponse))
}

func (h *linkHandler) getLinkAccesses(w http.ResponseWriter, r *http.Request) {
	accesses, err := h.useCase.GetLinkAccesses(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toAccessResponses(accesses))
}

func (h *linkHandler) deleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.useCase.DeleteLink(r.Context(), chi.URLParam(r, "key")); err != nil {
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
