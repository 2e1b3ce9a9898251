package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
	"github.com/vadimbarashkov/linkdrop/internal/usecase"
)

const (
	formFileField   = "file"
	maxFormMemory   = 32 << 20
	fileCacheHeader = "public, max-age=604800, immutable"
)

type fileUseCase interface {
	CreateFile(ctx context.Context, in usecase.FileUpload) (*entity.File, error)
	AccessFile(ctx context.Context, rawKey string, req entity.Requester) (*entity.File, *entity.Blob, error)
	GetFile(ctx context.Context, rawKey string) (*entity.File, error)
	ListFiles(ctx context.Context, q entity.ListQuery) (*entity.Page[entity.File], error)
	GetFileAccesses(ctx context.Context, rawKey string) ([]entity.Access, error)
	DeleteFile(ctx context.Context, rawKey string) error
}

type fileHandler struct {
	useCase       fileUseCase
	validate      *validator.Validate
	maxUploadSize int64
}

func newFileHandler(useCase fileUseCase, validate *validator.Validate, maxUploadSize int64) *fileHandler {
	return &fileHandler{
		useCase:       useCase,
		validate:      validate,
		maxUploadSize: maxUploadSize,
	}
}

// createFile stores the multipart field "file" as a new file entry.
func (h *fileHandler) createFile(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
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
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile(formFileField)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, missingFileResponse)
		return
	}
	defer f.Close()

	file, err := h.useCase.CreateFile(r.Context(), usecase.FileUpload{
		Body:        f,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		TTLDays:     ttlDays(r),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, createdResponse{Key: file.Key, AccessURL: file.AccessURL})
}

// accessFile streams the payload and records the access. The dl query
// parameter asks the client to save the file instead of displaying it.
func (h *fileHandler) accessFile(w http.ResponseWriter, r *http.Request) {
	file, blob, err := h.useCase.AccessFile(r.Context(), chi.URLParam(r, "key"), requesterFromRequest(r))
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer blob.Body.Close()

	disposition := "inline"
	if r.URL.Query().Has("dl") {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", file.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.Filename}))
	w.Header().Set("Cache-Control", fileCacheHeader)
	if blob.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, blob.Body); err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
	}
}

func (h *fileHandler) getFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.useCase.GetFile(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toFileResponse(file))
}

func (h *fileHandler) listFiles(w http.ResponseWriter, r *http.Request) {
	req := listFilesRequest{
		listRequest: readListRequest(r),
		Filename:    r.URL.Query().Get("filename"),
		Mime:        r.URL.Query().Get("mime"),
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

	if req.Filename != "" {
		q.Filter = append(q.Filter, entity.Predicate{Column: "filename", Op: entity.OpContains, Value: req.Filename})
	}
	if req.Mime != "" {
		q.Filter = append(q.Filter, entity.Predicate{Column: "mime", Op: entity.OpEquals, Value: req.Mime})
	}

	page, err := h.useCase.ListFiles(r.Context(), q)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toPageResponse(page, toFileResponse))
}

func (h *fileHandler) getFileAccesses(w http.ResponseWriter, r *http.Request) {
	accesses, err := h.useCase.GetFileAccesses(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toAccessResponses(accesses))
}

func (h *fileHandler) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.useCase.DeleteFile(r.Context(), chi.URLParam(r, "key")); err != nil {
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
