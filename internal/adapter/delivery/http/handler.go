package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

// Headers set by the edge proxy in front of the service.
const (
	headerConnectingIP = "CF-Connecting-IP"
	headerCountry      = "CF-IPCountry"
	headerCity         = "CF-IPCity"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// renderError writes the response matching a use case error. Unexpected
// errors are attached to the request log entry.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidKey):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidKeyResponse)
	case errors.Is(err, entity.ErrInvalidInput):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidInputResponse)
	case errors.Is(err, entity.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, notFoundResponse)
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
	}
}

func requesterFromRequest(r *http.Request) entity.Requester {
	ip := r.Header.Get(headerConnectingIP)
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}

	return entity.Requester{
		IP:        ip,
		Country:   r.Header.Get(headerCountry),
		City:      r.Header.Get(headerCity),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
}

// atoi parses s leniently: anything that is not an integer yields zero.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ttlDays reads the d query parameter. Missing or malformed values mean no expiration.
func ttlDays(r *http.Request) int {
	return atoi(r.URL.Query().Get("d"))
}

// parseTimestamp accepts unix milliseconds or an RFC 3339 timestamp.
func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, s)
}

func readListRequest(r *http.Request) listRequest {
	q := r.URL.Query()

	return listRequest{
		Page:          q.Get("page"),
		Num:           q.Get("num"),
		OrderBy:       q.Get("order_by"),
		Order:         q.Get("order"),
		CreatedBefore: q.Get("created_before"),
		ExpireBefore:  q.Get("expire_before"),
	}
}

// toListQuery converts the validated shared parameters. Sorting and paging
// values are passed through as given and normalised by the use case.
func (req listRequest) toListQuery() (entity.ListQuery, error) {
	q := entity.ListQuery{
		SortBy:   req.OrderBy,
		SortDir:  req.Order,
		Page:     atoi(req.Page),
		PageSize: atoi(req.Num),
	}

	bounds := []struct{ column, raw string }{
		{"created_at", req.CreatedBefore},
		{"expire_at", req.ExpireBefore},
	}

	for _, b := range bounds {
		if b.raw == "" {
			continue
		}

		t, err := parseTimestamp(b.raw)
		if err != nil {
			return entity.ListQuery{}, err
		}

		q.Filter = append(q.Filter, entity.Predicate{Column: b.column, Op: entity.OpBefore, Value: t})
	}

	return q, nil
}
