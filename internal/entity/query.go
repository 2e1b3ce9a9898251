package entity

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Operator is a comparison a list filter may apply to a column.
type Operator int

const (
	// OpContains matches text columns containing the value as a substring.
	OpContains Operator = iota + 1
	// OpEquals matches enumerable columns equal to the value.
	OpEquals
	// OpBefore matches timestamp columns strictly earlier than the value.
	OpBefore
)

func (op Operator) String() string {
	switch op {
	case OpContains:
		return "contains"
	case OpEquals:
		return "equals"
	case OpBefore:
		return "before"
	default:
		return fmt.Sprintf("operator(%d)", int(op))
	}
}

// Predicate is a single filter condition. A list query holds a conjunction of them.
type Predicate struct {
	Column string
	Op     Operator
	Value  any
}

const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// MaxPage is the highest page a listing serves. Larger pages are clamped to it
// so that the row offset stays within range.
const MaxPage = 1 << 20

// ListQuery is a validated, normalised listing request.
type ListQuery struct {
	Filter   []Predicate
	SortBy   string
	SortDir  string
	Page     int
	PageSize int
	// Now excludes entries already expired at this instant. Zero disables the check.
	Now time.Time
}

// Offset returns the number of rows to skip for the requested page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Schema lists the columns a kind exposes for filtering and sorting.
type Schema struct {
	Kind            Kind
	Filterable      map[string][]Operator
	Sortable        []string
	DefaultSort     string
	DefaultPageSize int
	MaxPageSize     int
}

var LinkSchema = Schema{
	Kind: KindLink,
	Filterable: map[string][]Operator{
		"destination": {OpContains},
		"created_at":  {OpBefore},
		"expire_at":   {OpBefore},
	},
	Sortable:        []string{"created_at", "access_count"},
	DefaultSort:     "created_at",
	DefaultPageSize: 20,
	MaxPageSize:     100,
}

var FileSchema = Schema{
	Kind: KindFile,
	Filterable: map[string][]Operator{
		"filename":   {OpContains},
		"mime":       {OpEquals},
		"created_at": {OpBefore},
		"expire_at":  {OpBefore},
	},
	Sortable:        []string{"created_at", "filesize", "access_count"},
	DefaultSort:     "created_at",
	DefaultPageSize: 50,
	MaxPageSize:     500,
}

// Normalize validates the filter of q against the schema and replaces any
// unknown sort field, sort direction, page or page size with its default.
// Only an invalid filter is reported as an error.
func (s Schema) Normalize(q ListQuery) (ListQuery, error) {
	const op = "entity.Schema.Normalize"

	for _, p := range q.Filter {
		ops, ok := s.Filterable[p.Column]
		if !ok || !slices.Contains(ops, p.Op) {
			return ListQuery{}, fmt.Errorf("%s: %s %s on %s: %w", op, p.Column, p.Op, s.Kind, ErrInvalidInput)
		}

		switch p.Op {
		case OpContains, OpEquals:
			if _, ok := p.Value.(string); !ok {
				return ListQuery{}, fmt.Errorf("%s: %s expects text: %w", op, p.Column, ErrInvalidInput)
			}
		case OpBefore:
			if _, ok := p.Value.(time.Time); !ok {
				return ListQuery{}, fmt.Errorf("%s: %s expects a timestamp: %w", op, p.Column, ErrInvalidInput)
			}
		}
	}

	if !slices.Contains(s.Sortable, q.SortBy) {
		q.SortBy = s.DefaultSort
	}

	switch strings.ToUpper(q.SortDir) {
	case SortAsc:
		q.SortDir = SortAsc
	default:
		q.SortDir = SortDesc
	}

	switch {
	case q.Page < 1:
		q.Page = 1
	case q.Page > MaxPage:
		q.Page = MaxPage
	}

	switch {
	case q.PageSize < 1:
		q.PageSize = s.DefaultPageSize
	case q.PageSize > s.MaxPageSize:
		q.PageSize = s.MaxPageSize
	}

	return q, nil
}

// Page is one page of a filtered listing.
type Page[T any] struct {
	Items    []T
	Total    int64 // Total is the size of the filtered set before pagination.
	Page     int
	PageSize int
}

// TotalPages returns the number of pages needed to hold Total items.
func (p Page[T]) TotalPages() int64 {
	if p.PageSize < 1 {
		return 0
	}
	size := int64(p.PageSize)
	return (p.Total + size - 1) / size
}

// Remaining returns the number of pages after the current one.
func (p Page[T]) Remaining() int64 {
	return max(0, p.TotalPages()-int64(p.Page))
}
