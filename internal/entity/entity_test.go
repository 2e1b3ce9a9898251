package entity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpired(t *testing.T) {
	expireAt := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name     string
		expireAt *time.Time
		now      time.Time
		want     bool
	}{
		{
			name:     "never expires",
			expireAt: nil,
			now:      expireAt.Add(100 * 365 * day),
			want:     false,
		},
		{
			name:     "before expiration",
			expireAt: &expireAt,
			now:      expireAt.Add(-time.Millisecond),
			want:     false,
		},
		{
			name:     "exactly at expiration",
			expireAt: &expireAt,
			now:      expireAt,
			want:     false,
		},
		{
			name:     "after expiration",
			expireAt: &expireAt,
			now:      expireAt.Add(time.Millisecond),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpired(tt.expireAt, tt.now))
		})
	}
}

func TestExpireAfterDays(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	assert.Nil(t, ExpireAfterDays(now, 0))
	assert.Nil(t, ExpireAfterDays(now, -3))

	got := ExpireAfterDays(now, 2)
	require.NotNil(t, got)
	assert.Equal(t, now.Add(48*time.Hour), *got)
	assert.True(t, got.After(now))
}

func TestSchema_Normalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		q, err := LinkSchema.Normalize(ListQuery{SortBy: "filesize", SortDir: "sideways", Page: -1})

		require.NoError(t, err)
		assert.Equal(t, "created_at", q.SortBy)
		assert.Equal(t, SortDesc, q.SortDir)
		assert.Equal(t, 1, q.Page)
		assert.Equal(t, 20, q.PageSize)
	})

	t.Run("file sort fields", func(t *testing.T) {
		q, err := FileSchema.Normalize(ListQuery{SortBy: "filesize", SortDir: "asc", Page: 3, PageSize: 10})

		require.NoError(t, err)
		assert.Equal(t, "filesize", q.SortBy)
		assert.Equal(t, SortAsc, q.SortDir)
		assert.Equal(t, 3, q.Page)
		assert.Equal(t, 10, q.PageSize)
		assert.Equal(t, 20, q.Offset())
	})

	t.Run("page size capped", func(t *testing.T) {
		q, err := LinkSchema.Normalize(ListQuery{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, 100, q.PageSize)

		q, err = FileSchema.Normalize(ListQuery{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, 500, q.PageSize)
	})

	t.Run("page capped", func(t *testing.T) {
		q, err := FileSchema.Normalize(ListQuery{Page: math.MaxInt})
		require.NoError(t, err)
		assert.Equal(t, MaxPage, q.Page)
		assert.Equal(t, (MaxPage-1)*50, q.Offset())
	})

	t.Run("unknown filter column", func(t *testing.T) {
		_, err := LinkSchema.Normalize(ListQuery{
			Filter: []Predicate{{Column: "filename", Op: OpContains, Value: "a"}},
		})

		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("operator not allowed on column", func(t *testing.T) {
		_, err := FileSchema.Normalize(ListQuery{
			Filter: []Predicate{{Column: "mime", Op: OpContains, Value: "image"}},
		})

		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("value of wrong type", func(t *testing.T) {
		_, err := FileSchema.Normalize(ListQuery{
			Filter: []Predicate{{Column: "created_at", Op: OpBefore, Value: "yesterday"}},
		})

		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("valid filter kept in order", func(t *testing.T) {
		filter := []Predicate{
			{Column: "filename", Op: OpContains, Value: "report"},
			{Column: "mime", Op: OpEquals, Value: "application/pdf"},
		}

		q, err := FileSchema.Normalize(ListQuery{Filter: filter})

		require.NoError(t, err)
		assert.Equal(t, filter, q.Filter)
	})
}

func TestPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		page      int
		pageSize  int
		wantPages int64
		wantLeft  int64
	}{
		{name: "empty", total: 0, page: 1, pageSize: 20, wantPages: 0, wantLeft: 0},
		{name: "exact fit", total: 40, page: 1, pageSize: 20, wantPages: 2, wantLeft: 1},
		{name: "partial last page", total: 41, page: 2, pageSize: 20, wantPages: 3, wantLeft: 1},
		{name: "past the end", total: 5, page: 4, pageSize: 20, wantPages: 1, wantLeft: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Page[Link]{Total: tt.total, Page: tt.page, PageSize: tt.pageSize}

			assert.Equal(t, tt.wantPages, p.TotalPages())
			assert.Equal(t, tt.wantLeft, p.Remaining())
		})
	}
}
