package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/vadimbarashkov/linkdrop/internal/entity"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// listStatement is a translated list query: a WHERE clause and its arguments,
// an ORDER BY clause, and the pagination placeholders.
type listStatement struct {
	where   string
	orderBy string
	args    []any
}

func (s *listStatement) bind(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

// countQuery returns the statement counting the filtered rows of table.
func (s *listStatement) countQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, s.where)
}

// pageQuery returns the statement selecting one page of columns from table
// together with its arguments.
func (s *listStatement) pageQuery(table, columns string, q entity.ListQuery) (string, []any) {
	args := append(s.args[:len(s.args):len(s.args)], q.PageSize, q.Offset())
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		columns, table, s.where, s.orderBy, len(args)-1, len(args))
	return query, args
}

// buildListStatement translates q into SQL. Column names are taken only from
// columns, never from the query itself; values are always bound as arguments.
func buildListStatement(q entity.ListQuery, columns map[string]string) (*listStatement, error) {
	const op = "adapter.repository.postgres.buildListStatement"

	s := &listStatement{}
	var conds []string

	for _, p := range q.Filter {
		col, ok := columns[p.Column]
		if !ok {
			return nil, fmt.Errorf("%s: unknown column %q: %w", op, p.Column, entity.ErrInvalidInput)
		}

		switch p.Op {
		case entity.OpContains:
			v, ok := p.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %s expects text: %w", op, p.Column, entity.ErrInvalidInput)
			}
			conds = append(conds, fmt.Sprintf("%s ILIKE %s", col, s.bind("%"+likeEscaper.Replace(v)+"%")))
		case entity.OpEquals:
			conds = append(conds, fmt.Sprintf("%s = %s", col, s.bind(p.Value)))
		case entity.OpBefore:
			v, ok := p.Value.(time.Time)
			if !ok {
				return nil, fmt.Errorf("%s: %s expects a timestamp: %w", op, p.Column, entity.ErrInvalidInput)
			}
			conds = append(conds, fmt.Sprintf("%s < %s", col, s.bind(toMillis(v))))
		default:
			return nil, fmt.Errorf("%s: unsupported operator %s: %w", op, p.Op, entity.ErrInvalidInput)
		}
	}

	if !q.Now.IsZero() {
		conds = append(conds, fmt.Sprintf("(expire_at IS NULL OR expire_at >= %s)", s.bind(toMillis(q.Now))))
	}

	if len(conds) > 0 {
		s.where = " WHERE " + strings.Join(conds, " AND ")
	}

	sortCol, ok := columns[q.SortBy]
	if !ok {
		return nil, fmt.Errorf("%s: unknown sort column %q: %w", op, q.SortBy, entity.ErrInvalidInput)
	}

	dir := entity.SortDesc
	if q.SortDir == entity.SortAsc {
		dir = entity.SortAsc
	}

	s.orderBy = fmt.Sprintf("%s %s, key ASC", sortCol, dir)

	return s, nil
}
