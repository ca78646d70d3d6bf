package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query describes one page of a collection request.
type Query struct {
	Offset  int
	Limit   int
	Search  string
	Filters map[string]string
	Sorts   []Sort
}

type Sort struct {
	Field string
	Desc  bool
}

// ParseSorts turns sort[field]=asc|desc pairs into sorts ordered by field name.
func ParseSorts(values map[string]string) []Sort {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	sorts := make([]Sort, 0, len(names))
	for _, name := range names {
		sorts = append(sorts, Sort{Field: name, Desc: strings.EqualFold(values[name], "desc")})
	}
	return sorts
}

// Filter narrows a query by a filter[...] value.
type Filter func(db *gorm.DB, value string) *gorm.DB

// Columns whitelists what a collection may be searched, filtered and sorted by.
// Unknown filter and sort keys are ignored.
type Columns struct {
	Search  []string
	Filters map[string]Filter
	Sorts   map[string]string
	// Preloads are applied to the data query only.
	Preloads []string
}

// Page is a slice of a collection. To is the offset of the last returned row.
type Page[T any] struct {
	From  int   `json:"from"`
	To    int   `json:"to"`
	Total int64 `json:"total"`
	Data  []T   `json:"data"`
}

// Normalize clamps offset and limit into their allowed ranges.
func (q Query) Normalize() Query {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = types.DefaultPageSize
	}
	if q.Limit > types.MaxPageSize {
		q.Limit = types.MaxPageSize
	}
	return q
}

// Collect returns one page of T. base carries the caller's own scope
// (visibility, parent entity) and is not modified.
func Collect[T any](ctx context.Context, base *gorm.DB, q Query, cols Columns) (*Page[T], error) {
	q = q.Normalize()

	build := func() *gorm.DB {
		query := base.Session(&gorm.Session{}).WithContext(ctx).Model(new(T))

		if search := strings.TrimSpace(q.Search); search != "" && len(cols.Search) > 0 {
			pattern := "%" + strings.ToLower(search) + "%"
			conds := make([]string, 0, len(cols.Search))
			args := make([]any, 0, len(cols.Search))
			for _, column := range cols.Search {
				conds = append(conds, "LOWER("+column+") LIKE ?")
				args = append(args, pattern)
			}
			query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
		}

		keys := make([]string, 0, len(q.Filters))
		for key := range q.Filters {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if filter, ok := cols.Filters[key]; ok {
				query = filter(query, q.Filters[key])
			}
		}

		return query
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return nil, apperrors.Wrap("collection", err)
	}

	query := build()
	for _, p := range cols.Preloads {
		query = query.Preload(p)
	}
	for _, s := range q.Sorts {
		if column, ok := cols.Sorts[s.Field]; ok {
			query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column, Raw: true}, Desc: s.Desc})
		}
	}

	query = query.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}})

	data := make([]T, 0, q.Limit)
	if err := query.Offset(q.Offset).Limit(q.Limit).Find(&data).Error; err != nil {
		return nil, apperrors.Wrap("collection", err)
	}

	return &Page[T]{
		From:  q.Offset,
		To:    q.Offset + len(data) - 1,
		Total: total,
		Data:  data,
	}, nil
}

// Equals filters by exact match.
func Equals(column string) Filter {
	return func(db *gorm.DB, value string) *gorm.DB {
		return db.Where(column+" = ?", value)
	}
}

// Contains filters by case-insensitive substring.
func Contains(column string) Filter {
	return func(db *gorm.DB, value string) *gorm.DB {
		return db.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
	}
}

// Bool filters a boolean column by "1"/"true" or "0"/"false".
func Bool(column string) Filter {
	return func(db *gorm.DB, value string) *gorm.DB {
		switch strings.ToLower(value) {
		case "1", "true":
			return db.Where(column+" = ?", true)
		case "0", "false":
			return db.Where(column+" = ?", false)
		}
		return db
	}
}

// NullableEquals filters by exact match, or IS NULL when value is empty.
func NullableEquals(column string) Filter {
	return func(db *gorm.DB, value string) *gorm.DB {
		if value == "" {
			return db.Where(column + " IS NULL")
		}
		return db.Where(column+" = ?", value)
	}
}

// IsSet filters a nullable column by presence: "1"/"true" keeps rows with a
// value, "0"/"false" rows without.
func IsSet(column string) Filter {
	return func(db *gorm.DB, value string) *gorm.DB {
		switch strings.ToLower(value) {
		case "1", "true":
			return db.Where(column + " IS NOT NULL")
		case "0", "false":
			return db.Where(column + " IS NULL")
		}
		return db
	}
}
