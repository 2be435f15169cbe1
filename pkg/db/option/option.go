package option

import (
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// QuerySortBy describes a validated ORDER BY clause.
type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

// WithQuerySortBy builds a sort clause from raw query parameters. Unknown
// fields fall back to created_at.
func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	field := strings.ToLower(strings.TrimSpace(sortBy))
	if field == "" || !allow[field] {
		field = "created_at"
	}
	return QuerySortBy{
		Field: field,
		Desc:  strings.EqualFold(strings.TrimSpace(orderBy), "desc"),
		Allow: allow,
	}
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := sort.Field
		if field == "" {
			field = "created_at"
		}
		if len(sort.Allow) > 0 && !sort.Allow[field] {
			return db
		}
		if sort.Desc {
			return db.Order(field + " DESC")
		}
		return db.Order(field + " ASC")
	})
}
