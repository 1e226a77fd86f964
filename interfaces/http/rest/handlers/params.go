package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"rxsync/pkg/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ParseListQuery normalizes the listing parameters every collection
// endpoint accepts: page, limit, sortBy, sortOrder, search and filter.*
// equality filters.
func ParseListQuery(r *http.Request) pagination.Query {
	params := r.URL.Query()

	query := pagination.Query{
		Page:      intParam(params.Get("page"), 1),
		Limit:     intParam(params.Get("limit"), defaultPageSize),
		SortBy:    params.Get("sortBy"),
		SortOrder: pagination.Order(params.Get("sortOrder")),
		Search:    params.Get("search"),
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = defaultPageSize
	}
	if query.Limit > maxPageSize {
		query.Limit = maxPageSize
	}
	if query.SortOrder != pagination.OrderDesc {
		query.SortOrder = pagination.OrderAsc
	}
	query.Offset = (query.Page - 1) * query.Limit

	for key, values := range params {
		if !strings.HasPrefix(key, "filter.") || len(values) == 0 {
			continue
		}
		if query.Filters == nil {
			query.Filters = make(map[string]interface{})
		}
		query.Filters[strings.TrimPrefix(key, "filter.")] = values[0]
	}

	return query
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// pageSlice clamps the query window to the collection bounds
func pageSlice(total int, query pagination.Query) (int, int) {
	start := query.Offset
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return start, end
}
