package pagination

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Order is a sort direction
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// PaginationInfo contains pagination metadata for a response
type PaginationInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// CalculateTotalPages calculates total number of pages
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// BuildPaginationMeta builds pagination metadata
func BuildPaginationMeta(page, pageSize, total int) *PaginationInfo {
	totalPages := CalculateTotalPages(total, pageSize)

	return &PaginationInfo{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Query is the normalized server-side pagination descriptor embedded in
// cache keys and sent to the remote API
type Query struct {
	Page      int                    `json:"page"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
	SortBy    string                 `json:"sortBy,omitempty"`
	SortOrder Order                  `json:"sortOrder,omitempty"`
	Search    string                 `json:"search,omitempty"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
}

// CacheKey renders the query as a canonical cache-key qualifier. Filter
// keys are sorted so equal states always produce equal keys.
func (q Query) CacheKey() string {
	key := fmt.Sprintf("p%d-l%d", q.Page, q.Limit)
	if q.SortBy != "" {
		key += fmt.Sprintf("-s%s.%s", q.SortBy, q.SortOrder)
	}
	if q.Search != "" {
		key += "-q" + q.Search
	}
	if len(q.Filters) > 0 {
		keys := make([]string, 0, len(q.Filters))
		for k := range q.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key += fmt.Sprintf("-f%s.%v", k, q.Filters[k])
		}
	}
	return key
}

// Values renders the query as URL query parameters for the remote API
func (q Query) Values() url.Values {
	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("limit", strconv.Itoa(q.Limit))
	if q.SortBy != "" {
		values.Set("sortBy", q.SortBy)
		values.Set("sortOrder", string(q.SortOrder))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	for k, v := range q.Filters {
		values.Set("filter."+k, fmt.Sprintf("%v", v))
	}
	return values
}
