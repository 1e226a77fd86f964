// Package pagination holds the page/sort/search/filter state machine shared
// by client-side (slice a loaded array) and server-side (emit a query
// descriptor) consumers. Both modes follow identical transition rules so UI
// code stays mode-agnostic.
package pagination

// State is a snapshot of the controller's fields
type State struct {
	Page      int
	PageSize  int
	Total     int
	SortField string
	SortOrder Order
	Search    string
	Filters   map[string]interface{}
}

// Controller owns pagination state for one listing. It is meant to be
// driven by a single consumer and is not safe for concurrent use.
//
// Invariant: Page always sits in [1, max(TotalPages,1)] after any mutation.
type Controller struct {
	page      int
	pageSize  int
	total     int
	sortField string
	sortOrder Order
	search    string
	filters   map[string]interface{}
}

// DefaultPageSize applies when a controller is created with a non-positive
// page size.
const DefaultPageSize = 20

// NewController creates a controller on page 1
func NewController(pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		page:     1,
		pageSize: pageSize,
		filters:  make(map[string]interface{}),
	}
}

// SetPage moves to page n, clamped into the valid range
func (c *Controller) SetPage(n int) {
	c.page = c.clamp(n)
}

// NextPage advances one page when possible
func (c *Controller) NextPage() { c.SetPage(c.page + 1) }

// PrevPage steps back one page when possible
func (c *Controller) PrevPage() { c.SetPage(c.page - 1) }

// FirstPage jumps to the first page
func (c *Controller) FirstPage() { c.SetPage(1) }

// LastPage jumps to the last known page
func (c *Controller) LastPage() { c.SetPage(c.totalPages()) }

// SetPageSize changes the window size. The old page index is meaningless in
// the new window, so the page resets to 1.
func (c *Controller) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	c.pageSize = n
	c.page = 1
}

// SetSort sets the sort field and order and resets to page 1. Passing an
// empty order toggles the direction when the field is unchanged, and
// defaults to ascending for a new field.
func (c *Controller) SetSort(field string, order Order) {
	if order == "" {
		if field == c.sortField && c.sortOrder == OrderAsc {
			order = OrderDesc
		} else {
			order = OrderAsc
		}
	}
	c.sortField = field
	c.sortOrder = order
	c.page = 1
}

// SetSearch updates the search query and resets to page 1
func (c *Controller) SetSearch(query string) {
	c.search = query
	c.page = 1
}

// SetFilter updates one filter and resets to page 1
func (c *Controller) SetFilter(key string, value interface{}) {
	c.filters[key] = value
	c.page = 1
}

// SetFilters replaces all filters and resets to page 1
func (c *Controller) SetFilters(filters map[string]interface{}) {
	c.filters = make(map[string]interface{}, len(filters))
	for k, v := range filters {
		c.filters[k] = v
	}
	c.page = 1
}

// ClearFilters drops all filters and the search query. Unlike the other
// mutations it leaves the page alone; SetTotal re-clamps it after the next
// fetch.
func (c *Controller) ClearFilters() {
	c.filters = make(map[string]interface{})
	c.search = ""
}

// SetTotal records the total reported by the last fetch and clamps the
// page down when it now exceeds the final page.
func (c *Controller) SetTotal(n int) {
	if n < 0 {
		n = 0
	}
	c.total = n
	c.page = c.clamp(c.page)
}

// Page returns the current page (1-based)
func (c *Controller) Page() int { return c.page }

// PageSize returns the window size
func (c *Controller) PageSize() int { return c.pageSize }

// Total returns the total reported by the last fetch
func (c *Controller) Total() int { return c.total }

// TotalPages returns the derived page count
func (c *Controller) TotalPages() int { return c.totalPages() }

// HasNext reports whether a later page exists
func (c *Controller) HasNext() bool { return c.page < c.totalPages() }

// HasPrev reports whether an earlier page exists
func (c *Controller) HasPrev() bool { return c.page > 1 }

// Snapshot returns a copy of the full state for UI binding
func (c *Controller) Snapshot() State {
	filters := make(map[string]interface{}, len(c.filters))
	for k, v := range c.filters {
		filters[k] = v
	}
	return State{
		Page:      c.page,
		PageSize:  c.pageSize,
		Total:     c.total,
		SortField: c.sortField,
		SortOrder: c.sortOrder,
		Search:    c.search,
		Filters:   filters,
	}
}

// Meta builds response-style pagination metadata from the current state
func (c *Controller) Meta() *PaginationInfo {
	return BuildPaginationMeta(c.page, c.pageSize, c.total)
}

// Descriptor emits the normalized server-side query for the current state
func (c *Controller) Descriptor() Query {
	q := Query{
		Page:      c.page,
		Limit:     c.pageSize,
		Offset:    (c.page - 1) * c.pageSize,
		SortBy:    c.sortField,
		SortOrder: c.sortOrder,
		Search:    c.search,
	}
	if len(c.filters) > 0 {
		q.Filters = make(map[string]interface{}, len(c.filters))
		for k, v := range c.filters {
			q.Filters[k] = v
		}
	}
	return q
}

// Window slices a fully loaded collection to the controller's current page,
// recording the collection length as the total (client-side mode).
func Window[T any](c *Controller, items []T) []T {
	c.SetTotal(len(items))

	start := (c.page - 1) * c.pageSize
	if start >= len(items) {
		return nil
	}
	end := start + c.pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (c *Controller) totalPages() int {
	return CalculateTotalPages(c.total, c.pageSize)
}

// clamp forces a page index into [1, max(totalPages,1)]
func (c *Controller) clamp(page int) int {
	pages := c.totalPages()
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return page
}
