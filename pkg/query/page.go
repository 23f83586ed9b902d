package query

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a bounded slice of a filtered sequence plus its metadata.
// Total counts the filtered set, not the whole store.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate slices items into the requested 1-based page. Out-of-range pages
// yield empty Items with correct totals rather than an error.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	page, pageSize = normalize(page, pageSize)
	total := len(items)
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	out := make([]T, 0, pageSize)
	if page <= totalPages {
		start := (page - 1) * pageSize
		end := min(start+pageSize, total)
		out = append(out, items[start:end]...)
	}

	return Page[T]{
		Items:      out,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Map converts the items of a page, keeping its metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, fn(item))
	}
	return Page[U]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// Cursor is the navigation state a caller keeps between page requests.
type Cursor struct {
	Page     int
	PageSize int
}

// NewCursor starts at page 1 with a normalized size.
func NewCursor(pageSize int) Cursor {
	_, size := normalize(1, pageSize)
	return Cursor{Page: 1, PageSize: size}
}

// WithPage moves to page p, keeping the size.
func (c Cursor) WithPage(p int) Cursor {
	c.Page, c.PageSize = normalize(p, c.PageSize)
	return c
}

// WithPageSize changes the size and resets to page 1 so the cursor never
// silently points past the end.
func (c Cursor) WithPageSize(size int) Cursor {
	_, c.PageSize = normalize(1, size)
	c.Page = 1
	return c
}

func normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
