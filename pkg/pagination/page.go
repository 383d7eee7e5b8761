// Package pagination provides page/limit normalization for list endpoints.
package pagination

const (
	// DefaultPageSize is the page size used when the client does not specify one
	DefaultPageSize = 20
	// MaxPageSize is the maximum allowed page size
	MaxPageSize = 100
)

// Page represents a normalized pagination window.
type Page struct {
	Number int // 1-based page number
	Size   int
}

// Normalize clamps a raw (page, pageSize) pair into valid bounds.
func Normalize(page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Page{Number: page, Size: pageSize}
}

// Offset returns the number of items preceding this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
