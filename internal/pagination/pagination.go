// Package pagination holds the page-window arithmetic used for listing
// top-level tasks. Every function is pure.
package pagination

// Default page size bounds used when none are configured.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizeWith clamps a requested page number and size to usable values.
// A page below 1 becomes 1, a size below 1 becomes defaultSize, and a size
// above a positive maxSize becomes maxSize.
func NormalizeWith(page, size, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}

// Window returns the offset and limit for a 1-based page over total items.
// The limit shrinks to the number of remaining items. A page past the last
// one yields offset total and limit 0, so the multiplication can never
// overflow. Inputs are expected to be normalized.
func Window(page, size, total int) (offset, limit int) {
	if page < 1 || size < 1 || total < 1 {
		return 0, 0
	}
	if page-1 >= TotalPages(total, size) {
		return total, 0
	}
	offset = (page - 1) * size
	if remaining := total - offset; remaining < size {
		return offset, remaining
	}
	return offset, size
}

// TotalPages returns ceil(total/size), or 0 when size is not positive.
func TotalPages(total, size int) int {
	if size < 1 || total < 1 {
		return 0
	}
	return (total-1)/size + 1
}
