// Package utils provides small helpers shared across the HTTP layer.
package utils

import "strconv"

// PageParams parses page and page_size query values. Missing or malformed
// values take the fallback, page is floored at 1, and page_size is clamped
// to [1, maxSize] so a single request cannot demand an unbounded page.
func PageParams(pageStr, sizeStr string, defSize, maxSize int) (page, size int) {
	page = atoiOr(pageStr, 1)
	if page < 1 {
		page = 1
	}
	size = atoiOr(sizeStr, defSize)
	if size < 1 {
		size = 1
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
