package qbank

// Page is one slice of a larger list. StartIndex/EndIndex are the requested
// window ([start, end)); EndIndex may exceed the list length — Items is
// always clamped to what exists.
type Page[T any] struct {
	Items      []T
	StartIndex int
	EndIndex   int
}

// Paginate slices items into the given 1-based page. Callers must pass
// page >= 1 and pageSize >= 1 (see ClampPage); there is no wraparound.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	start := (page - 1) * pageSize
	end := start + pageSize

	sliceStart := start
	if sliceStart > len(items) {
		sliceStart = len(items)
	}
	sliceEnd := end
	if sliceEnd > len(items) {
		sliceEnd = len(items)
	}

	return Page[T]{
		Items:      items[sliceStart:sliceEnd],
		StartIndex: start,
		EndIndex:   end,
	}
}

// HasNext reports whether a further page exists. The "Next" control is
// disabled once the window reaches the end of the list.
func (p Page[T]) HasNext(total int) bool {
	return p.EndIndex < total
}

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool {
	return p.StartIndex > 0
}

// TotalPages returns the number of pages needed for total items.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage normalizes page/pageSize to valid values: page at least 1 and at
// most the last non-empty page, pageSize at least 1.
func ClampPage(page, pageSize, total int) (int, int) {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}
	if last := TotalPages(total, pageSize); last > 0 && page > last {
		page = last
	}
	return page, pageSize
}
