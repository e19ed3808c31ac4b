package thread

import "clubhouse/internal/models"

// MaxPageSize caps the number of roots returned per page.
const MaxPageSize = 100

// Page is one slice of an entity's threads. Only roots are counted and
// sliced; every returned root carries its full reply list.
type Page struct {
	Threads    []Thread `json:"threads"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalRoots int      `json:"total_roots"`
	TotalPages int      `json:"total_pages"`
}

// Paginate returns page number page (1-based) of size roots. A page past the
// end is empty but still reports the total.
func Paginate(threads []Thread, page, size int) (Page, error) {
	if size <= 0 {
		return Page{}, models.NewValidationError("page size must be positive")
	}
	if page <= 0 {
		return Page{}, models.NewValidationError("page number must be positive")
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	total := len(threads)
	out := Page{
		Threads:    []Thread{},
		Page:       page,
		PageSize:   size,
		TotalRoots: total,
		TotalPages: (total + size - 1) / size,
	}

	if page > out.TotalPages {
		return out, nil
	}
	start := (page - 1) * size
	end := min(start+size, total)
	out.Threads = threads[start:end]
	return out, nil
}
