// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

// PageWindow converts a 1-based page number and page size into the
// half-open index range [start, end) over a collection of total items:
//
//	start = (page-1)*pageSize
//	end   = min(start+pageSize, total)
//
// When start is at or past total the window is Empty and sits at total.
// page and pageSize must be positive; callers validate them first. Pages
// far past the end are detected before multiplying, so the window never
// wraps around.
//
// Example:
//
//	w := utils.PageWindow(5, 10, 45) // {Start: 40, End: 45}
//	w.Limit()                        // 5
func PageWindow(page, pageSize, total int) Window {
	if total <= 0 || page-1 > (total-1)/pageSize {
		return Window{Start: total, End: total}
	}
	start := (page - 1) * pageSize
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	return Window{Start: start, End: end}
}

// Window is a half-open index range produced by PageWindow.
type Window struct {
	Start int
	End   int
}

// Empty reports whether the window selects no items.
func (w Window) Empty() bool { return w.End <= w.Start }

// Limit is the number of items the window selects.
func (w Window) Limit() int { return w.End - w.Start }
