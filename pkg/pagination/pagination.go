package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

// Page describes one window of a paginated collection.
type Page struct {
	Number     int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
	Summary    string `json:"summary"`
}

// ParsePage reads a page query value leniently. Missing, non-numeric and
// non-positive values all mean the first page.
func ParsePage(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// TotalPages returns the number of pages needed for totalCount items. An
// empty collection still has one (empty) page.
func TotalPages(totalCount, perPage int) int {
	if perPage < 1 || totalCount <= 0 {
		return 1
	}
	pages := totalCount / perPage
	if totalCount%perPage > 0 {
		pages++
	}
	return pages
}

// NewPage builds the window for the requested page. A request beyond the last
// page is clamped to the last page.
func NewPage(requested, perPage, totalCount int) Page {
	if perPage < 1 {
		perPage = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}
	totalPages := TotalPages(totalCount, perPage)

	number := requested
	if number < 1 {
		number = 1
	}
	if number > totalPages {
		number = totalPages
	}

	p := Page{
		Number:     number,
		PerPage:    perPage,
		TotalCount: totalCount,
		TotalPages: totalPages,
		HasNext:    number < totalPages,
		HasPrev:    number > 1,
	}
	if totalCount > 0 {
		p.StartIndex = (number-1)*perPage + 1
		p.EndIndex = min(number*perPage, totalCount)
	}
	p.Summary = fmt.Sprintf("Showing %d to %d out of %d", p.StartIndex, p.EndIndex, p.TotalCount)
	return p
}

// Offset returns the number of items that precede the window.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit returns the window size.
func (p Page) Limit() int {
	return p.PerPage
}
