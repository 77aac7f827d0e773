package results

import (
	"github.com/oojn4/korika/internal/prediction"
)

// Table is the tabular projection of one page for one column group.
type Table struct {
	Group   prediction.Group
	Headers []string
	Rows    [][]string
}

// Table projects the current page onto the current column group.
func (s State) Table() Table {
	return s.TableFor(s.group)
}

// TableFor projects the current page onto the given column group. Every
// group sees the same page of the same filtered records.
func (s State) TableFor(g prediction.Group) Table {
	page := s.PageRecords()
	rows := make([][]string, len(page))
	for i, r := range page {
		rows[i] = prediction.Row(r, g)
	}
	return Table{
		Group:   g,
		Headers: prediction.Headers(g),
		Rows:    rows,
	}
}

// Tables projects the current page onto every column group in tab order.
func (s State) Tables() []Table {
	tables := make([]Table, len(prediction.Groups))
	for i, g := range prediction.Groups {
		tables[i] = s.TableFor(g)
	}
	return tables
}

// PageInfo summarises the pagination position for status lines.
type PageInfo struct {
	Page       int
	TotalPages int
	PageSize   int
	Filtered   int
	Total      int
	// From and To are 1-indexed positions of the first and last record on
	// the page within the filtered records; both are 0 on an empty page.
	From int
	To   int
}

// PageInfo returns the current pagination position.
func (s State) PageInfo() PageInfo {
	info := PageInfo{
		Page:       s.page,
		TotalPages: s.TotalPages(),
		PageSize:   s.pageSize,
		Filtered:   len(s.filtered),
		Total:      len(s.records),
	}
	if n := len(s.PageRecords()); n > 0 {
		info.From = (s.page-1)*s.pageSize + 1
		info.To = info.From + n - 1
	}
	return info
}
