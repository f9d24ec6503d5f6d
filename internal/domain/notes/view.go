package notes

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortTitleAsc  SortKey = "title-asc"
	SortTitleDesc SortKey = "title-desc"
)

// FilterAll disables the note type filter.
const FilterAll = "all"

const DefaultPageSize = 10

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortTitleAsc, SortTitleDesc:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseFilter accepts "all" (or blank) and the note types.
func ParseFilter(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == FilterAll {
		return FilterAll, nil
	}
	t, err := ParseType(s)
	if err != nil {
		return "", err
	}
	return string(t), nil
}

// Filter keeps notes of the given type; FilterAll keeps everything.
func Filter(list []Note, typeFilter string) []Note {
	out := make([]Note, 0, len(list))
	for _, n := range list {
		if typeFilter == FilterAll || typeFilter == "" || string(n.NoteType) == typeFilter {
			out = append(out, n)
		}
	}
	return out
}

// Search keeps notes whose title, formatted text or type contains the
// query, ignoring case. A blank query matches everything; otherwise the
// query is matched as typed, surrounding spaces included.
func Search(list []Note, query string) []Note {
	if strings.TrimSpace(query) == "" {
		return append(make([]Note, 0, len(list)), list...)
	}
	q := strings.ToLower(query)
	out := make([]Note, 0, len(list))
	for _, n := range list {
		if
			strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.FormattedNote), q) ||
			strings.Contains(strings.ToLower(string(n.NoteType)), q) {
			out = append(out, n)
		}
	}
	return out
}

// Sort returns a stably sorted copy; equal keys keep their input order.
func Sort(list []Note, key SortKey) []Note {
	out := append([]Note(nil), list...)
	switch key {
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	case SortTitleAsc, SortTitleDesc:
		col := collate.New(language.English, collate.Loose)
		sort.SliceStable(out, func(i, j int) bool {
			c := col.CompareString(out[i].Title, out[j].Title)
			if key == SortTitleDesc {
				return c > 0
			}
			return c < 0
		})
	}
	return out
}

type Query struct {
	Type   string
	Search string
	Sort   SortKey
}

// Apply runs filter, search and sort over a snapshot.
func Apply(list []Note, q Query) []Note {
	return Sort(Search(Filter(list, q.Type), q.Search), q.Sort)
}

type Page struct {
	Items      []Note
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int
}

// TotalPages is never less than one, even for an empty list.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Paginate slices out one page, clamping the page index into range.
func Paginate(list []Note, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := TotalPages(len(list), pageSize)
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	items := []Note{}
	if start < end {
		items = append(items, list[start:end]...)
	}
	return Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: total,
		TotalItems: len(list),
	}
}

// ViewModel holds one fetched snapshot of a user's notes together with the
// list controls. Changing the filter, search or sort returns to page one.
type ViewModel struct {
	notes    []Note
	query    Query
	page     int
	pageSize int
	results  []Note
}

func NewViewModel(snapshot []Note, pageSize int) *ViewModel {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	vm := &ViewModel{
		notes:    snapshot,
		query:    Query{Type: FilterAll, Sort: SortNewest},
		page:     1,
		pageSize: pageSize,
	}
	vm.refresh()
	return vm
}

func (vm *ViewModel) refresh() {
	vm.results = Apply(vm.notes, vm.query)
	vm.page = 1
}

func (vm *ViewModel) SetFilter(typeFilter string) {
	vm.query.Type = typeFilter
	vm.refresh()
}

func (vm *ViewModel) SetSearch(q string) {
	vm.query.Search = q
	vm.refresh()
}

func (vm *ViewModel) SetSort(key SortKey) {
	vm.query.Sort = key
	vm.refresh()
}

// GoTo moves to the given page, clamped to the available range.
func (vm *ViewModel) GoTo(page int) {
	total := TotalPages(len(vm.results), vm.pageSize)
	switch {
	case page < 1:
		page = 1
	case page > total:
		page = total
	}
	vm.page = page
}

func (vm *ViewModel) Query() Query { return vm.query }

func (vm *ViewModel) Results() []Note { return vm.results }

func (vm *ViewModel) Current() Page {
	return Paginate(vm.results, vm.page, vm.pageSize)
}
