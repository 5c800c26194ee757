package handlers

import (
	"net/url"
	"strconv"

	"spacesprotocol.org/marketplace-web/internal/format"
	"spacesprotocol.org/marketplace-web/internal/listing"
)

// ListingsView is the paginated grid on the home page.
type ListingsView struct {
	Cards       []ListingCard
	Page        int
	HasPrev     bool
	HasNext     bool
	PrevHref    string
	NextHref    string
	Sort        listing.SortOption
	SortOptions []SortChoice
	Error       string
	// Token identifies the request that produced this grid; echoed back by htmx.
	Token uint64
}

// SortChoice is one option of the sort select.
type SortChoice struct {
	Key      string
	LabelKey string
	Label    string
	Selected bool
}

// ListingCard is one grid entry.
type ListingCard struct {
	Name        string
	DisplayName string
	Price       string
	Seller      string
	Listed      string
	Href        string
}

// ParsePage reads ?page=, treating anything that is not a positive integer as 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// PageOffset is the backend offset of page for the given page size.
func PageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// ListingsHref builds the home URL for a page and sort. Defaults are omitted.
func ListingsHref(page int, sort listing.SortOption) string {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if sort.Key != listing.DefaultSort().Key {
		q.Set("sort", sort.Key)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// BuildListingsView trims the fetched rows to pageSize. One extra row signals a next page.
func BuildListingsView(rows []listing.ListingResponse, page, pageSize int, sort listing.SortOption, lang string) *ListingsView {
	vm := &ListingsView{
		Page:    page,
		Sort:    sort,
		HasPrev: page > 1,
		HasNext: len(rows) > pageSize,
	}
	if vm.HasNext {
		rows = rows[:pageSize]
	}
	vm.Cards = make([]ListingCard, 0, len(rows))
	for _, row := range rows {
		vm.Cards = append(vm.Cards, BuildListingCard(row, page, lang))
	}
	if vm.HasPrev {
		vm.PrevHref = ListingsHref(page-1, sort)
	}
	if vm.HasNext {
		vm.NextHref = ListingsHref(page+1, sort)
	}
	vm.SortOptions = make([]SortChoice, 0, len(listing.SortOptions))
	for _, opt := range listing.SortOptions {
		vm.SortOptions = append(vm.SortOptions, SortChoice{
			Key:      opt.Key,
			LabelKey: opt.LabelKey,
			Label:    opt.Label,
			Selected: opt.Key == sort.Key,
		})
	}
	return vm
}

// BuildListingCard projects a listing for the grid; the link remembers the page it came from.
func BuildListingCard(row listing.ListingResponse, page int, lang string) ListingCard {
	name := row.Name()
	return ListingCard{
		Name:        name,
		DisplayName: row.DisplayName(),
		Price:       format.FmtSats(row.Price),
		Seller:      format.ShortAddress(row.Seller),
		Listed:      format.FmtUnix(row.Timestamp, lang),
		Href:        SpaceHref(name, page),
	}
}

// SpaceHref links to the detail page of an encoded name. from > 0 adds the back-link page.
func SpaceHref(name string, from int) string {
	href := "/space/" + url.PathEscape(name)
	if from > 0 {
		href += "?from=" + strconv.Itoa(from)
	}
	return href
}
