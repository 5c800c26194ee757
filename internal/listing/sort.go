package listing

// SortBy is the backend sort field.
type SortBy string

// SortOrder is the backend sort direction.
type SortOrder string

const (
	SortByTimestamp SortBy = "timestamp"
	SortByPrice     SortBy = "price"

	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOption is a selectable ordering of the listing grid.
type SortOption struct {
	Key       string
	LabelKey  string
	Label     string
	SortBy    SortBy
	SortOrder SortOrder
}

// SortOptions lists the orderings offered on the list page. The first entry is the default.
var SortOptions = []SortOption{
	{Key: "newest", LabelKey: "sort.newest", Label: "Newest First", SortBy: SortByTimestamp, SortOrder: SortDesc},
	{Key: "oldest", LabelKey: "sort.oldest", Label: "Oldest First", SortBy: SortByTimestamp, SortOrder: SortAsc},
	{Key: "price_desc", LabelKey: "sort.price_desc", Label: "Price: High to Low", SortBy: SortByPrice, SortOrder: SortDesc},
	{Key: "price_asc", LabelKey: "sort.price_asc", Label: "Price: Low to High", SortBy: SortByPrice, SortOrder: SortAsc},
}

// DefaultSort is the ordering used when none or an unknown one is requested.
func DefaultSort() SortOption { return SortOptions[0] }

// ParseSort resolves a sort key, falling back to DefaultSort.
func ParseSort(key string) SortOption {
	for _, opt := range SortOptions {
		if opt.Key == key {
			return opt
		}
	}
	return DefaultSort()
}
