package handlers

import (
	"strconv"

	"spacesprotocol.org/marketplace-web/internal/format"
	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/network"
	"spacesprotocol.org/marketplace-web/internal/space"
)

// ListingDetailView is the single listing page.
type ListingDetailView struct {
	Name        string
	DisplayName string
	Canonical   string
	ExplorerURL string
	Price       string
	PriceSats   string
	Seller      string
	Signature   string
	Listed      string
	Height      int32
	BuyCommand  string
	BackHref    string
}

// BackHref returns /?page=N when from is a number, else /.
func BackHref(from string) string {
	if from == "" {
		return "/"
	}
	n, err := strconv.Atoi(from)
	if err != nil || n < 1 {
		return "/"
	}
	if n == 1 {
		return "/"
	}
	return "/?page=" + strconv.Itoa(n)
}

// BuildListingDetail projects a listing for the detail page.
func BuildListingDetail(net network.Network, row listing.ListingResponse, from, lang string) *ListingDetailView {
	name := row.Name()
	return &ListingDetailView{
		Name:        name,
		DisplayName: row.DisplayName(),
		Canonical:   space.Canonical(name),
		ExplorerURL: net.SpaceURL(name),
		Price:       format.FmtSats(row.Price),
		PriceSats:   format.FmtSatsExact(row.Price),
		Seller:      row.Seller,
		Signature:   row.Signature,
		Listed:      format.FmtUnix(row.Timestamp, lang),
		Height:      row.Height,
		BuyCommand:  listing.BuyCommand(net, row),
		BackHref:    BackHref(from),
	}
}
