// Package listing holds the marketplace listing types shared by the API client and views.
package listing

import (
	"strconv"
	"strings"

	"spacesprotocol.org/marketplace-web/internal/network"
	"spacesprotocol.org/marketplace-web/internal/space"
)

// SignatureLength is the length of a hex-encoded 64-byte signature.
const SignatureLength = 128

// Listing is a seller-signed offer as pasted from space-cli. It is sent to the backend verbatim.
type Listing struct {
	Space     string `json:"space"`
	Price     int64  `json:"price"`
	Seller    string `json:"seller"`
	Signature string `json:"signature"`
}

// ListingResponse is a listing as stored and echoed by the backend.
type ListingResponse struct {
	Listing
	Timestamp int64 `json:"timestamp"`
	Height    int32 `json:"height,omitempty"`
}

// Name returns the canonical ASCII name without the "@" prefix.
func (l Listing) Name() string {
	return space.ToEncoded(l.Space)
}

// DisplayName returns the Unicode projection of the name, prefixed with "@".
func (l Listing) DisplayName() string {
	return "@" + space.ToDisplay(l.Name())
}

// BuyCommand renders the space-cli invocation a buyer runs to accept the listing.
func BuyCommand(net network.Network, l ListingResponse) string {
	var b strings.Builder
	b.WriteString("space-cli --chain ")
	b.WriteString(net.ChainFlag())
	b.WriteString(" buy ")
	b.WriteString(space.Canonical(l.Space))
	b.WriteString(" ")
	b.WriteString(strconv.FormatInt(l.Price, 10))
	b.WriteString(" --seller ")
	b.WriteString(l.Seller)
	b.WriteString(" --signature ")
	b.WriteString(l.Signature)
	return b.String()
}

// SellCommand renders the space-cli template a seller runs to produce listing JSON.
func SellCommand(net network.Network) string {
	return "space-cli --chain " + net.ChainFlag() + " sell @spacename <price>"
}

// BuyCommandTemplate is the generic buy syntax shown in the FAQ.
func BuyCommandTemplate(net network.Network) string {
	return "space-cli --chain " + net.ChainFlag() + " buy @spacename <price> --seller <seller_address> --signature <signature> [--fee-rate=rate]"
}
