package listing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"spacesprotocol.org/marketplace-web/internal/network"
)

func TestListingResponseJSON(t *testing.T) {
	t.Parallel()

	var got ListingResponse
	raw := `{"space":"bitcoin","price":25000,"seller":"bc1qseller","signature":"ab","timestamp":1735689600,"height":870000}`
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Equal(t, "bitcoin", got.Space)
	require.Equal(t, int64(25000), got.Price)
	require.Equal(t, int64(1735689600), got.Timestamp)
	require.Equal(t, int32(870000), got.Height)
}

func TestNames(t *testing.T) {
	t.Parallel()

	l := Listing{Space: "@xn--mnchen-3ya"}
	require.Equal(t, "xn--mnchen-3ya", l.Name())
	require.Equal(t, "@münchen", l.DisplayName())
}

func TestBuyCommand(t *testing.T) {
	t.Parallel()

	l := ListingResponse{Listing: Listing{Space: "bitcoin", Price: 25000, Seller: "bc1qseller", Signature: "abcd"}}
	require.Equal(t,
		"space-cli --chain testnet4 buy @bitcoin 25000 --seller bc1qseller --signature abcd",
		BuyCommand(network.Testnet4, l))
	require.Equal(t, "space-cli --chain mainnet sell @spacename <price>", SellCommand(network.Mainnet))
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	require.Equal(t, "newest", ParseSort("").Key)
	require.Equal(t, "newest", ParseSort("bogus").Key)
	opt := ParseSort("price_asc")
	require.Equal(t, SortByPrice, opt.SortBy)
	require.Equal(t, SortAsc, opt.SortOrder)
}
