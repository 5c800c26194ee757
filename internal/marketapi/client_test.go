package marketapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/marketapi"
)

var sampleSig = strings.Repeat("ab", 64)

func newServer(t *testing.T, h http.HandlerFunc) *marketapi.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return marketapi.NewClient(ts.URL+"/", nil, marketapi.WithHTTPClient(ts.Client()))
}

func TestListListingsSendsOnlySetParams(t *testing.T) {
	t.Parallel()

	var rawQuery string
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/listings", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		rawQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]listing.ListingResponse{
			{Listing: listing.Listing{Space: "bitcoin", Price: 5000, Seller: "bc1qseller", Signature: sampleSig}, Timestamp: 1700000000},
		})
	})

	out, err := client.ListListings(context.Background(), marketapi.ListParams{
		SortBy:    listing.SortByPrice,
		SortOrder: listing.SortAsc,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "bitcoin", out[0].Space)
	require.Equal(t, int64(1700000000), out[0].Timestamp)
	require.Equal(t, "limit=10&sort_by=price&sort_order=asc", rawQuery)
}

func TestListListingsRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	called := false
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.ListListings(context.Background(), marketapi.ListParams{Limit: 101})
	require.Error(t, err)
	_, err = client.ListListings(context.Background(), marketapi.ListParams{SortBy: "height"})
	require.Error(t, err)
	_, err = client.ListListings(context.Background(), marketapi.ListParams{Offset: -1})
	require.Error(t, err)
	require.False(t, called)
}

func TestListListingsEmptyPage(t *testing.T) {
	t.Parallel()

	for name, h := range map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		"no listings error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"no listings found"}`))
		},
	} {
		h := h
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			out, err := newServer(t, h).ListListings(context.Background(), marketapi.ListParams{})
			require.NoError(t, err)
			require.Empty(t, out)
			require.NotNil(t, out)
		})
	}
}

func TestListListingsFailureMessage(t *testing.T) {
	t.Parallel()

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.ListListings(context.Background(), marketapi.ListParams{})
	var apiErr *marketapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "Failed to fetch listings", apiErr.Message)
}

func TestGetListing(t *testing.T) {
	t.Parallel()

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/space/@bitcoin":
			_ = json.NewEncoder(w).Encode(listing.ListingResponse{
				Listing:   listing.Listing{Space: "bitcoin", Price: 1000, Seller: "bc1qseller", Signature: sampleSig},
				Timestamp: 1700000000,
				Height:    870000,
			})
		case "/space/@missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no listing found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	got, err := client.GetListing(context.Background(), "@Bitcoin")
	require.NoError(t, err)
	require.Equal(t, int64(1000), got.Price)
	require.Equal(t, int32(870000), got.Height)

	_, err = client.GetListing(context.Background(), "missing")
	require.ErrorIs(t, err, marketapi.ErrNotFound)
	require.EqualError(t, err, "No listings found for missing")

	_, err = client.GetListing(context.Background(), "broken")
	require.Error(t, err)
	require.False(t, errors.Is(err, marketapi.ErrNotFound))
	require.EqualError(t, err, "Failed to fetch listing for broken")
}

func TestCreateListing(t *testing.T) {
	t.Parallel()

	var received listing.Listing
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/postListing", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(received)
	})

	in := listing.Listing{Space: "@bitcoin", Price: 42, Seller: "bc1qseller", Signature: sampleSig}
	out, err := client.CreateListing(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, in, received)
	require.Equal(t, "@bitcoin", out.Space)
}

func TestCreateListingErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "error field", status: http.StatusInternalServerError, body: `{"error":"listing signature invalid"}`, want: "Listing signature invalid"},
		{name: "message field", status: http.StatusBadRequest, body: `{"message":"space not owned"}`, want: "Space not owned"},
		{name: "unparsable", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: "Internal server error"},
		{name: "no message", status: http.StatusBadRequest, body: `[{"field":"price"}]`, want: "Request failed with status: 400"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.CreateListing(context.Background(), listing.Listing{Space: "@a", Price: 1, Seller: "s", Signature: sampleSig})
			var apiErr *marketapi.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.status, apiErr.Status)
			require.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthcheck", r.URL.Path)
		_, _ = w.Write([]byte(`{"height":870001,"hash":"00ab","spaced_hash":"00ab","spaced_height":870001}`))
	})

	h, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(870001), h.Height)
	require.Equal(t, int64(870001), h.SpacedHeight)
	require.Equal(t, "00ab", h.SpacedHash)
}
