package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	handlersPkg "spacesprotocol.org/marketplace-web/internal/handlers"
	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/marketapi"
	mw "spacesprotocol.org/marketplace-web/internal/middleware"
	"spacesprotocol.org/marketplace-web/internal/observability"
	"spacesprotocol.org/marketplace-web/internal/seo"
)

const viewGrid = "grid"

// HomeHandler renders the listing grid page.
func (a *app) HomeHandler(w http.ResponseWriter, r *http.Request) {
	vm := a.newPageData(r, "home.title", "home.description")
	grid := a.loadGrid(r)
	vm.Listings = grid
	q := r.URL.Query()
	if q.Get("page") != "" || q.Get("sort") != "" {
		vm.SEO.Canonical = a.absoluteURL(r, handlersPkg.ListingsHref(grid.Page, grid.Sort))
		vm.SEO.OG.URL = vm.SEO.Canonical
	}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.WebSite(a.cfg.Site.Name, a.absoluteURL(r, "/"), a.absoluteURL(r, "/search?q="))))
	if len(grid.Cards) > 0 {
		urls := make([]string, 0, len(grid.Cards))
		for _, c := range grid.Cards {
			urls = append(urls, a.absoluteURL(r, handlersPkg.SpaceHref(c.Name, 0)))
		}
		vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.ItemList(urls)))
	}
	code := http.StatusOK
	if grid.Error != "" {
		code = http.StatusBadGateway
	}
	a.renderPage(w, r, code, "home", vm)
}

// ListingGridFrag renders only the grid for htmx pagination and sorting. A request that
// was overtaken by a newer one from the same session is discarded.
func (a *app) ListingGridFrag(w http.ResponseWriter, r *http.Request) {
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, handlersPkg.ListingsHref(handlersPkg.ParsePage(r.URL.Query().Get("page")), listing.ParseSort(r.URL.Query().Get("sort"))), http.StatusSeeOther)
		return
	}
	sid := mw.GetSession(r).ID
	token := a.views.Issue(sid, viewGrid)
	grid := a.loadGrid(r)
	grid.Token = uint64(token)
	if !a.views.IsLatest(sid, viewGrid, token) {
		observability.FromContext(r.Context()).Debug("grid: discard stale response", zap.Uint64("token", uint64(token)))
		mw.HXDiscard(w)
		return
	}
	mw.HXPushURL(w, handlersPkg.ListingsHref(grid.Page, grid.Sort))
	a.renderTemplate(w, r, http.StatusOK, "frag_listing_grid", a.fragData(r, func(d *handlersPkg.PageData) { d.Listings = grid }))
}

// loadGrid fetches one page plus one row to learn whether a next page exists.
func (a *app) loadGrid(r *http.Request) *handlersPkg.ListingsView {
	q := r.URL.Query()
	lang := mw.Lang(r)
	page := handlersPkg.ParsePage(q.Get("page"))
	sort := listing.ParseSort(q.Get("sort"))
	size := a.cfg.Views.PageSize

	rows, err := a.api.ListListings(r.Context(), marketapi.ListParams{
		SortBy:    sort.SortBy,
		SortOrder: sort.SortOrder,
		Limit:     size + 1,
		Offset:    handlersPkg.PageOffset(page, size),
	})
	grid := handlersPkg.BuildListingsView(rows, page, size, sort, lang)
	for i := range grid.SortOptions {
		grid.SortOptions[i].Label = a.bundle.T(lang, grid.SortOptions[i].LabelKey)
	}
	if err != nil {
		observability.FromContext(r.Context()).Warn("grid: list listings", zap.Error(err), zap.Int("page", page), zap.String("sort", sort.Key))
		grid.Error = a.apiMessage(lang, err, "listings.error")
	}
	return grid
}

// apiMessage is the user-facing text of a backend failure.
func (a *app) apiMessage(lang string, err error, fallbackKey string) string {
	var apiErr *marketapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return a.bundle.T(lang, fallbackKey)
}
