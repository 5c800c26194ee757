package main

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	handlersPkg "spacesprotocol.org/marketplace-web/internal/handlers"
	"spacesprotocol.org/marketplace-web/internal/marketapi"
	mw "spacesprotocol.org/marketplace-web/internal/middleware"
	"spacesprotocol.org/marketplace-web/internal/nav"
	"spacesprotocol.org/marketplace-web/internal/observability"
	"spacesprotocol.org/marketplace-web/internal/seo"
	"spacesprotocol.org/marketplace-web/internal/space"
)

// SpaceHandler renders one listing with its buy command. Non-canonical names
// (Unicode, upper case, leading @) redirect to the encoded form.
func (a *app) SpaceHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "name")
	if dec, err := url.PathUnescape(raw); err == nil {
		raw = dec
	}
	name := space.ToEncoded(raw)
	if name == "" {
		a.NotFoundHandler(w, r)
		return
	}
	if name != raw {
		target := handlersPkg.SpaceHref(name, 0)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	lang := mw.Lang(r)
	from := r.URL.Query().Get("from")
	row, err := a.api.GetListing(r.Context(), name)
	if err != nil {
		back := handlersPkg.BackHref(from)
		if errors.Is(err, marketapi.ErrNotFound) {
			a.renderError(w, r, http.StatusNotFound, a.apiMessage(lang, err, "space.notfound"), back)
			return
		}
		observability.FromContext(r.Context()).Error("space: get listing", zap.Error(err), zap.String("space", name))
		a.renderError(w, r, http.StatusBadGateway, a.apiMessage(lang, err, "space.error"), back)
		return
	}

	detail := handlersPkg.BuildListingDetail(a.cfg.Site.Network, row, from, lang)
	vm := a.newPageData(r, "space.title", "")
	vm.Title = detail.DisplayName
	vm.SEO.Title = detail.DisplayName + " | " + a.cfg.Site.Name
	vm.SEO.Description = a.bundle.Tf(lang, "space.description", detail.DisplayName, detail.Price)
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.OG.Description = vm.SEO.Description
	vm.SEO.OG.Type = "product"
	vm.Breadcrumbs = nav.Breadcrumbs(r.URL.Path, detail.DisplayName)
	vm.Search = detail.DisplayName
	vm.Listing = detail

	pageURL := a.absoluteURL(r, r.URL.Path)
	vm.SEO.JSONLD = append(vm.SEO.JSONLD,
		seo.JSON(seo.ListingOffer(detail.DisplayName, pageURL, row.Seller, row.Price)),
		seo.JSON(seo.BreadcrumbList([]seo.BreadcrumbItem{
			{Name: a.bundle.T(lang, "nav.listings"), Item: a.absoluteURL(r, "/")},
			{Name: detail.DisplayName, Item: pageURL},
		})),
	)
	a.renderPage(w, r, http.StatusOK, "space", vm)
}
