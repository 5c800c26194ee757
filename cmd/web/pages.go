package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"spacesprotocol.org/marketplace-web/internal/cms"
	handlersPkg "spacesprotocol.org/marketplace-web/internal/handlers"
	mw "spacesprotocol.org/marketplace-web/internal/middleware"
	"spacesprotocol.org/marketplace-web/internal/nav"
	"spacesprotocol.org/marketplace-web/internal/observability"
	"spacesprotocol.org/marketplace-web/internal/seo"
	"spacesprotocol.org/marketplace-web/internal/space"
)

// newPageData fills the layout fields shared by every page.
func (a *app) newPageData(r *http.Request, titleKey, descKey string) handlersPkg.PageData {
	lang := mw.Lang(r)
	title := a.bundle.T(lang, titleKey)
	vm := handlersPkg.PageData{
		Title:       title,
		Lang:        lang,
		SiteName:    a.cfg.Site.Name,
		Network:     a.cfg.Site.Network,
		Analytics:   handlersPkg.AnalyticsFromConfig(a.cfg.Site.Analytics),
		CSRFToken:   mw.CSRFToken(r),
		Path:        r.URL.Path,
		Nav:         nav.Build(r.URL.Path),
		Breadcrumbs: nav.Breadcrumbs(r.URL.Path, ""),
	}
	vm.SEO.Title = title
	if title != a.cfg.Site.Name {
		vm.SEO.Title += " | " + a.cfg.Site.Name
	}
	if descKey != "" {
		vm.SEO.Description = a.bundle.T(lang, descKey)
	}
	vm.SEO.Canonical = a.absoluteURL(r, r.URL.Path)
	vm.SEO.OG = seo.OpenGraph{
		Title:       vm.SEO.Title,
		Description: vm.SEO.Description,
		Type:        "website",
		URL:         vm.SEO.Canonical,
		SiteName:    a.cfg.Site.Name,
	}
	vm.SEO.Twitter.Card = "summary"
	vm.SEO.Alternates = a.buildAlternates(r)
	if !a.cfg.Site.Network.IsMainnet() {
		vm.SEO.Robots = "noindex"
	}
	return vm
}

// absoluteURL resolves path against the configured base URL, or the request host.
func (a *app) absoluteURL(r *http.Request, path string) string {
	base := a.cfg.Site.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimRight(base, "/") + path
}

func (a *app) buildAlternates(r *http.Request) []seo.Alternate {
	langs := a.bundle.Supported()
	if len(langs) < 2 {
		return nil
	}
	out := make([]seo.Alternate, 0, len(langs))
	for _, l := range langs {
		q := url.Values{}
		q.Set("hl", l)
		out = append(out, seo.Alternate{Href: a.absoluteURL(r, r.URL.Path) + "?" + q.Encode(), Hreflang: l})
	}
	return out
}

// FAQHandler renders the how-to page from markdown with the configured chain.
func (a *app) FAQHandler(w http.ResponseWriter, r *http.Request) {
	vm := a.newPageData(r, "faq.title", "faq.description")
	page, err := a.content.GetContentPage(r.Context(), "pages", "faq", vm.Lang)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			a.NotFoundHandler(w, r)
			return
		}
		observability.FromContext(r.Context()).Error("faq: load content", zap.Error(err))
		a.renderError(w, r, http.StatusInternalServerError, a.bundle.T(vm.Lang, "error.generic"), "/")
		return
	}
	if page.Title != "" {
		vm.Title = page.Title
	}
	if title := firstNonEmpty(page.SEO.Title, page.Title); title != "" {
		vm.SEO.Title = title + " | " + a.cfg.Site.Name
	}
	if page.SEO.Description != "" {
		vm.SEO.Description = page.SEO.Description
	} else if page.Summary != "" {
		vm.SEO.Description = page.Summary
	}
	vm.SEO.OG.Title = vm.SEO.Title
	vm.SEO.OG.Description = vm.SEO.Description
	vm.Content = page
	a.renderPage(w, r, http.StatusOK, "faq", vm)
}

// StatusHandler renders the backend sync state.
func (a *app) StatusHandler(w http.ResponseWriter, r *http.Request) {
	vm := a.newPageData(r, "status.title", "status.description")
	vm.SEO.Robots = "noindex"
	vm.Status = a.status.FetchSummary(r.Context())
	a.renderPage(w, r, http.StatusOK, "status", vm)
}

// SearchHandler normalizes the header search box and jumps to the space page.
func (a *app) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	target := "/"
	if name := space.ToEncoded(q); q != "" && name != "" {
		target = handlersPkg.SpaceHref(name, 0)
	}
	if mw.IsHTMX(r.Context()) {
		mw.HXRedirect(w, target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// NotFoundHandler renders the 404 page.
func (a *app) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	vm := a.newPageData(r, "notfound.title", "notfound.description")
	vm.SEO.Robots = "noindex"
	vm.Error = &handlersPkg.ErrorView{
		Status:   http.StatusNotFound,
		Message:  a.bundle.T(vm.Lang, "notfound.description"),
		NotFound: true,
		BackHref: "/",
	}
	a.renderPage(w, r, http.StatusNotFound, "error", vm)
}

// renderError renders the shared error page with one message.
func (a *app) renderError(w http.ResponseWriter, r *http.Request, code int, msg, back string) {
	vm := a.newPageData(r, "error.title", "")
	vm.SEO.Robots = "noindex"
	vm.Error = &handlersPkg.ErrorView{
		Status:   code,
		Message:  msg,
		NotFound: code == http.StatusNotFound,
		BackHref: back,
	}
	a.renderPage(w, r, code, "error", vm)
}

// fragData is the minimal view model of an htmx fragment.
func (a *app) fragData(r *http.Request, fill func(*handlersPkg.PageData)) handlersPkg.PageData {
	d := handlersPkg.PageData{
		Lang:      mw.Lang(r),
		Network:   a.cfg.Site.Network,
		CSRFToken: mw.CSRFToken(r),
		Path:      r.URL.Path,
	}
	fill(&d)
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
