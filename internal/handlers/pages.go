package handlers

import (
	"spacesprotocol.org/marketplace-web/internal/nav"
	"spacesprotocol.org/marketplace-web/internal/network"
	"spacesprotocol.org/marketplace-web/internal/seo"
)

// PageData is the view model handed to the shared "base" layout.
type PageData struct {
	Title     string
	Lang      string
	SiteName  string
	Network   network.Network
	SEO       seo.Meta
	Analytics Analytics
	CSRFToken string

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	// Search pre-fills the header search box.
	Search string

	// Optional per-page view model payloads
	Listings *ListingsView
	Listing  *ListingDetailView
	Post     *PostView
	Content  any
	Status   any
	Error    *ErrorView
}

// ErrorView is the single user-visible message of a failed page.
type ErrorView struct {
	Status   int
	Message  string
	NotFound bool
	BackHref string
}
