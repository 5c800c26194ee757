// Package nav builds the header navigation and breadcrumb view models.
package nav

import (
	"strings"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string   // e.g. "/post"
	LabelKey string   // i18n key, e.g. "nav.post"
	Also     []string // extra path prefixes that mark the item active
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "nav.listings", Also: []string{"/space"}},
	{Path: "/post", LabelKey: "nav.post"},
	{Path: "/faq", LabelKey: "nav.faq"},
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		active := isActive(it.Path, currentPath)
		for _, extra := range it.Also {
			active = active || isActive(extra, currentPath)
		}
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   active,
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs starts at the listings index and appends the known top-level section
// for currentPath. label names the last entry when it is a dynamic page such as a space.
func Breadcrumbs(currentPath, label string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.listings", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}
	for _, it := range Main[1:] {
		if isActive(it.Path, currentPath) {
			return append(crumbs, Crumb{Href: it.Path, LabelKey: it.LabelKey, Active: true})
		}
	}
	if label == "" {
		label = strings.TrimPrefix(currentPath, "/")
	}
	return append(crumbs, Crumb{Href: currentPath, Label: label, Active: true})
}
