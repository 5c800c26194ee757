package seo

import (
	"encoding/json"
	"strconv"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WebSite returns a minimal WebSite schema with optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// ListingOffer describes a space listing as a Product with a single BTC Offer.
// priceSats is converted to a decimal BTC amount.
func ListingOffer(name, url, seller string, priceSats int64) map[string]any {
	offer := map[string]any{
		"@type":         "Offer",
		"priceCurrency": "BTC",
		"price":         satsToBTC(priceSats),
		"availability":  "https://schema.org/InStock",
	}
	if url != "" {
		offer["url"] = url
	}
	if seller != "" {
		offer["seller"] = map[string]any{"@type": "Organization", "name": seller}
	}
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Product",
		"name":     name,
		"offers":   offer,
	}
	if url != "" {
		m["url"] = url
	}
	return m
}

// ItemList lists listing URLs in display order.
func ItemList(urls []string) map[string]any {
	el := make([]map[string]any, 0, len(urls))
	for i, u := range urls {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"url":      u,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "ItemList",
		"itemListElement": el,
	}
}

func satsToBTC(sats int64) string {
	if sats < 0 {
		sats = 0
	}
	whole := sats / 100_000_000
	frac := sats % 100_000_000
	s := strconv.FormatInt(frac+100_000_000, 10)[1:]
	return strconv.FormatInt(whole, 10) + "." + s
}
