// Package cms renders the static content pages (the FAQ) from local markdown files
// with YAML front matter.
package cms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/network"
)

// ErrNotFound is returned when no page exists for the slug in any candidate language.
var ErrNotFound = errors.New("cms: not found")

// ContentPage is a localized page rendered from content/<kind>/<lang>/<slug>.md.
type ContentPage struct {
	Kind      string
	Slug      string
	Lang      string
	Title     string
	Summary   string
	Body      string
	HTML      template.HTML
	Links     []ContentLink
	UpdatedAt time.Time
	SEO       ContentSEO
}

// ContentSEO holds optional metadata overrides for static pages.
type ContentSEO struct {
	Title       string
	Description string
}

// ContentLink is an external reference listed under the page body.
type ContentLink struct {
	Label string
	URL   string
}

type contentFrontMatter struct {
	Title     string                `yaml:"title"`
	Summary   string                `yaml:"summary"`
	Lang      string                `yaml:"lang"`
	UpdatedAt string                `yaml:"updated_at"`
	SEO       contentFrontMatterSEO `yaml:"seo"`
	Links     []struct {
		Label string `yaml:"label"`
		URL   string `yaml:"url"`
	} `yaml:"links"`
}

type contentFrontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// pageVars are the values markdown bodies may reference, e.g. {{.SellCommand}}.
type pageVars struct {
	Chain       string
	SellCommand string
	BuyCommand  string
	ExplorerURL string
}

const (
	defaultContentDir = "content"
	defaultCacheTTL   = 5 * time.Minute
)

// Client loads and renders content pages for one network.
type Client struct {
	contentDir string
	network    network.Network
	markdown   goldmark.Markdown
	policy     *bluemonday.Policy

	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]contentCacheEntry
}

type contentCacheEntry struct {
	page    ContentPage
	expires time.Time
}

// NewClient builds a content client reading markdown under contentDir.
func NewClient(contentDir string, net network.Network) *Client {
	c := &Client{
		network: net,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: newContentHTMLPolicy(),
		ttl:    defaultCacheTTL,
		items:  map[string]contentCacheEntry{},
	}
	c.SetContentDir(contentDir)
	return c
}

func newContentHTMLPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")
	policy.AllowAttrs("class").OnElements("pre", "code", "section", "p", "span")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// SetCacheDuration overrides the in-memory cache duration. Zero disables caching.
func (c *Client) SetCacheDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	c.ttl = d
	c.items = map[string]contentCacheEntry{}
}

// SetContentDir configures the directory holding markdown pages.
func (c *Client) SetContentDir(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultContentDir
	}
	c.contentDir = dir
}

// ContentDir returns the configured directory.
func (c *Client) ContentDir() string { return c.contentDir }

// GetContentPage returns the rendered page for lang, falling back to English.
func (c *Client) GetContentPage(ctx context.Context, kind, slug, lang string) (ContentPage, error) {
	if err := ctx.Err(); err != nil {
		return ContentPage{}, err
	}
	kind = sanitizeSlug(kind)
	if kind == "" {
		kind = "pages"
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return ContentPage{}, ErrNotFound
	}
	lang = normalizeLang(lang)

	cacheKey := strings.Join([]string{kind, lang, slug}, "|")
	if page, ok := c.cached(cacheKey); ok {
		return page, nil
	}

	page, err := c.loadPage(kind, slug, lang)
	if err != nil {
		return ContentPage{}, err
	}
	c.store(cacheKey, page)
	return clonePage(page), nil
}

func (c *Client) loadPage(kind, slug, lang string) (ContentPage, error) {
	priority := []string{lang}
	if lang != "en" {
		priority = append(priority, "en")
	}
	for _, candidate := range priority {
		page, err := c.readMarkdown(kind, slug, candidate)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		// parse errors stop early
		return ContentPage{}, err
	}
	return ContentPage{}, ErrNotFound
}

func (c *Client) readMarkdown(kind, slug, lang string) (ContentPage, error) {
	file := filepath.Join(c.contentDir, kind, lang, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ContentPage{}, ErrNotFound
		}
		return ContentPage{}, err
	}

	fm, body := splitFrontMatter(string(data))
	front := contentFrontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return ContentPage{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}

	expanded, err := c.expand(file, body)
	if err != nil {
		return ContentPage{}, err
	}
	rendered, err := c.render(expanded)
	if err != nil {
		return ContentPage{}, fmt.Errorf("cms: render %s: %w", file, err)
	}

	page := ContentPage{
		Kind:    kind,
		Slug:    slug,
		Lang:    firstNonEmpty(front.Lang, lang),
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Body:    expanded,
		HTML:    rendered,
		SEO: ContentSEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
		},
		UpdatedAt: parseContentDate(front.UpdatedAt),
	}
	for _, l := range front.Links {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		page.Links = append(page.Links, ContentLink{Label: strings.TrimSpace(l.Label), URL: strings.TrimSpace(l.URL)})
	}
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

// expand substitutes network-specific values such as the --chain flag.
func (c *Client) expand(name, body string) (string, error) {
	tmpl, err := texttemplate.New(filepath.Base(name)).Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("cms: parse %s: %w", name, err)
	}
	vars := pageVars{
		Chain:       c.network.ChainFlag(),
		SellCommand: listing.SellCommand(c.network),
		BuyCommand:  listing.BuyCommandTemplate(c.network),
		ExplorerURL: c.network.ExplorerBaseURL(),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("cms: expand %s: %w", name, err)
	}
	return buf.String(), nil
}

func (c *Client) render(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(c.policy.SanitizeBytes(buf.Bytes())), nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseContentDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		if runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if base, _, ok := strings.Cut(lang, "-"); ok {
		lang = base
	}
	if lang == "" || sanitizeSlug(lang) == "" {
		return "en"
	}
	return lang
}

func (c *Client) cached(key string) (ContentPage, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return ContentPage{}, false
	}
	return clonePage(entry.page), true
}

func (c *Client) store(key string, page ContentPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 {
		return
	}
	c.items[key] = contentCacheEntry{page: clonePage(page), expires: time.Now().Add(c.ttl)}
}

func clonePage(src ContentPage) ContentPage {
	cp := src
	if src.Links != nil {
		cp.Links = append([]ContentLink(nil), src.Links...)
	}
	return cp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
