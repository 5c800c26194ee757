package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"spacesprotocol.org/marketplace-web/internal/format"
	"spacesprotocol.org/marketplace-web/internal/i18n"
	"spacesprotocol.org/marketplace-web/internal/observability"
	"spacesprotocol.org/marketplace-web/internal/space"
)

// templateSet holds the shared layouts, partials and fragments plus one clone per page.
// In dev mode templates are reparsed on each render.
type templateSet struct {
	dir    string
	dev    bool
	funcs  template.FuncMap
	shared *template.Template
	pages  map[string]*template.Template
}

func newTemplateSet(dir string, dev bool, bundle *i18n.Bundle) (*templateSet, error) {
	ts := &templateSet{dir: dir, dev: dev, funcs: templateFuncs(bundle)}
	shared, pages, err := ts.parse()
	if err != nil {
		return nil, err
	}
	ts.shared, ts.pages = shared, pages
	return ts, nil
}

func templateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"t":            bundle.T,
		"tf":           bundle.Tf,
		"now":          time.Now,
		"fmtSats":      format.FmtSats,
		"fmtAmount":    format.FmtAmount,
		"fmtDate":      format.FmtDate,
		"fmtUnix":      format.FmtUnix,
		"shortAddress": format.ShortAddress,
		"displayName":  func(name string) string { return "@" + space.ToDisplay(space.Normalize(name)) },
		"gridHref":     gridHref,
		"dict":         dict,
		"jsonld": func(s string) template.JS {
			// JSON-LD strings come from json.Marshal, which escapes <, > and &
			return template.JS(s)
		},
	}
}

// dict builds a map from alternating keys and values so partials can take named args.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

// gridHref maps a home URL such as /?page=2 onto the grid fragment endpoint.
func gridHref(href string) string {
	return "/listings/grid" + strings.TrimPrefix(href, "/")
}

func (ts *templateSet) parse() (*template.Template, map[string]*template.Template, error) {
	var sharedFiles, pageFiles []string
	err := filepath.WalkDir(ts.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pageFiles = append(pageFiles, path)
		} else {
			sharedFiles = append(sharedFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(sharedFiles) == 0 || len(pageFiles) == 0 {
		return nil, nil, fmt.Errorf("no templates found under %s", ts.dir)
	}
	shared, err := template.New("_root").Funcs(ts.funcs).ParseFiles(sharedFiles...)
	if err != nil {
		return nil, nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := shared.Clone()
		if err != nil {
			return nil, nil, err
		}
		if _, err := clone.ParseFiles(file); err != nil {
			return nil, nil, err
		}
		pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = clone
	}
	return shared, pages, nil
}

func (ts *templateSet) current() (*template.Template, map[string]*template.Template, error) {
	if ts.dev {
		return ts.parse()
	}
	return ts.shared, ts.pages, nil
}

// renderPage executes the base layout with the named page's content block.
func (a *app) renderPage(w http.ResponseWriter, r *http.Request, code int, page string, data any) {
	_, pages, err := a.tmpl.current()
	if err != nil {
		a.templateError(w, r, "template parse error", err)
		return
	}
	t, ok := pages[page]
	if !ok {
		a.templateError(w, r, "unknown page", fmt.Errorf("page %q not found", page))
		return
	}
	a.execute(w, r, code, t, "base", data)
}

// renderTemplate executes a shared fragment, used for htmx swaps.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	shared, _, err := a.tmpl.current()
	if err != nil {
		a.templateError(w, r, "template parse error", err)
		return
	}
	a.execute(w, r, code, shared, name, data)
}

func (a *app) execute(w http.ResponseWriter, r *http.Request, code int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		a.templateError(w, r, "template exec error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func (a *app) templateError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	observability.FromContext(r.Context()).Error(msg, zap.Error(err))
	body := "internal server error"
	if a.cfg.Site.DevMode {
		body = fmt.Sprintf("%s: %v", msg, err)
	}
	http.Error(w, body, http.StatusInternalServerError)
}
