package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"spacesprotocol.org/marketplace-web/internal/cms"
	"spacesprotocol.org/marketplace-web/internal/config"
	"spacesprotocol.org/marketplace-web/internal/i18n"
	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/marketapi"
	mw "spacesprotocol.org/marketplace-web/internal/middleware"
	"spacesprotocol.org/marketplace-web/internal/observability"
	"spacesprotocol.org/marketplace-web/internal/status"
	"spacesprotocol.org/marketplace-web/internal/viewseq"
)

// listingAPI is the part of the backend client the handlers use.
type listingAPI interface {
	ListListings(ctx context.Context, params marketapi.ListParams) ([]listing.ListingResponse, error)
	GetListing(ctx context.Context, name string) (listing.ListingResponse, error)
	CreateListing(ctx context.Context, l listing.Listing) (listing.ListingResponse, error)
	Health(ctx context.Context) (marketapi.Health, error)
}

// app carries the request-independent dependencies of every handler.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	api      listingAPI
	content  *cms.Client
	status   *status.Client
	bundle   *i18n.Bundle
	views    *viewseq.Tracker
	sessions *mw.Sessions
	tmpl     *templateSet
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	client := marketapi.NewClient(cfg.Backend.URL, logger, marketapi.WithTimeout(cfg.Backend.Timeout))
	return newAppWithAPI(cfg, logger, client)
}

func newAppWithAPI(cfg config.Config, logger *zap.Logger, api listingAPI) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bundle, err := i18n.Load(cfg.Site.LocalesDir, cfg.Site.DefaultLocale, cfg.Site.Locales)
	if err != nil {
		return nil, fmt.Errorf("load i18n: %w", err)
	}
	views, err := viewseq.New(cfg.Views.TrackerSize)
	if err != nil {
		return nil, fmt.Errorf("view tracker: %w", err)
	}
	tmpl, err := newTemplateSet(cfg.Site.TemplatesDir, cfg.Site.DevMode, bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		api:      api,
		content:  cms.NewClient(cfg.Site.ContentDir, cfg.Site.Network),
		status:   status.NewClient(api),
		bundle:   bundle,
		views:    views,
		sessions: mw.NewSessions(cfg.Session.SigningKey, cfg.Session.Secure, logger),
		tmpl:     tmpl,
	}, nil
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware(nil))
	r.Use(mw.RequestLogger(a.logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	if a.cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(a.cfg.Server.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/assets/*", mw.AssetsWithCache(filepath.Join(a.cfg.Site.PublicDir, "assets"), "/assets", a.cfg.Site.DevMode))
	if a.cfg.Backend.ProxyAPI {
		proxy, err := newAPIProxy(a.cfg.Backend.URL, a.logger.Named("proxy"))
		if err != nil {
			a.logger.Error("api proxy disabled", zap.Error(err))
		} else {
			r.Mount("/api", proxy)
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(a.sessions.Middleware)
		r.Use(mw.Locale(a.bundle))
		r.Use(a.sessions.CSRF)

		r.Get("/", a.HomeHandler)
		r.Get("/listings/grid", a.ListingGridFrag)
		r.Get("/space/{name}", a.SpaceHandler)
		r.Get("/search", a.SearchHandler)
		r.Get("/post", a.PostFormHandler)
		r.Post("/post/validate", a.PostValidateFrag)
		r.Post("/post", a.PostSubmitHandler)
		r.Get("/faq", a.FAQHandler)
		r.Get("/status", a.StatusHandler)
		r.NotFound(a.NotFoundHandler)
		r.MethodNotAllowed(a.NotFoundHandler)
	})
	return r
}
