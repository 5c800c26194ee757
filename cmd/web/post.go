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
)

const (
	viewPostValidate = "post-validate"
	// postField is the textarea holding the pasted listing JSON.
	postField = "listing"
)

// PostFormHandler renders the empty post-a-listing form.
func (a *app) PostFormHandler(w http.ResponseWriter, r *http.Request) {
	vm := a.newPageData(r, "post.title", "post.description")
	vm.Post = handlersPkg.BuildPostView(a.cfg.Site.Network, "")
	a.renderPage(w, r, http.StatusOK, "post", vm)
}

// PostValidateFrag re-validates the textarea as the user types and swaps the
// status area (message and submit button). Overtaken requests are discarded.
func (a *app) PostValidateFrag(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	sid := mw.GetSession(r).ID
	token := a.views.Issue(sid, viewPostValidate)
	post := handlersPkg.BuildPostView(a.cfg.Site.Network, r.PostForm.Get(postField))
	post.Token = uint64(token)
	if !a.views.IsLatest(sid, viewPostValidate, token) {
		mw.HXDiscard(w)
		return
	}
	a.renderTemplate(w, r, http.StatusOK, "frag_post_validate", a.fragData(r, func(d *handlersPkg.PageData) { d.Post = post }))
}

// PostSubmitHandler validates the pasted listing, relays it to the backend and
// redirects to the new listing. Validation failures and backend rejections are
// shown inline as distinct messages.
func (a *app) PostSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	raw := r.PostForm.Get(postField)
	post := handlersPkg.BuildPostView(a.cfg.Site.Network, raw)
	lang := mw.Lang(r)
	if !post.Valid {
		if post.ValidationError == "" {
			post.ValidationError = a.bundle.T(lang, "post.empty")
		}
		a.renderPostResult(w, r, http.StatusUnprocessableEntity, post)
		return
	}

	l, err := listing.Parse(raw)
	if err != nil {
		// BuildPostView accepted raw, so this only trips on a validator mismatch
		var verr *listing.ValidationError
		if errors.As(err, &verr) {
			post.ValidationError = verr.Message
		} else {
			post.ValidationError = listing.MsgInvalidJSON
		}
		post.Valid = false
		a.renderPostResult(w, r, http.StatusUnprocessableEntity, post)
		return
	}

	logger := observability.FromContext(r.Context()).With(zap.String("space", l.Space))
	if _, err := a.api.CreateListing(r.Context(), l); err != nil {
		logger.Warn("post: backend rejected listing", zap.Error(err))
		post.SubmitError = a.apiMessage(lang, err, "post.error")
		code := http.StatusBadGateway
		var apiErr *marketapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			code = http.StatusUnprocessableEntity
		}
		a.renderPostResult(w, r, code, post)
		return
	}
	logger.Info("post: listing created", zap.Int64("price", l.Price))

	target := handlersPkg.SpaceHref(l.Name(), 0)
	if mw.IsHTMX(r.Context()) {
		mw.HXRedirect(w, target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// renderPostResult re-renders the form with its error. htmx does not swap 4xx
// responses, so fragment answers always use 200.
func (a *app) renderPostResult(w http.ResponseWriter, r *http.Request, code int, post *handlersPkg.PostView) {
	if mw.IsHTMX(r.Context()) {
		a.renderTemplate(w, r, http.StatusOK, "frag_post_form", a.fragData(r, func(d *handlersPkg.PageData) { d.Post = post }))
		return
	}
	vm := a.newPageData(r, "post.title", "post.description")
	vm.Post = post
	a.renderPage(w, r, code, "post", vm)
}
