package handlers

import (
	"errors"
	"strings"

	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/network"
)

// PostView is the post-a-listing form.
type PostView struct {
	Raw         string
	Placeholder string
	SellCommand string
	// ValidationError blocks submission; SubmitError is a backend rejection.
	ValidationError string
	SubmitError     string
	Valid           bool
	Token           uint64
}

// PostPlaceholder is the example payload shown in the empty textarea.
const PostPlaceholder = `{
  "space": "@example",
  "price": 100,
  "seller": "seller_address",
  "signature": "signature_string"
}`

// BuildPostView validates raw and reports the first problem, if any. Empty input is
// neither valid nor flagged.
func BuildPostView(net network.Network, raw string) *PostView {
	vm := &PostView{
		Raw:         raw,
		Placeholder: PostPlaceholder,
		SellCommand: listing.SellCommand(net),
	}
	if strings.TrimSpace(raw) == "" {
		return vm
	}
	if err := listing.ValidateJSON(raw); err != nil {
		var verr *listing.ValidationError
		if errors.As(err, &verr) {
			vm.ValidationError = verr.Message
		} else {
			vm.ValidationError = listing.MsgInvalidJSON
		}
		return vm
	}
	vm.Valid = true
	return vm
}

// Disabled reports whether the submit button must be disabled.
func (p *PostView) Disabled() bool { return !p.Valid }
