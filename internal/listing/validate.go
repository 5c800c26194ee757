package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validation messages, in rule order.
const (
	MsgInvalidJSON      = "Invalid JSON format"
	MsgMissingSpace     = "Missing space field"
	MsgMissingPrice     = "Missing price field"
	MsgMissingSeller    = "Missing seller field"
	MsgMissingSignature = "Missing signature field"
	MsgSignatureLength  = "Signature has invalid length"
	MsgPriceNotNumber   = "Price must be a number"
	MsgPriceNotPositive = "Price must be greater than 0"
	MsgSpacePrefix      = "Space must start with @"
	MsgPriceNotIntegral = "Price must be a whole number of satoshis"
)

// ValidationError reports the first rule a pasted listing violates.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// ValidateJSON checks the shape of a pasted listing payload and returns the first
// violated rule as a *ValidationError, or nil when the payload can be submitted.
func ValidateJSON(raw string) error {
	_, err := Parse(raw)
	return err
}

// Parse validates raw and builds the Listing it describes.
func Parse(raw string) (Listing, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Listing{}, invalid("", MsgInvalidJSON)
	}
	return Validate(fields)
}

// Validate applies the listing rules to a decoded JSON object. Numbers are expected as
// json.Number (see decodeObject); float64 values are accepted as well.
//
// The price check in rule 2 is a truthiness check, so an explicit zero price reports
// "Missing price field" while a negative one reaches rule 6.
func Validate(fields map[string]any) (Listing, error) {
	if !truthy(fields["space"]) {
		return Listing{}, invalid("space", MsgMissingSpace)
	}
	if !truthy(fields["price"]) {
		return Listing{}, invalid("price", MsgMissingPrice)
	}
	if !truthy(fields["seller"]) {
		return Listing{}, invalid("seller", MsgMissingSeller)
	}
	if !truthy(fields["signature"]) {
		return Listing{}, invalid("signature", MsgMissingSignature)
	}
	signature, ok := fields["signature"].(string)
	if !ok || utf8.RuneCountInString(signature) != SignatureLength {
		return Listing{}, invalid("signature", MsgSignatureLength)
	}
	price, ok := number(fields["price"])
	if !ok {
		return Listing{}, invalid("price", MsgPriceNotNumber)
	}
	if !(price.f > 0) {
		return Listing{}, invalid("price", MsgPriceNotPositive)
	}
	spaceName, ok := fields["space"].(string)
	if !ok {
		return Listing{}, invalid("space", MsgInvalidJSON)
	}
	if !strings.HasPrefix(spaceName, "@") {
		return Listing{}, invalid("space", MsgSpacePrefix)
	}
	if !price.integral {
		return Listing{}, invalid("price", MsgPriceNotIntegral)
	}
	seller, ok := fields["seller"].(string)
	if !ok {
		return Listing{}, invalid("seller", MsgInvalidJSON)
	}
	return Listing{
		Space:     spaceName,
		Price:     price.i,
		Seller:    seller,
		Signature: signature,
	}, nil
}

func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("listing: payload is not an object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("listing: trailing data after object")
	}
	return fields, nil
}

// truthy mirrors the loose truthiness used by the paste form: absent, null, false,
// zero and the empty string are all treated as missing.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0 && !math.IsNaN(f)
	case float64:
		return x != 0 && !math.IsNaN(x)
	default:
		return true
	}
}

type numeric struct {
	f        float64
	i        int64
	integral bool
}

func number(v any) (numeric, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return numeric{}, false
		}
		n := numeric{f: f}
		if i, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			n.i, n.integral = i, true
		} else if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			n.i, n.integral = int64(f), true
		}
		return n, true
	case float64:
		n := numeric{f: x}
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			n.i, n.integral = int64(x), true
		}
		return n, true
	default:
		return numeric{}, false
	}
}

// Pretty re-indents a JSON payload with two spaces, as the paste handler does.
// Input that is not valid JSON is returned unchanged.
func Pretty(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(raw)), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
