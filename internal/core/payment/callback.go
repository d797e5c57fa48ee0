package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrEmptyCallback     = errors.New("Invalid callback format")
	ErrMalformedCallback = errors.New("Invalid JSON data")
	ErrInvalidPayment    = errors.New("Invalid payment data")
)

// ParseCallback accepts the three shapes a service callback arrives in:
// a raw JSON body, a form body whose only key is the JSON document, or
// ordinary form fields.
func ParseCallback(body []byte) (*Callback, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyCallback
	}

	doc, err := callbackDocument(body)
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(doc)
	cb := &Callback{
		MerchantAccount:   result.Get("merchantAccount").String(),
		OrderReference:    result.Get("orderReference").String(),
		MerchantSignature: result.Get("merchantSignature").String(),
		Amount:            result.Get("amount").String(),
		Currency:          result.Get("currency").String(),
		AuthCode:          result.Get("authCode").String(),
		CardPan:           result.Get("cardPan").String(),
		TransactionStatus: result.Get("transactionStatus").String(),
		ReasonCode:        result.Get("reasonCode").String(),
		Email:             result.Get("email").String(),
		Raw:               doc,
	}
	if cb.OrderReference == "" {
		return nil, ErrInvalidPayment
	}
	return cb, nil
}

// callbackDocument normalizes the body to a JSON document. Supported shapes:
//
//	{"orderReference":...}          raw JSON, optionally followed by "="
//	%7B%22orderReference%22...%7D=  the whole JSON percent-encoded as a form key
//	orderReference=...&amount=...   plain form fields
//
// A wrapped document is unescaped as a whole, so "=" and "%2B" inside its
// values survive. A literal "+" in a wrapped body reads as a space.
func callbackDocument(body []byte) ([]byte, error) {
	if body[0] == '{' {
		doc := bytes.TrimSuffix(body, []byte("="))
		if !gjson.ValidBytes(doc) {
			return nil, ErrMalformedCallback
		}
		return doc, nil
	}

	if decoded, err := url.QueryUnescape(strings.TrimSuffix(string(body), "=")); err == nil &&
		strings.HasPrefix(decoded, "{") && gjson.Valid(decoded) {
		return []byte(decoded), nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, ErrMalformedCallback
	}
	if _, ok := form["orderReference"]; !ok {
		return nil, ErrMalformedCallback
	}

	fields := make(map[string]string, len(form))
	for k := range form {
		fields[k] = form.Get(k)
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return nil, ErrMalformedCallback
	}
	return doc, nil
}
