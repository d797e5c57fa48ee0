package payment

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackJSON(t *testing.T) {
	cb, err := ParseCallback([]byte(`{"merchantAccount":"shop","orderReference":"WFP-1","amount":1400,"currency":"UAH","transactionStatus":"Approved","email":"a@b.c"}`))
	require.NoError(t, err)
	assert.Equal(t, "shop", cb.MerchantAccount)
	assert.Equal(t, "WFP-1", cb.OrderReference)
	assert.Equal(t, "1400", cb.Amount)
	assert.Equal(t, GatewayApproved, cb.TransactionStatus)
	assert.Equal(t, "a@b.c", cb.Email)
	assert.NotEmpty(t, cb.Raw)
}

func TestParseCallbackFormWrappedJSON(t *testing.T) {
	body := url.QueryEscape(`{"orderReference":"WFP-2","transactionStatus":"Declined"}`)
	cb, err := ParseCallback([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "WFP-2", cb.OrderReference)
	assert.Equal(t, GatewayDeclined, cb.TransactionStatus)
}

func TestParseCallbackKeepsEncodedValues(t *testing.T) {
	doc := `{"orderReference":"WFP-4","merchantSignature":"c2ln+bmF0dXJl==","email":"room+decor@example.com","transactionStatus":"Approved"}`

	t.Run("form key", func(t *testing.T) {
		cb, err := ParseCallback([]byte(url.QueryEscape(doc) + "="))
		require.NoError(t, err)
		assert.Equal(t, "WFP-4", cb.OrderReference)
		assert.Equal(t, "c2ln+bmF0dXJl==", cb.MerchantSignature)
		assert.Equal(t, "room+decor@example.com", cb.Email)
		assert.JSONEq(t, doc, string(cb.Raw))
	})

	t.Run("raw json with trailing equals", func(t *testing.T) {
		cb, err := ParseCallback([]byte(doc + "="))
		require.NoError(t, err)
		assert.Equal(t, "c2ln+bmF0dXJl==", cb.MerchantSignature)
		assert.Equal(t, "room+decor@example.com", cb.Email)
	})
}

func TestParseCallbackFormFields(t *testing.T) {
	form := url.Values{}
	form.Set("orderReference", "WFP-3")
	form.Set("transactionStatus", "Approved")
	form.Set("amount", "1")

	cb, err := ParseCallback([]byte(form.Encode()))
	require.NoError(t, err)
	assert.Equal(t, "WFP-3", cb.OrderReference)
	assert.Equal(t, "1", cb.Amount)
	assert.JSONEq(t, `{"orderReference":"WFP-3","transactionStatus":"Approved","amount":"1"}`, string(cb.Raw))
}

func TestParseCallbackErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "  ", ErrEmptyCallback},
		{"broken json", `{"orderReference":`, ErrMalformedCallback},
		{"form without document", "foo=bar", ErrMalformedCallback},
		{"wrapped broken json", url.QueryEscape(`{"orderReference":`) + "=", ErrMalformedCallback},
		{"missing reference", `{"transactionStatus":"Approved"}`, ErrInvalidPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCallback([]byte(tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
