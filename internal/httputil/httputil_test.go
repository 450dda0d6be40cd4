package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(code int, body string) *http.Response {
	u, _ := url.Parse("https://portal.example.com/sharing/rest/content/items/abc?f=json&token=secret")
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    &http.Request{URL: u},
	}
}

func TestIsSuccess(t *testing.T) {
	tests := []struct {
		code     int
		expected bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{301, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsSuccess(tt.code), "code %d", tt.code)
	}
}

// TestDecodeResponse tests decoding of successful and failed portal responses.
func TestDecodeResponse(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var v struct {
			Title string `json:"title"`
		}
		require.NoError(t, DecodeResponse(response(200, `{"title":"Parcels"}`), &v))
		assert.Equal(t, "Parcels", v.Title)
	})

	t.Run("status error drops query", func(t *testing.T) {
		err := DecodeResponse(response(502, "bad gateway"), nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 502, se.StatusCode)
		assert.Equal(t, "bad gateway", se.Body)
		assert.NotContains(t, se.Error(), "secret")
	})

	t.Run("portal error envelope", func(t *testing.T) {
		body := `{"error":{"code":400,"message":"Item does not exist or is inaccessible.","details":["x"]}}`
		err := DecodeResponse(response(200, body), &struct{}{})
		var pe *PortalError
		require.True(t, errors.As(err, &pe))
		assert.True(t, pe.NotFound())
		assert.Contains(t, pe.Error(), "(x)")
	})

	t.Run("invalid json", func(t *testing.T) {
		err := DecodeResponse(response(200, `not json`), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding response")
	})
}

// TestPortalError_NotFound tests which envelopes count as missing items.
func TestPortalError_NotFound(t *testing.T) {
	assert.True(t, (&PortalError{Code: 404, Message: "Not found"}).NotFound())
	assert.False(t, (&PortalError{Code: 400, Message: "Invalid token"}).NotFound())
	assert.False(t, (&PortalError{Code: 498, Message: "Invalid token"}).NotFound())
}

// TestExcerpt tests that long bodies are truncated.
func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a", maxErrorBody+10)
	got := excerpt([]byte(long))
	assert.Len(t, got, maxErrorBody+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
