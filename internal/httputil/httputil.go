// Package httputil provides response handling shared by the portal REST client.
package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxResponseSize bounds how much of a portal response is read.
const MaxResponseSize = 64 << 20

// maxErrorBody bounds the excerpt kept from a failed response.
const maxErrorBody = 512

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %s", e.URL, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %s: %s", e.URL, e.Status, e.Body)
}

// PortalError is the error envelope portal REST endpoints return with HTTP 200.
type PortalError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *PortalError) Error() string {
	msg := fmt.Sprintf("portal error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// NotFound reports whether the portal rejected the request because the item
// or layer does not exist.
func (e *PortalError) NotFound() bool {
	return e.Code == http.StatusNotFound || e.Code == 400 && strings.Contains(strings.ToLower(e.Message), "does not exist")
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// DecodeResponse checks the status of resp and decodes its JSON body into v.
// A body carrying an "error" member is returned as a *PortalError.
func DecodeResponse(resp *http.Response, v any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if !IsSuccess(resp.StatusCode) {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        requestURL(resp),
			Body:       excerpt(body),
		}
	}
	return DecodeBody(body, v)
}

// DecodeBody decodes a portal JSON body into v, surfacing the error envelope.
func DecodeBody(body []byte, v any) error {
	var envelope struct {
		Error *PortalError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func requestURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	u := *resp.Request.URL
	u.RawQuery = ""
	return u.String()
}

func excerpt(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
