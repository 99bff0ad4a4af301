// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of form and JSON request bodies.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"veraz/internal/core"
)

// maxBodyBytes bounds login and query bodies.
const maxBodyBytes = 64 << 10

// RequestBodyParser reads a form-encoded or JSON body once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object, as form data
// otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed, sanitized value from the parsed body.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetSecret returns a value without trimming, for passwords.
func (p *RequestBodyParser) GetSecret(key string) string {
	if p.jsonData != nil {
		s, _ := p.jsonData[key].(string)
		return s
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseCUIT normalizes a user-entered CUIT ("30-68712006-6" and
// "30687120066" are the same). Validation is left to the service.
func parseCUIT(raw string) string {
	return core.NormalizeCUIT(sanitizeInput(raw))
}
