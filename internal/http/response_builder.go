// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for HTMX responses: HX-Trigger
// events, alert fragments and status codes.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerQueryCompleted tells the page a CUIT was loaded, enabling export.
func (b *HTMXResponseBuilder) TriggerQueryCompleted(cuit string) *HTMXResponseBuilder {
	return b.Trigger("query:completed", map[string]string{"cuit": cuit})
}

// TriggerQueryFailed clears any previous result on the page.
func (b *HTMXResponseBuilder) TriggerQueryFailed() *HTMXResponseBuilder {
	return b.Trigger("query:failed", struct{}{})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// AlertResponse renders a bootstrap alert. The message is HTML-escaped.
//
// HTMX does not swap 4xx/5xx bodies by default, so query alerts go out with
// the status given here and the page enables swapping for them.
func AlertResponse(statusCode int, level, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="alert alert-` + level + `" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return AlertResponse(http.StatusBadRequest, "warning", message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return AlertResponse(http.StatusUnprocessableEntity, "warning", message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return AlertResponse(http.StatusNotFound, "info", message)
}

func BadGatewayError(message string) *HTMXResponseBuilder {
	return AlertResponse(http.StatusBadGateway, "danger", message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return AlertResponse(http.StatusInternalServerError, "danger", message)
}
