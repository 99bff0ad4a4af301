// Package web embeds the dashboard templates and static assets.
package web

import "embed"

// TemplatesFS holds the page templates and the query result partial.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the chart/HTMX glue script.
//go:embed static/*
var StaticFS embed.FS
