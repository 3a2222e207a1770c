// Package web embeds the server-side document templates.
package web

import "embed"

// TemplatesFS holds the statement templates rendered by internal/report.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
