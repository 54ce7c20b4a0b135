// Package web embeds the server-rendered templates and the static assets
// served under /static/.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
