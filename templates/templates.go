// Package templates embeds the HTML pages served by the controllers.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.tmpl
var files embed.FS

// Load parses every page and the shared layout.
func Load() (*template.Template, error) {
	return template.New("").ParseFS(files, "*.tmpl")
}
