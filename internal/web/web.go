// Package web holds the single-page upload UI.
package web

import _ "embed"

//go:embed templates/index.html
var IndexHTML []byte
