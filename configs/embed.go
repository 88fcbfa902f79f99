// Package configs provides the embedded configuration template for
// candidex. Embedding at build time keeps the template available in
// every distribution, source builds and binary releases alike.
//
// The template is written by `candidex config init` and documents every
// key with its default. The loading precedence lives in
// internal/config: defaults, then the config file, then CANDIDEX_*
// environment variables.
package configs

import _ "embed"

// ConfigTemplate is the annotated example configuration written by
// `candidex config init`.
//
//go:embed config.example.yaml
var ConfigTemplate string
