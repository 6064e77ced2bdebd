// Package configs provides embedded configuration templates for
// vaultindex.
//
// The template is embedded at build time with //go:embed so it ships
// inside the binary regardless of how it was installed. It is written
// out by 'vaultindex init'.
package configs

import _ "embed"

// ConfigTemplate is the annotated example configuration written by
// 'vaultindex init' as .vaultindex.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
