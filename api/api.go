// Package api embeds the OpenAPI document served by the HTTP server.
package api

import _ "embed"

//go:embed openapi.yml
var Spec []byte
