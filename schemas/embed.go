// Package schemas provides access to embedded JSON schemas.
package schemas

import (
	_ "embed"
)

// The credential schemas describe the records stored by
// 'forest-mcp credentials set' and read back for each auth mode.
//
//go:embed bearer.schema.json
var bearerSchema []byte

//go:embed oauth2.schema.json
var oauth2Schema []byte

// GetBearerSchema returns the JSON Schema of a bearer credential record.
func GetBearerSchema() []byte {
	return bearerSchema
}

// GetOAuth2Schema returns the JSON Schema of an OAuth2 credential record.
func GetOAuth2Schema() []byte {
	return oauth2Schema
}
