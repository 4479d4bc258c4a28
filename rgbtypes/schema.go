// Package rgbtypes defines the protocol tags shared by invoices, transfers and
// assets. Every tag is open ended: values the provider reports that this
// client doesn't know are kept verbatim and reported as unknown rather than
// mapped onto a default.
package rgbtypes

import (
	"fmt"
	"strings"
)

// AssetSchema is the RGB schema an asset was issued under.
type AssetSchema string

const (
	// SchemaNia is the non inflatable asset schema.
	SchemaNia AssetSchema = "Nia"

	// SchemaCfa is the collectible fungible asset schema.
	SchemaCfa AssetSchema = "Cfa"

	// SchemaUda is the unique digital asset schema.
	SchemaUda AssetSchema = "Uda"
)

// ParseAssetSchema maps a provider reported schema onto a known value,
// ignoring case. Unknown schemas are returned unchanged.
func ParseAssetSchema(raw string) AssetSchema {
	for _, s := range []AssetSchema{SchemaNia, SchemaCfa, SchemaUda} {
		if strings.EqualFold(raw, string(s)) {
			return s
		}
	}

	return AssetSchema(raw)
}

// Known returns true if the schema is one this client understands.
func (s AssetSchema) Known() bool {
	switch s {
	case SchemaNia, SchemaCfa, SchemaUda:
		return true
	}

	return false
}

// String returns the schema name, flagging values this client doesn't know.
func (s AssetSchema) String() string {
	if !s.Known() {
		return fmt.Sprintf("Unknown(%s)", string(s))
	}

	return string(s)
}
