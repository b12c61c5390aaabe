package addressbook

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const addressPattern = "^(0x[0-9a-fA-F]{40})?$"

// documentSchema is the JSON schema every address book file must satisfy.
// Empty strings mark contracts that are not deployed yet.
var documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"definitions": {
		"address": {"type": "string", "pattern": "` + addressPattern + `"},
		"addressMap": {
			"type": "object",
			"additionalProperties": {"$ref": "#/definitions/address"}
		},
		"tranche": {
			"type": "object",
			"required": ["address", "expiration", "trancheFactory"],
			"properties": {
				"address": {"$ref": "#/definitions/address"},
				"expiration": {"type": "integer", "minimum": 1},
				"trancheFactory": {"$ref": "#/definitions/address"},
				"donationAddress": {"$ref": "#/definitions/address"}
			}
		}
	},
	"type": "object",
	"required": ["tokens", "tranches", "userProxy", "vaults", "wrappedPositions"],
	"properties": {
		"tokens": {"$ref": "#/definitions/addressMap"},
		"interestTokenFactory": {"$ref": "#/definitions/address"},
		"dateStringLibrary": {"$ref": "#/definitions/address"},
		"trancheFactory": {"$ref": "#/definitions/address"},
		"userProxy": {"$ref": "#/definitions/address"},
		"tranches": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": {"$ref": "#/definitions/tranche"}
			}
		},
		"vaults": {
			"type": "object",
			"properties": {"yearn": {"$ref": "#/definitions/addressMap"}}
		},
		"wrappedPositions": {
			"type": "object",
			"properties": {
				"v1": {
					"type": "object",
					"properties": {"yearn": {"$ref": "#/definitions/addressMap"}}
				}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// SchemaError lists every schema violation in a document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("address book does not match schema: %s", strings.Join(e.Violations, "; "))
}

// ValidateDocument checks raw JSON against the address book schema.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return &SchemaError{Violations: violations}
}
