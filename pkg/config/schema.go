package config

import (
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/marmos91/xdrproxy/internal/bytesize"
)

// JSONSchema returns the JSON schema of the configuration file, for editor
// completion and validation.
func JSONSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
		Mapper:                    mapType,
	}

	schema := reflector.Reflect(&Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "xdrproxy Configuration"
	schema.Description = "Configuration schema for the xdrproxy XML-RPC to ONC-RPC translation proxy"
	return schema
}

// mapType describes the types whose YAML form differs from their Go kind.
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(time.Duration(0)):
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
			Description: "Duration such as 500ms, 10s or 1m30s",
		}
	case reflect.TypeOf(bytesize.ByteSize(0)):
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "integer", Minimum: "0"},
				{Type: "string", Pattern: `^\s*[0-9]+(\.[0-9]+)?\s*([KkMmGgTt]i?[Bb]?|[Bb])?\s*$`},
			},
			Description: "Size in bytes, or with a unit such as 64Ki, 1Mi or 100MB",
		}
	}
	return nil
}
