package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// File is the on-disk schema document.
//
// Example:
//
//	programs:
//	  - name: tst_prog_1
//	    number: 0x20000001
//	    version: 1
//	    types:
//	      foo_t:
//	        struct:
//	          - {name: x, type: int}
//	          - {name: y, type: string}
//	    procedures:
//	      - {number: 1, name: FOO, arg: foo_t, res: int}
type File struct {
	Programs []ProgramDef `yaml:"programs" json:"programs" validate:"required,min=1,dive"`
}

// ProgramDef declares one program.
type ProgramDef struct {
	Name       string              `yaml:"name" json:"name" validate:"required"`
	Number     uint32              `yaml:"number" json:"number" validate:"required"`
	Version    uint32              `yaml:"version" json:"version" validate:"required"`
	Types      map[string]TypeExpr `yaml:"types,omitempty" json:"types,omitempty"`
	Procedures []ProcedureDef      `yaml:"procedures" json:"procedures" validate:"required,min=1,dive"`
}

// ProcedureDef declares one procedure. Number 0 is the conventional NULL
// procedure and is allowed.
type ProcedureDef struct {
	Number uint32   `yaml:"number" json:"number"`
	Name   string   `yaml:"name" json:"name" validate:"required"`
	Arg    TypeExpr `yaml:"arg" json:"arg"`
	Res    TypeExpr `yaml:"res" json:"res"`
}

// FieldDef declares one struct member.
type FieldDef struct {
	Name string   `yaml:"name" json:"name" validate:"required"`
	Type TypeExpr `yaml:"type" json:"type"`
}

// EnumDef declares one enum member.
type EnumDef struct {
	Name  string
	Value int32
}

// TypeExpr is a type as written in a schema file: either an RPCL-like
// string (int, string<32>, foo_t<>, *node_t) or a mapping with a single
// struct or enum key.
type TypeExpr struct {
	Ref    string
	Struct []FieldDef
	Enum   []EnumDef

	// Line is the source line, for error messages.
	Line int
}

// IsZero reports whether the expression was omitted.
func (e TypeExpr) IsZero() bool {
	return e.Ref == "" && e.Struct == nil && e.Enum == nil
}

// UnmarshalYAML decodes the scalar or mapping forms of a type.
func (e *TypeExpr) UnmarshalYAML(node *yaml.Node) error {
	e.Line = node.Line

	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return fmt.Errorf("line %d: empty type", node.Line)
		}
		e.Ref = node.Value
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: type mapping must have exactly one key (struct or enum)", node.Line)
		}
		key, body := node.Content[0], node.Content[1]

		switch key.Value {
		case "struct":
			var fields []FieldDef
			if err := body.Decode(&fields); err != nil {
				return err
			}
			if fields == nil {
				fields = []FieldDef{}
			}
			e.Struct = fields
			return nil
		case "enum":
			members, err := decodeEnum(body)
			if err != nil {
				return err
			}
			e.Enum = members
			return nil
		default:
			return fmt.Errorf("line %d: unknown type constructor %q", key.Line, key.Value)
		}

	default:
		return fmt.Errorf("line %d: type must be a string or a mapping", node.Line)
	}
}

// decodeEnum reads an enum mapping keeping declaration order.
func decodeEnum(node *yaml.Node) ([]EnumDef, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: enum must be a mapping of NAME: value", node.Line)
	}
	members := make([]EnumDef, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, val := node.Content[i], node.Content[i+1]
		n, err := strconv.ParseInt(val.Value, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: enum %s: invalid value %q", val.Line, name.Value, val.Value)
		}
		members = append(members, EnumDef{Name: name.Value, Value: int32(n)})
	}
	return members, nil
}

// MarshalYAML renders the expression back to its file form.
func (e TypeExpr) MarshalYAML() (any, error) {
	switch {
	case e.Struct != nil:
		return map[string]any{"struct": e.Struct}, nil
	case e.Enum != nil:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, m := range e.Enum {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: m.Name},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(int(m.Value))},
			)
		}
		return map[string]any{"enum": node}, nil
	default:
		return e.Ref, nil
	}
}

// JSONSchema describes the two accepted forms for editors and the
// `schema jsonschema` command.
func (TypeExpr) JSONSchema() *jsonschema.Schema {
	fieldItem := orderedmap.New[string, *jsonschema.Schema]()
	fieldItem.Set("name", &jsonschema.Schema{Type: "string"})
	fieldItem.Set("type", &jsonschema.Schema{Ref: "#/$defs/TypeExpr"})

	structProps := orderedmap.New[string, *jsonschema.Schema]()
	structProps.Set("struct", &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type:       "object",
			Properties: fieldItem,
			Required:   []string{"name", "type"},
		},
	})

	enumProps := orderedmap.New[string, *jsonschema.Schema]()
	enumProps.Set("enum", &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "integer"},
	})

	return &jsonschema.Schema{
		Description: "XDR type: RPCL-like string (int, string<32>, foo_t<>, *node_t, opaque[16]) or a struct/enum mapping",
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "object", Properties: structProps, Required: []string{"struct"}},
			{Type: "object", Properties: enumProps, Required: []string{"enum"}},
		},
	}
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty schema file")
		}
		return nil, err
	}
	return &f, nil
}
