// Package schema describes the XDR layout of procedure arguments and
// results, loads it from YAML files and serves it to the proxy through an
// atomically swappable registry.
package schema

import (
	"fmt"
	"math"
	"strings"
)

// TypeKind enumerates the XDR type constructors a schema can use.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindUint
	KindHyper
	KindUhyper
	KindBool
	KindEnum
	KindString
	KindOpaque
	KindFixedOpaque
	KindStruct
	KindFixedArray
	KindVarArray
	KindOptional
)

// Unbounded is the maximum length of string<>, opaque<> and T<>.
const Unbounded = math.MaxUint32

var kindNames = map[TypeKind]string{
	KindVoid:        "void",
	KindInt:         "int",
	KindUint:        "unsigned int",
	KindHyper:       "hyper",
	KindUhyper:      "unsigned hyper",
	KindBool:        "bool",
	KindEnum:        "enum",
	KindString:      "string",
	KindOpaque:      "opaque",
	KindFixedOpaque: "fixed opaque",
	KindStruct:      "struct",
	KindFixedArray:  "fixed array",
	KindVarArray:    "variable array",
	KindOptional:    "optional",
}

func (k TypeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Type is a compiled XDR type. Named types are shared by pointer, so a
// recursive type (a list node with an optional next pointer) is a cycle.
type Type struct {
	Kind TypeKind

	// Name is set for program-scoped named types.
	Name string

	// Max bounds String, Opaque and VarArray lengths.
	Max uint32

	// Size is the length of FixedOpaque and FixedArray.
	Size uint32

	// Elem is the element type of arrays and the target of Optional.
	Elem *Type

	// Fields lists struct members in wire order.
	Fields []Field

	// Enum lists enum members in declaration order.
	Enum []EnumMember
}

// Field is a struct member.
type Field struct {
	Name string
	Type *Type
}

// EnumMember is a named enum constant.
type EnumMember struct {
	Name  string
	Value int32
}

// Primitive types shared by every program.
var (
	Void   = &Type{Kind: KindVoid}
	Int    = &Type{Kind: KindInt}
	Uint   = &Type{Kind: KindUint}
	Hyper  = &Type{Kind: KindHyper}
	Uhyper = &Type{Kind: KindUhyper}
	Bool   = &Type{Kind: KindBool}
)

// EnumValue returns the value of the named member.
func (t *Type) EnumValue(name string) (int32, bool) {
	for _, m := range t.Enum {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

// EnumName returns the name of the member with the given value.
func (t *Type) EnumName(v int32) (string, bool) {
	for _, m := range t.Enum {
		if m.Value == v {
			return m.Name, true
		}
	}
	return "", false
}

// String renders t in RPCL-like notation. Named types render as their name.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	return t.describe()
}

func (t *Type) describe() string {
	switch t.Kind {
	case KindString, KindOpaque:
		return t.Kind.String() + bound(t.Max)
	case KindFixedOpaque:
		return fmt.Sprintf("opaque[%d]", t.Size)
	case KindFixedArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Size)
	case KindVarArray:
		return t.Elem.String() + bound(t.Max)
	case KindOptional:
		return "*" + t.Elem.String()
	case KindStruct:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Type.String() + " " + f.Name
		}
		return "struct { " + strings.Join(parts, "; ") + " }"
	case KindEnum:
		parts := make([]string, len(t.Enum))
		for i, m := range t.Enum {
			parts[i] = fmt.Sprintf("%s = %d", m.Name, m.Value)
		}
		return "enum { " + strings.Join(parts, ", ") + " }"
	default:
		return t.Kind.String()
	}
}

func bound(max uint32) string {
	if max == Unbounded {
		return "<>"
	}
	return fmt.Sprintf("<%d>", max)
}

// Procedure is one remote procedure of a program.
type Procedure struct {
	Number uint32
	Name   string
	Arg    *Type
	Res    *Type
}

// Program is a versioned ONC-RPC program with its named types and
// procedures. Name is the identifier callers use in translation requests.
type Program struct {
	Name       string
	Number     uint32
	Version    uint32
	Types      map[string]*Type
	Procedures map[uint32]*Procedure

	// Source is the file the program was loaded from.
	Source string
}

// Procedure returns the procedure with the given number.
func (p *Program) Procedure(procno uint32) (*Procedure, bool) {
	proc, ok := p.Procedures[procno]
	return proc, ok
}
