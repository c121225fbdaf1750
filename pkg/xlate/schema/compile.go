package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CompileError reports a problem in a schema file.
type CompileError struct {
	Source  string
	Program string
	Line    int
	Msg     string
}

func (e *CompileError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	if e.Program != "" {
		fmt.Fprintf(&b, "program %s: ", e.Program)
	}
	b.WriteString(e.Msg)
	return b.String()
}

// Source pairs a parsed file with its origin for diagnostics.
type Source struct {
	Name string
	File *File
}

// Compile checks and resolves schema files into an immutable Registry.
//
// Rejected: validator tag failures, duplicate program names, duplicate
// procedure numbers, duplicate struct field or enum member names, unknown
// type names and types that can only be satisfied by infinite values.
func Compile(sources ...Source) (*Registry, error) {
	reg := newRegistry()

	for _, src := range sources {
		if err := validate.Struct(src.File); err != nil {
			return nil, &CompileError{Source: src.Name, Msg: err.Error()}
		}

		for i := range src.File.Programs {
			def := &src.File.Programs[i]
			if prev, dup := reg.programs[def.Name]; dup {
				return nil, &CompileError{
					Source:  src.Name,
					Program: def.Name,
					Msg:     fmt.Sprintf("duplicate program name (also defined in %s)", prev.Source),
				}
			}

			prog, err := compileProgram(def)
			if err != nil {
				if ce, ok := err.(*CompileError); ok {
					ce.Source = src.Name
					ce.Program = def.Name
					return nil, ce
				}
				return nil, err
			}
			prog.Source = src.Name
			reg.add(prog)
		}
	}

	return reg, nil
}

type buildState int

const (
	unbuilt buildState = iota
	building
	built
)

// compiler resolves the types of one program.
type compiler struct {
	defs     map[string]TypeExpr
	resolved map[string]*Type
	state    map[string]buildState
}

func compileProgram(def *ProgramDef) (*Program, error) {
	c := &compiler{
		defs:     def.Types,
		resolved: make(map[string]*Type, len(def.Types)),
		state:    make(map[string]buildState, len(def.Types)),
	}

	// Allocate every named type first so references (including recursive
	// ones) resolve to a stable pointer.
	names := make([]string, 0, len(def.Types))
	for name := range def.Types {
		if _, builtin := builtinType(name); builtin || !isIdent(name) {
			return nil, &CompileError{Line: def.Types[name].Line, Msg: fmt.Sprintf("invalid type name %q", name)}
		}
		names = append(names, name)
		c.resolved[name] = &Type{Name: name}
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := c.named(name); err != nil {
			return nil, err
		}
	}

	for _, name := range names {
		if !finite(c.resolved[name], map[*Type]bool{}) {
			return nil, &CompileError{
				Line: def.Types[name].Line,
				Msg:  fmt.Sprintf("type %s contains itself without an optional or variable-length indirection", name),
			}
		}
	}

	prog := &Program{
		Name:       def.Name,
		Number:     def.Number,
		Version:    def.Version,
		Types:      c.resolved,
		Procedures: make(map[uint32]*Procedure, len(def.Procedures)),
	}

	for _, pd := range def.Procedures {
		if _, dup := prog.Procedures[pd.Number]; dup {
			return nil, &CompileError{Line: pd.Arg.Line, Msg: fmt.Sprintf("duplicate procedure number %d", pd.Number)}
		}
		if pd.Arg.IsZero() || pd.Res.IsZero() {
			return nil, &CompileError{Msg: fmt.Sprintf("procedure %s: arg and res types are required (use void)", pd.Name)}
		}
		arg, err := c.build(pd.Arg)
		if err != nil {
			return nil, wrapProc(pd.Name, "arg", err)
		}
		res, err := c.build(pd.Res)
		if err != nil {
			return nil, wrapProc(pd.Name, "res", err)
		}
		prog.Procedures[pd.Number] = &Procedure{Number: pd.Number, Name: pd.Name, Arg: arg, Res: res}
	}

	return prog, nil
}

func wrapProc(proc, which string, err error) error {
	if ce, ok := err.(*CompileError); ok {
		ce.Msg = fmt.Sprintf("procedure %s %s: %s", proc, which, ce.Msg)
		return ce
	}
	return err
}

// build compiles one type expression.
func (c *compiler) build(e TypeExpr) (*Type, error) {
	switch {
	case e.Struct != nil:
		t := &Type{Kind: KindStruct, Fields: make([]Field, 0, len(e.Struct))}
		seen := make(map[string]bool, len(e.Struct))
		for _, fd := range e.Struct {
			if fd.Name == "" || fd.Type.IsZero() {
				return nil, &CompileError{Line: e.Line, Msg: "struct members need a name and a type"}
			}
			if seen[fd.Name] {
				return nil, &CompileError{Line: fd.Type.Line, Msg: fmt.Sprintf("duplicate struct field %q", fd.Name)}
			}
			seen[fd.Name] = true

			ft, err := c.build(fd.Type)
			if err != nil {
				return nil, err
			}
			if c.isVoid(ft) {
				return nil, &CompileError{Line: fd.Type.Line, Msg: fmt.Sprintf("struct field %q cannot be void", fd.Name)}
			}
			t.Fields = append(t.Fields, Field{Name: fd.Name, Type: ft})
		}
		return t, nil

	case e.Enum != nil:
		if len(e.Enum) == 0 {
			return nil, &CompileError{Line: e.Line, Msg: "enum needs at least one member"}
		}
		t := &Type{Kind: KindEnum, Enum: make([]EnumMember, 0, len(e.Enum))}
		names := make(map[string]bool, len(e.Enum))
		for _, m := range e.Enum {
			if names[m.Name] {
				return nil, &CompileError{Line: e.Line, Msg: fmt.Sprintf("duplicate enum member %q", m.Name)}
			}
			names[m.Name] = true
			t.Enum = append(t.Enum, EnumMember{Name: m.Name, Value: m.Value})
		}
		return t, nil

	default:
		t, err := c.parseRef(strings.TrimSpace(e.Ref))
		if err != nil {
			return nil, &CompileError{Line: e.Line, Msg: err.Error()}
		}
		return t, nil
	}
}

// parseRef parses an RPCL-like type string.
func (c *compiler) parseRef(s string) (*Type, error) {
	if s == "" {
		return nil, fmt.Errorf("empty type")
	}

	if rest, ok := strings.CutPrefix(s, "*"); ok {
		elem, err := c.parseRef(strings.TrimSpace(rest))
		if err != nil {
			return nil, err
		}
		if c.isVoid(elem) {
			return nil, fmt.Errorf("optional void is not a type")
		}
		return &Type{Kind: KindOptional, Elem: elem}, nil
	}

	if strings.HasSuffix(s, ">") {
		open := strings.LastIndex(s, "<")
		if open < 0 {
			return nil, fmt.Errorf("unbalanced '>' in %q", s)
		}
		base := strings.TrimSpace(s[:open])
		max, err := parseBound(s[open+1:len(s)-1], true)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		switch base {
		case "string":
			return &Type{Kind: KindString, Max: max}, nil
		case "opaque":
			return &Type{Kind: KindOpaque, Max: max}, nil
		}
		elem, err := c.parseRef(base)
		if err != nil {
			return nil, err
		}
		if c.isVoid(elem) {
			return nil, fmt.Errorf("array of void is not a type")
		}
		return &Type{Kind: KindVarArray, Max: max, Elem: elem}, nil
	}

	if strings.HasSuffix(s, "]") {
		open := strings.LastIndex(s, "[")
		if open < 0 {
			return nil, fmt.Errorf("unbalanced ']' in %q", s)
		}
		base := strings.TrimSpace(s[:open])
		size, err := parseBound(s[open+1:len(s)-1], false)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		if base == "opaque" {
			return &Type{Kind: KindFixedOpaque, Size: size}, nil
		}
		if base == "string" {
			return nil, fmt.Errorf("fixed-length strings are not XDR; use string<%d>", size)
		}
		elem, err := c.parseRef(base)
		if err != nil {
			return nil, err
		}
		if c.isVoid(elem) {
			return nil, fmt.Errorf("array of void is not a type")
		}
		return &Type{Kind: KindFixedArray, Size: size, Elem: elem}, nil
	}

	if t, ok := builtinType(s); ok {
		return t, nil
	}
	if _, ok := c.resolved[s]; ok {
		return c.named(s)
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

// named returns the named type, building it on first use. While a type is
// being built its placeholder is returned, which is fine behind a
// constructor (pointer, array, struct member) but not as a bare alias.
func (c *compiler) named(name string) (*Type, error) {
	t := c.resolved[name]
	if c.state[name] != unbuilt {
		return t, nil
	}

	c.state[name] = building
	def := c.defs[name]
	b, err := c.build(def)
	if err != nil {
		return nil, err
	}
	if b.Name != "" && c.state[b.Name] == building {
		return nil, &CompileError{Line: def.Line, Msg: fmt.Sprintf("circular type alias %s -> %s", name, b.Name)}
	}

	*t = *b
	t.Name = name
	c.state[name] = built
	return t, nil
}

// isVoid reports whether t is void. A placeholder still under construction
// is not void yet.
func (c *compiler) isVoid(t *Type) bool {
	if t.Name != "" && c.state[t.Name] == building {
		return false
	}
	return t.Kind == KindVoid
}

// builtinType maps scalar spellings to primitive types. Bare string and
// opaque are unbounded.
func builtinType(s string) (*Type, bool) {
	switch strings.Join(strings.Fields(s), " ") {
	case "void":
		return Void, true
	case "int":
		return Int, true
	case "unsigned int", "unsigned", "uint":
		return Uint, true
	case "hyper":
		return Hyper, true
	case "unsigned hyper", "uhyper":
		return Uhyper, true
	case "bool":
		return Bool, true
	case "string":
		return &Type{Kind: KindString, Max: Unbounded}, true
	case "opaque":
		return &Type{Kind: KindOpaque, Max: Unbounded}, true
	}
	return nil, false
}

func parseBound(s string, allowEmpty bool) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if allowEmpty {
			return Unbounded, nil
		}
		return 0, fmt.Errorf("fixed size required")
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return uint32(n), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// finite reports whether t admits a finite value. Optional and variable
// arrays can always be empty, so they stop the search.
func finite(t *Type, visiting map[*Type]bool) bool {
	switch t.Kind {
	case KindOptional, KindVarArray:
		return true
	case KindStruct, KindFixedArray:
		if visiting[t] {
			return false
		}
		visiting[t] = true
		defer delete(visiting, t)

		if t.Kind == KindFixedArray {
			return t.Size == 0 || finite(t.Elem, visiting)
		}
		for _, f := range t.Fields {
			if !finite(f.Type, visiting) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
