package schema

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/invopop/jsonschema"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const tstProgYAML = `
programs:
  - name: tst_prog_1
    number: 0x20000001
    version: 1
    types:
      foo_t:
        struct:
          - {name: x, type: int}
          - {name: y, type: string}
      bar_t:
        struct:
          - {name: xx, type: int}
          - {name: a, type: foo_t}
    procedures:
      - {number: 1, name: FOO, arg: foo_t, res: int}
      - {number: 2, name: BAR, arg: bar_t, res: foo_t}
`

func mustLoad(t *testing.T, doc string) *Registry {
	t.Helper()
	reg, err := LoadBytes("test.yaml", []byte(doc))
	require.NoError(t, err)
	return reg
}

func compileErr(t *testing.T, doc string) error {
	t.Helper()
	_, err := LoadBytes("test.yaml", []byte(doc))
	require.Error(t, err)
	return err
}

func TestLoadTstProg(t *testing.T) {
	reg := mustLoad(t, tstProgYAML)
	require.Equal(t, 1, reg.Len())

	prog, proc, err := reg.Lookup("tst_prog_1", 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x20000001), prog.Number)
	assert.Equal(t, uint32(1), prog.Version)
	assert.Equal(t, "BAR", proc.Name)

	require.Equal(t, KindStruct, proc.Arg.Kind)
	assert.Equal(t, "bar_t", proc.Arg.Name)
	require.Len(t, proc.Arg.Fields, 2)
	assert.Equal(t, "xx", proc.Arg.Fields[0].Name)
	assert.Equal(t, KindInt, proc.Arg.Fields[0].Type.Kind)
	assert.Same(t, prog.Types["foo_t"], proc.Arg.Fields[1].Type)
	assert.Same(t, prog.Types["foo_t"], proc.Res)

	foo := prog.Types["foo_t"]
	assert.Equal(t, KindString, foo.Fields[1].Type.Kind)
	assert.Equal(t, uint32(Unbounded), foo.Fields[1].Type.Max)
}

func TestLookupErrors(t *testing.T) {
	reg := mustLoad(t, tstProgYAML)

	_, _, err := reg.Lookup("tst_prog_1", 9)
	assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrUnknownProcedure))

	_, _, err = reg.Lookup("nope", 1)
	assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrUnknownProcedure))

	var empty *Registry
	_, _, err = empty.Lookup("tst_prog_1", 1)
	assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrUnknownProcedure))
}

func TestTypeExpressions(t *testing.T) {
	tests := []struct {
		expr string
		kind TypeKind
		max  uint32
		size uint32
		str  string
	}{
		{"int", KindInt, 0, 0, "int"},
		{"unsigned int", KindUint, 0, 0, "unsigned int"},
		{"uint", KindUint, 0, 0, "unsigned int"},
		{"hyper", KindHyper, 0, 0, "hyper"},
		{"unsigned  hyper", KindUhyper, 0, 0, "unsigned hyper"},
		{"bool", KindBool, 0, 0, "bool"},
		{"string<32>", KindString, 32, 0, "string<32>"},
		{"string<>", KindString, Unbounded, 0, "string<>"},
		{"opaque<0x10>", KindOpaque, 16, 0, "opaque<16>"},
		{"opaque[8]", KindFixedOpaque, 0, 8, "opaque[8]"},
		{"int<4>", KindVarArray, 4, 0, "int<4>"},
		{"int[3]", KindFixedArray, 0, 3, "int[3]"},
		{"*int", KindOptional, 0, 0, "*int"},
		{"string<8><2>", KindVarArray, 2, 0, "string<8><2>"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c := &compiler{resolved: map[string]*Type{}, state: map[string]buildState{}}
			typ, err := c.parseRef(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, typ.Kind)
			assert.Equal(t, tt.max, typ.Max)
			assert.Equal(t, tt.size, typ.Size)
			assert.Equal(t, tt.str, typ.String())
		})
	}

	bad := []string{"", "float", "string[4]", "opaque[]", "int<x>", "int>", "*void", "void<>"}
	for _, expr := range bad {
		t.Run("Invalid/"+expr, func(t *testing.T) {
			c := &compiler{resolved: map[string]*Type{}, state: map[string]buildState{}}
			_, err := c.parseRef(expr)
			assert.Error(t, err)
		})
	}
}

func TestEnumAndRecursiveTypes(t *testing.T) {
	reg := mustLoad(t, `
programs:
  - name: p
    number: 100
    version: 2
    types:
      color:
        enum: {RED: 0, GREEN: 1, BLUE: 0x10}
      node:
        struct:
          - {name: value, type: int}
          - {name: next, type: "*node"}
      palette: color<4>
    procedures:
      - {number: 0, name: "NULL", arg: void, res: void}
      - {number: 1, name: WALK, arg: node, res: palette}
`)
	prog, ok := reg.Program("p")
	require.True(t, ok)

	color := prog.Types["color"]
	require.Equal(t, KindEnum, color.Kind)
	assert.Equal(t, []EnumMember{{"RED", 0}, {"GREEN", 1}, {"BLUE", 16}}, color.Enum)
	v, ok := color.EnumValue("BLUE")
	assert.True(t, ok)
	assert.Equal(t, int32(16), v)
	name, ok := color.EnumName(1)
	assert.True(t, ok)
	assert.Equal(t, "GREEN", name)

	node := prog.Types["node"]
	next := node.Fields[1].Type
	require.Equal(t, KindOptional, next.Kind)
	assert.Same(t, node, next.Elem)

	palette := prog.Types["palette"]
	assert.Equal(t, KindVarArray, palette.Kind)
	assert.Same(t, color, palette.Elem)

	_, null, err := reg.Lookup("p", 0)
	require.NoError(t, err)
	assert.Equal(t, KindVoid, null.Arg.Kind)
}

func TestAliasResolvesRegardlessOfOrder(t *testing.T) {
	reg := mustLoad(t, `
programs:
  - name: p
    number: 1
    version: 1
    types:
      a_alias: z_struct
      z_struct:
        struct:
          - {name: v, type: int}
    procedures:
      - {number: 1, name: P, arg: a_alias, res: void}
`)
	_, proc, err := reg.Lookup("p", 1)
	require.NoError(t, err)
	assert.Equal(t, KindStruct, proc.Arg.Kind)
	assert.Equal(t, "a_alias", proc.Arg.Name)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"MissingPrograms", `programs: []`, "Programs"},
		{"MissingName", `
programs:
  - number: 1
    version: 1
    procedures: [{number: 1, name: P, arg: int, res: int}]
`, "Name"},
		{"UnknownKey", `
programs:
  - name: p
    number: 1
    version: 1
    colour: red
    procedures: [{number: 1, name: P, arg: int, res: int}]
`, "colour"},
		{"UnknownType", `
programs:
  - name: p
    number: 1
    version: 1
    procedures: [{number: 1, name: P, arg: nope_t, res: int}]
`, `unknown type "nope_t"`},
		{"DuplicateProcedure", `
programs:
  - name: p
    number: 1
    version: 1
    procedures:
      - {number: 1, name: P, arg: int, res: int}
      - {number: 1, name: Q, arg: int, res: int}
`, "duplicate procedure number 1"},
		{"DuplicateProgram", `
programs:
  - name: p
    number: 1
    version: 1
    procedures: [{number: 1, name: P, arg: int, res: int}]
  - name: p
    number: 2
    version: 1
    procedures: [{number: 1, name: P, arg: int, res: int}]
`, "duplicate program name"},
		{"DuplicateField", `
programs:
  - name: p
    number: 1
    version: 1
    types:
      s:
        struct:
          - {name: x, type: int}
          - {name: x, type: int}
    procedures: [{number: 1, name: P, arg: s, res: int}]
`, `duplicate struct field "x"`},
		{"MissingRes", `
programs:
  - name: p
    number: 1
    version: 1
    procedures: [{number: 1, name: P, arg: int}]
`, "arg and res types are required"},
		{"InfiniteType", `
programs:
  - name: p
    number: 1
    version: 1
    types:
      loop:
        struct:
          - {name: self, type: loop}
    procedures: [{number: 1, name: P, arg: loop, res: int}]
`, "contains itself"},
		{"CircularAlias", `
programs:
  - name: p
    number: 1
    version: 1
    types:
      a: b
      b: a
    procedures: [{number: 1, name: P, arg: a, res: int}]
`, "circular type alias"},
		{"ReservedTypeName", `
programs:
  - name: p
    number: 1
    version: 1
    types:
      int: hyper
    procedures: [{number: 1, name: P, arg: int, res: int}]
`, "invalid type name"},
		{"BadEnumValue", `
programs:
  - name: p
    number: 1
    version: 1
    types:
      e:
        enum: {A: lots}
    procedures: [{number: 1, name: P, arg: e, res: int}]
`, "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compileErr(t, tt.doc)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProcedures(t *testing.T) {
	reg := mustLoad(t, tstProgYAML)

	procs := reg.Procedures()
	require.Len(t, procs, 2)
	assert.Equal(t, ProcedureInfo{
		Program: "tst_prog_1", Number: 0x20000001, Version: 1,
		ProcNo: 1, Name: "FOO", Arg: "foo_t", Res: "int",
	}, procs[0])
	assert.Equal(t, uint32(2), procs[1].ProcNo)
}

func TestTypeExprYAMLRoundTrip(t *testing.T) {
	f, err := Parse([]byte(`
programs:
  - name: p
    number: 1
    version: 1
    types:
      e:
        enum: {B: 2, A: 1}
    procedures: [{number: 1, name: P, arg: e, res: int}]
`))
	require.NoError(t, err)

	out, err := yaml.Marshal(f)
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, []EnumDef{{"B", 2}, {"A", 1}}, again.Programs[0].Types["e"].Enum)
}

func TestJSONSchema(t *testing.T) {
	r := &jsonschema.Reflector{}
	s := r.Reflect(&File{})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TypeExpr")
	assert.Contains(t, string(data), "oneOf")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tst.yaml"), tstProgYAML)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a schema")

	store, err := NewFileStore([]string{dir})
	require.NoError(t, err)
	before := store.Registry()
	require.Equal(t, 1, before.Len())

	t.Run("ReloadKeepsPreviousOnError", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "broken.yaml"), "programs: [")
		assert.Error(t, store.Reload())
		assert.Same(t, before, store.Registry())
		require.NoError(t, os.Remove(filepath.Join(dir, "broken.yaml")))
	})

	t.Run("ReloadSwaps", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "more.yml"), `
programs:
  - name: other
    number: 7
    version: 1
    procedures: [{number: 1, name: P, arg: int, res: int}]
`)
		require.NoError(t, store.Reload())
		assert.NotSame(t, before, store.Registry())
		assert.Equal(t, 2, store.Registry().Len())
	})

	t.Run("StaticStoreCannotReload", func(t *testing.T) {
		s := NewStore(before)
		assert.Error(t, s.Reload())
	})

	t.Run("ExtraSourcesCompiledWithFiles", func(t *testing.T) {
		f, err := Parse([]byte(`
programs:
  - name: builtin
    number: 9
    version: 1
    procedures: [{number: 1, name: P, arg: int, res: int}]
`))
		require.NoError(t, err)

		s, err := NewFileStore([]string{filepath.Join(dir, "tst.yaml")}, Source{Name: "builtin", File: f})
		require.NoError(t, err)
		assert.Equal(t, 2, s.Registry().Len())
	})
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tst.yaml")
	writeFile(t, path, tstProgYAML)

	store, err := NewFileStore([]string{path})
	require.NoError(t, err)

	w, err := NewWatcher(store)
	require.NoError(t, err)
	w.SetDelay(20 * time.Millisecond)
	results := w.Results()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Invalid content is reported and the registry is kept.
	before := store.Registry()
	writeFile(t, path, "programs: [")
	select {
	case err := <-results:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after invalid write")
	}
	assert.Same(t, before, store.Registry())

	// Fixing the file swaps in a new registry.
	writeFile(t, path, tstProgYAML+`
  - name: second
    number: 3
    version: 1
    procedures: [{number: 1, name: P, arg: int, res: int}]
`)
	deadline := time.After(5 * time.Second)
	for store.Registry().Len() != 2 {
		select {
		case <-results:
		case <-deadline:
			t.Fatal("registry not reloaded")
		}
	}
}
