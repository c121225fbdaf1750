package codec

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/marmos91/xdrproxy/internal/protocol/xdr"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
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
      color:
        enum: {RED: 0, GREEN: 1, BLUE: 2}
      node:
        struct:
          - {name: v, type: int}
          - {name: next, type: "*node"}
      kitchen_t:
        struct:
          - {name: u, type: unsigned int}
          - {name: h, type: hyper}
          - {name: uh, type: unsigned hyper}
          - {name: ok, type: bool}
          - {name: c, type: color}
          - {name: tag, type: "string<4>"}
          - {name: blob, type: "opaque<8>"}
          - {name: id, type: "opaque[3]"}
          - {name: pair, type: "int[2]"}
          - {name: items, type: "int<3>"}
          - {name: maybe, type: "*foo_t"}
    procedures:
      - {number: 1, name: FOO, arg: foo_t, res: int}
      - {number: 2, name: BAR, arg: bar_t, res: foo_t}
      - {number: 3, name: KITCHEN, arg: kitchen_t, res: kitchen_t}
      - {number: 4, name: LIST, arg: node, res: void}
`

func types(t *testing.T) map[string]*schema.Type {
	t.Helper()
	reg, err := schema.LoadBytes("test.yaml", []byte(testSchema))
	require.NoError(t, err)
	prog, ok := reg.Program("tst_prog_1")
	require.True(t, ok)
	return prog.Types
}

func foo(x int64, y string) value.Value {
	return value.MapOf(value.F("x", value.Int(x)), value.F("y", value.String(y)))
}

func bar() value.Value {
	return value.MapOf(value.F("xx", value.Int(1)), value.F("a", foo(40, "foobarbar")))
}

func kitchen() value.Value {
	return value.MapOf(
		value.F("u", value.Int(4000000000)),
		value.F("h", value.Int(-5)),
		value.F("uh", value.Int(1<<40)),
		value.F("ok", value.Bool(true)),
		value.F("c", value.String("BLUE")),
		value.F("tag", value.String("abcd")),
		value.F("blob", value.Bytes([]byte{1, 2, 3})),
		value.F("id", value.Bytes([]byte{9, 8, 7})),
		value.F("pair", value.List(value.Int(1), value.Int(2))),
		value.F("items", value.List(value.Int(7))),
		value.F("maybe", foo(1, "z")),
	)
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestEncodeBar(t *testing.T) {
	ty := types(t)

	got, err := EncodeToBytes(ty["bar_t"], bar())
	require.NoError(t, err)

	want := mustHex("00000001" + "00000028" + "00000009" + hex.EncodeToString([]byte("foobarbar")) + "000000")
	assert.Equal(t, want, got)
}

func TestEncodeIgnoresCallerFieldOrder(t *testing.T) {
	ty := types(t)

	reordered := value.MapOf(
		value.F("a", value.MapOf(value.F("y", value.String("foobarbar")), value.F("x", value.Int(40)))),
		value.F("xx", value.Int(1)),
	)

	first, err := EncodeToBytes(ty["bar_t"], bar())
	require.NoError(t, err)
	second, err := EncodeToBytes(ty["bar_t"], reordered)
	require.NoError(t, err)
	again, err := EncodeToBytes(ty["bar_t"], bar())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, again)
}

func TestValidate(t *testing.T) {
	ty := types(t)

	tests := []struct {
		name string
		typ  string
		v    value.Value
		path string
	}{
		{"UnknownField", "bar_t", value.MapOf(
			value.F("xx", value.Int(1)), value.F("a", foo(40, "foobarbar")), value.F("zz", value.Int(3)),
		), "zz"},
		{"MissingField", "foo_t", value.MapOf(value.F("x", value.Int(40))), "y"},
		{"NestedWrongType", "bar_t", value.MapOf(
			value.F("xx", value.Int(1)), value.F("a", value.MapOf(value.F("x", value.Int(40)), value.F("y", value.Int(2)))),
		), "a.y"},
		{"NestedUnknown", "bar_t", value.MapOf(
			value.F("xx", value.Int(1)),
			value.F("a", value.MapOf(value.F("x", value.Int(1)), value.F("y", value.String("s")), value.F("q", value.Int(1)))),
		), "a.q"},
		{"NotAMap", "foo_t", value.Int(3), ""},
		{"IntOverflow", "foo_t", foo(1<<31, "s"), "x"},
		{"IntUnderflow", "foo_t", foo(-(1<<31)-1, "s"), "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(ty[tt.typ], tt.v)
			require.Error(t, err)
			assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrSchemaMismatch), "got %v", err)
			assert.Equal(t, tt.path, xlateerrors.PathOf(err))
		})
	}

	t.Run("ValidTrees", func(t *testing.T) {
		assert.NoError(t, Validate(ty["foo_t"], foo(40, "footimetime")))
		assert.NoError(t, Validate(ty["foo_t"], foo(-(1<<31), "")))
		assert.NoError(t, Validate(ty["bar_t"], bar()))
		assert.NoError(t, Validate(ty["kitchen_t"], kitchen()))
		assert.NoError(t, Validate(schema.Void, value.Nil()))
		assert.NoError(t, Validate(schema.Void, value.MapOf()))
	})
}

func TestValidateKitchenPaths(t *testing.T) {
	ty := types(t)
	kt := ty["kitchen_t"]

	with := func(name string, v value.Value) value.Value {
		m := value.NewMap()
		for _, f := range kitchen().Fields() {
			m.Set(f.Name, f.Value)
		}
		m.Set(name, v)
		return value.FromMap(m)
	}

	tests := []struct {
		name  string
		field string
		v     value.Value
		path  string
	}{
		{"UintNegative", "u", value.Int(-1), "u"},
		{"UintTooLarge", "u", value.Int(1 << 32), "u"},
		{"UhyperNegative", "uh", value.Int(-1), "uh"},
		{"BoolFromString", "ok", value.String("yes"), "ok"},
		{"BoolFromTwo", "ok", value.Int(2), "ok"},
		{"EnumUnknownName", "c", value.String("PURPLE"), "c"},
		{"EnumUnknownValue", "c", value.Int(9), "c"},
		{"StringTooLong", "tag", value.String("abcde"), "tag"},
		{"OpaqueTooLong", "blob", value.Bytes(make([]byte, 9)), "blob"},
		{"FixedOpaqueWrongSize", "id", value.Bytes([]byte{1}), "id"},
		{"FixedArrayWrongSize", "pair", value.List(value.Int(1)), "pair"},
		{"VarArrayTooLong", "items", value.List(value.Int(1), value.Int(2), value.Int(3), value.Int(4)), "items"},
		{"ArrayElement", "items", value.List(value.Int(1), value.Int(2), value.String("x")), "items[2]"},
		{"OptionalInner", "maybe", value.MapOf(value.F("x", value.Int(1))), "maybe.y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(kt, with(tt.field, tt.v))
			require.Error(t, err)
			assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrSchemaMismatch), "got %v", err)
			assert.Equal(t, tt.path, xlateerrors.PathOf(err))
		})
	}

	t.Run("AlternateSpellings", func(t *testing.T) {
		v := with("c", value.Int(1))
		v = withValue(v, "ok", value.Int(0))
		v = withValue(v, "blob", value.String("text"))
		v = withValue(v, "maybe", value.Nil())
		assert.NoError(t, Validate(kt, v))
	})
}

func withValue(v value.Value, name string, fv value.Value) value.Value {
	m := value.NewMap()
	for _, f := range v.Fields() {
		m.Set(f.Name, f.Value)
	}
	m.Set(name, fv)
	return value.FromMap(m)
}

func TestEncodeNothingOnMismatch(t *testing.T) {
	ty := types(t)

	var buf bytes.Buffer
	err := Encode(&buf, ty["foo_t"], value.MapOf(value.F("x", value.Int(1))))
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestRoundTrip(t *testing.T) {
	ty := types(t)

	t.Run("Kitchen", func(t *testing.T) {
		data, err := EncodeToBytes(ty["kitchen_t"], kitchen())
		require.NoError(t, err)

		got, err := DecodeAll(data, ty["kitchen_t"])
		require.NoError(t, err)
		assert.True(t, value.Equal(kitchen(), got), "got %s", got)
	})

	t.Run("EnumDecodesToName", func(t *testing.T) {
		data, err := EncodeToBytes(ty["color"], value.Int(1))
		require.NoError(t, err)
		assert.Equal(t, mustHex("00000001"), data)

		got, err := DecodeAll(data, ty["color"])
		require.NoError(t, err)
		assert.True(t, value.Equal(value.String("GREEN"), got))
	})

	t.Run("RecursiveList", func(t *testing.T) {
		list := value.MapOf(
			value.F("v", value.Int(1)),
			value.F("next", value.MapOf(value.F("v", value.Int(2)), value.F("next", value.Nil()))),
		)
		data, err := EncodeToBytes(ty["node"], list)
		require.NoError(t, err)
		assert.Equal(t, mustHex("00000001"+"00000001"+"00000002"+"00000000"), data)

		got, err := DecodeAll(data, ty["node"])
		require.NoError(t, err)
		assert.True(t, value.Equal(list, got))
	})

	t.Run("DecodedStructKeepsSchemaOrder", func(t *testing.T) {
		got, err := DecodeAll(mustHex("00000031"+"00000003"+"61626300"), ty["foo_t"])
		require.NoError(t, err)
		fields := got.Fields()
		require.Len(t, fields, 2)
		assert.Equal(t, "x", fields[0].Name)
		assert.Equal(t, "y", fields[1].Name)
		assert.Equal(t, `{x: 49, y: "abc"}`, got.String())
	})
}

func TestDecodeErrors(t *testing.T) {
	ty := types(t)

	tests := []struct {
		name string
		typ  *schema.Type
		data string
		path string
	}{
		{"TruncatedInt", schema.Int, "0000", ""},
		{"TruncatedStructField", ty["foo_t"], "00000031" + "00000009" + "6162", "y"},
		{"NestedTruncation", ty["bar_t"], "00000001" + "00000028", "a.y"},
		{"BadBool", schema.Bool, "00000002", ""},
		{"BadOptionalDiscriminant", ty["node"], "00000001" + "00000005", "next"},
		{"UnknownEnum", ty["color"], "00000007", ""},
		{"TrailingBytes", schema.Int, "00000001" + "00000002", ""},
		{"UhyperOverflow", schema.Uhyper, "8000000000000000", ""},
		{"HugeStringLength", ty["foo_t"], "00000001" + "7fffffff", "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAll(mustHex(tt.data), tt.typ)
			require.Error(t, err)
			assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrDecode), "got %v", err)
			assert.Equal(t, tt.path, xlateerrors.PathOf(err))
		})
	}

	t.Run("VarArrayOverMax", func(t *testing.T) {
		arr := ty["kitchen_t"].Fields[9].Type
		require.Equal(t, schema.KindVarArray, arr.Kind)

		_, err := DecodeAll(mustHex("00000004"+"00000001"+"00000001"+"00000001"+"00000001"), arr)
		assert.True(t, xlateerrors.IsCode(err, xlateerrors.ErrDecode))
	})

	t.Run("ShortReadWrapsEOF", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(nil), schema.Int)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("BadBoolWrapsSentinel", func(t *testing.T) {
		_, err := DecodeAll(mustHex("00000002"), schema.Bool)
		assert.ErrorIs(t, err, xdr.ErrBadBool)
	})
}
