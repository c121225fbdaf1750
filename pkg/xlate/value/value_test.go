package value

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func barArg() Value {
	return MapOf(
		F("xx", Int(1)),
		F("a", MapOf(F("x", Int(40)), F("y", String("foobarbar")))),
	)
}

func TestAccessors(t *testing.T) {
	v := barArg()
	assert.Equal(t, KindMap, v.Kind())
	assert.Equal(t, 2, v.Len())

	xx, ok := v.Lookup("xx")
	require.True(t, ok)
	n, ok := xx.AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	_, ok = v.Lookup("zz")
	assert.False(t, ok)

	a, _ := v.Lookup("a")
	y, _ := a.Lookup("y")
	s, ok := y.AsString()
	assert.True(t, ok)
	assert.Equal(t, "foobarbar", s)

	_, ok = y.AsInt()
	assert.False(t, ok)

	assert.True(t, Nil().IsNil())
	assert.True(t, Value{}.IsNil())
	assert.Nil(t, Int(1).Items())
	assert.Nil(t, Int(1).Map())
}

func TestFieldsKeepCallerOrder(t *testing.T) {
	v := MapOf(F("y", String("b")), F("x", Int(1)))

	fields := v.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "y", fields[0].Name)
	assert.Equal(t, "x", fields[1].Name)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(barArg(), barArg()))
	assert.True(t, Equal(
		MapOf(F("x", Int(1)), F("y", Int(2))),
		MapOf(F("y", Int(2)), F("x", Int(1))),
	))
	assert.False(t, Equal(Int(1), String("1")))
	assert.False(t, Equal(List(Int(1)), List(Int(1), Int(2))))
	assert.False(t, Equal(MapOf(F("x", Int(1))), MapOf(F("z", Int(1)))))
	assert.True(t, Equal(Bytes([]byte{1}), Bytes([]byte{1})))
	assert.True(t, Equal(Bool(true), Bool(true)))
	assert.False(t, Equal(Bool(true), Int(1)))
}

func TestString(t *testing.T) {
	assert.Equal(t, `{xx: 1, a: {x: 40, y: "foobarbar"}}`, barArg().String())
	assert.Equal(t, `[1, true, nil, 0x0102]`, List(Int(1), Bool(true), Nil(), Bytes([]byte{1, 2})).String())
	assert.Equal(t, "[]", List().String())
}

func TestJSON(t *testing.T) {
	t.Run("MarshalKeepsOrder", func(t *testing.T) {
		data, err := json.Marshal(barArg())
		require.NoError(t, err)
		assert.JSONEq(t, `{"xx":1,"a":{"x":40,"y":"foobarbar"}}`, string(data))
		assert.Less(t, strings.Index(string(data), `"xx"`), strings.Index(string(data), `"a"`))
	})

	t.Run("ParsePreservesOrder", func(t *testing.T) {
		v, err := ParseJSON([]byte(`{"y":"footimetime","x":40}`))
		require.NoError(t, err)

		fields := v.Fields()
		require.Len(t, fields, 2)
		assert.Equal(t, "y", fields[0].Name)
		assert.Equal(t, "x", fields[1].Name)
	})

	t.Run("ParseScalars", func(t *testing.T) {
		v, err := ParseJSON([]byte(`[1, "s", true, null, {"k": []}]`))
		require.NoError(t, err)
		assert.True(t, Equal(List(Int(1), String("s"), Bool(true), Nil(), MapOf(F("k", List()))), v))
	})

	t.Run("RejectsNonIntegralNumbers", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"x": 1.5}`))
		assert.ErrorContains(t, err, "not an int64")
	})

	t.Run("RejectsDuplicateKeys", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"x": 1, "x": 2}`))
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("RejectsTrailingData", func(t *testing.T) {
		_, err := ParseJSON([]byte(`1 2`))
		assert.Error(t, err)
	})

	t.Run("UnmarshalIntoStruct", func(t *testing.T) {
		var holder struct {
			Arg Value `json:"arg"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"arg":{"x":40}}`), &holder))
		assert.True(t, Equal(MapOf(F("x", Int(40))), holder.Arg))
	})
}

func TestYAML(t *testing.T) {
	v := MapOf(
		F("y", String("FOOBARBAR")),
		F("x", Int(41)),
		F("ok", Bool(true)),
		F("none", Nil()),
		F("items", List(Int(1), String("2"))),
	)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "y: FOOBARBAR\nx: 41\nok: true\nnone: null\nitems:\n    - 1\n    - \"2\"\n", string(out))
}
