package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: "yml", want: FormatYAML},
		{input: "  yaml  ", want: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func barReply() value.Value {
	return value.MapOf(
		value.F("x", value.Int(41)),
		value.F("y", value.String("FOOBARBAR")),
		value.F("items", value.List(value.Bool(true), value.Bytes([]byte{0xff}))),
	)
}

func TestValueResultRows(t *testing.T) {
	rows := ValueResult{barReply()}.Rows()
	assert.Equal(t, [][]string{
		{"x", "int", "41"},
		{"y", "string", "FOOBARBAR"},
		{"items[0]", "bool", "true"},
		{"items[1]", "bytes", "/w=="},
	}, rows)

	assert.Equal(t, [][]string{{".", "int", "49"}}, ValueResult{value.Int(49)}.Rows())
	assert.Equal(t, [][]string{{".", "map", "{}"}}, ValueResult{value.MapOf()}.Rows())
}

func TestPrinterFormats(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(ValueResult{barReply()}))
	assert.Contains(t, buf.String(), "PATH")
	assert.Contains(t, buf.String(), "FOOBARBAR")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(ValueResult{barReply()}))
	assert.Contains(t, buf.String(), `"x": 41`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"x"`)), bytes.Index(buf.Bytes(), []byte(`"y"`)), "field order kept")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(ValueResult{barReply()}))
	assert.Contains(t, buf.String(), "y: FOOBARBAR")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"a": 1}))
	assert.Contains(t, buf.String(), `"a": 1`, "non-table data falls back to JSON")
}

func TestProcedureList(t *testing.T) {
	list := ProcedureList{{Program: "tst_prog_1", Number: 0x20000001, Version: 1, ProcNo: 2, Name: "BAR", Arg: "bar_t", Res: "foo_t"}}
	assert.Equal(t, []string{"tst_prog_1", "0x20000001", "1", "2", "BAR", "bar_t", "foo_t"}, list.Rows()[0])

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, list))
	assert.Contains(t, buf.String(), "PROGRAM")
	assert.Contains(t, buf.String(), "bar_t")
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimpleTable(&buf, [][2]string{{"Version", "dev"}, {"Commit", "none"}}))
	assert.Contains(t, buf.String(), "Version")
	assert.Contains(t, buf.String(), "none")
}

func TestPrinterStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	p.Success("ok")
	p.Warning("careful")
	p.Error("bad")
	assert.Equal(t, "ok\ncareful\nbad\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, FormatTable, true).Success("ok")
	assert.Equal(t, "\033[32mok\033[0m\n", buf.String())
}
