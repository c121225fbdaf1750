package output

import (
	"encoding/base64"
	"strconv"

	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// ValueResult wraps a translated value so tables show one leaf per row,
// addressed by its field path (a.y, items[2]). JSON and YAML render the
// tree itself.
type ValueResult struct {
	value.Value
}

// Headers implements TableRenderer.
func (r ValueResult) Headers() []string {
	return []string{"Path", "Type", "Value"}
}

// Rows implements TableRenderer.
func (r ValueResult) Rows() [][]string {
	var rows [][]string
	flatten(r.Value, "", &rows)
	return rows
}

func flatten(v value.Value, path string, rows *[][]string) {
	switch v.Kind() {
	case value.KindMap:
		fields := v.Fields()
		if len(fields) == 0 {
			*rows = append(*rows, []string{display(path), "map", "{}"})
		}
		for _, f := range fields {
			child := f.Name
			if path != "" {
				child = path + "." + f.Name
			}
			flatten(f.Value, child, rows)
		}
	case value.KindList:
		items := v.Items()
		if len(items) == 0 {
			*rows = append(*rows, []string{display(path), "list", "[]"})
		}
		for i, item := range items {
			flatten(item, path+"["+strconv.Itoa(i)+"]", rows)
		}
	default:
		*rows = append(*rows, []string{display(path), v.Kind().String(), scalar(v)})
	}
}

func display(path string) string {
	if path == "" {
		return "."
	}
	return path
}

func scalar(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindBytes:
		b, _ := v.AsBytes()
		return base64.StdEncoding.EncodeToString(b)
	default:
		return v.String()
	}
}

// ProcedureList renders registered procedures.
type ProcedureList []schema.ProcedureInfo

// Headers implements TableRenderer.
func (l ProcedureList) Headers() []string {
	return []string{"Program", "Number", "Version", "Procno", "Name", "Arg", "Res"}
}

// Rows implements TableRenderer.
func (l ProcedureList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{
			p.Program,
			"0x" + strconv.FormatUint(uint64(p.Number), 16),
			strconv.FormatUint(uint64(p.Version), 10),
			strconv.FormatUint(uint64(p.ProcNo), 10),
			p.Name,
			p.Arg,
			p.Res,
		})
	}
	return rows
}
