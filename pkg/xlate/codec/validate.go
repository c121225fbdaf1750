// Package codec translates between value trees and XDR according to a
// schema type: structural validation, encoding in schema order, and
// decoding of replies.
package codec

import (
	"math"
	"strconv"

	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// Validate checks v against t in a single recursive pass and returns a
// SchemaMismatch naming the first offending path (a.y, items[2], zz).
//
// Struct members are matched by exact name; missing and unknown members
// are both mismatches. Integers are range-checked against the declared
// width, and length bounds are enforced.
func Validate(t *schema.Type, v value.Value) error {
	return validate(t, v, "")
}

func validate(t *schema.Type, v value.Value, path string) error {
	switch t.Kind {
	case schema.KindVoid:
		if v.IsNil() || ((v.Kind() == value.KindMap || v.Kind() == value.KindList) && v.Len() == 0) {
			return nil
		}
		return mismatch(path, t, v)

	case schema.KindInt:
		return checkRange(t, v, path, math.MinInt32, math.MaxInt32)
	case schema.KindUint:
		return checkRange(t, v, path, 0, math.MaxUint32)
	case schema.KindHyper:
		return checkRange(t, v, path, math.MinInt64, math.MaxInt64)
	case schema.KindUhyper:
		return checkRange(t, v, path, 0, math.MaxInt64)

	case schema.KindBool:
		if _, ok := v.AsBool(); ok {
			return nil
		}
		if n, ok := v.AsInt(); ok && (n == 0 || n == 1) {
			return nil
		}
		return mismatch(path, t, v)

	case schema.KindEnum:
		if name, ok := v.AsString(); ok {
			if _, found := t.EnumValue(name); found {
				return nil
			}
			return xlateerrors.NewSchemaMismatchError(path, "%q is not a member of %s", name, t)
		}
		if n, ok := v.AsInt(); ok {
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				if _, found := t.EnumName(int32(n)); found {
					return nil
				}
			}
			return xlateerrors.NewSchemaMismatchError(path, "%d is not a value of %s", n, t)
		}
		return mismatch(path, t, v)

	case schema.KindString:
		if _, ok := v.AsString(); !ok {
			return mismatch(path, t, v)
		}
		return checkMax(t, v.Len(), path, "bytes")

	case schema.KindOpaque:
		if !isOpaque(v) {
			return mismatch(path, t, v)
		}
		return checkMax(t, v.Len(), path, "bytes")

	case schema.KindFixedOpaque:
		if !isOpaque(v) {
			return mismatch(path, t, v)
		}
		if uint64(v.Len()) != uint64(t.Size) {
			return xlateerrors.NewSchemaMismatchError(path, "expected exactly %d bytes for %s, got %d", t.Size, t, v.Len())
		}
		return nil

	case schema.KindStruct:
		if v.Kind() != value.KindMap {
			return mismatch(path, t, v)
		}
		for _, f := range t.Fields {
			fv, ok := v.Lookup(f.Name)
			if !ok {
				return xlateerrors.NewSchemaMismatchError(join(path, f.Name), "missing field of type %s", f.Type)
			}
			if err := validate(f.Type, fv, join(path, f.Name)); err != nil {
				return err
			}
		}
		if v.Len() != len(t.Fields) {
			for _, fv := range v.Fields() {
				if !hasField(t, fv.Name) {
					return xlateerrors.NewSchemaMismatchError(join(path, fv.Name), "unknown field in %s", t)
				}
			}
		}
		return nil

	case schema.KindFixedArray:
		if v.Kind() != value.KindList {
			return mismatch(path, t, v)
		}
		if uint64(v.Len()) != uint64(t.Size) {
			return xlateerrors.NewSchemaMismatchError(path, "expected exactly %d elements for %s, got %d", t.Size, t, v.Len())
		}
		return validateItems(t.Elem, v, path)

	case schema.KindVarArray:
		if v.Kind() != value.KindList {
			return mismatch(path, t, v)
		}
		if err := checkMax(t, v.Len(), path, "elements"); err != nil {
			return err
		}
		return validateItems(t.Elem, v, path)

	case schema.KindOptional:
		if v.IsNil() {
			return nil
		}
		return validate(t.Elem, v, path)
	}

	return xlateerrors.NewSchemaMismatchError(path, "unsupported schema kind %s", t.Kind)
}

func validateItems(elem *schema.Type, v value.Value, path string) error {
	for i, item := range v.Items() {
		if err := validate(elem, item, index(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(t *schema.Type, v value.Value, path string, lo, hi int64) error {
	n, ok := v.AsInt()
	if !ok {
		return mismatch(path, t, v)
	}
	if n < lo || n > hi {
		return xlateerrors.NewSchemaMismatchError(path, "%d out of range for %s", n, t)
	}
	return nil
}

func checkMax(t *schema.Type, n int, path, unit string) error {
	if uint64(n) > uint64(t.Max) {
		return xlateerrors.NewSchemaMismatchError(path, "%d %s exceeds maximum of %d for %s", n, unit, t.Max, t)
	}
	return nil
}

func isOpaque(v value.Value) bool {
	return v.Kind() == value.KindBytes || v.Kind() == value.KindString
}

func hasField(t *schema.Type, name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func mismatch(path string, t *schema.Type, v value.Value) error {
	return xlateerrors.NewSchemaMismatchError(path, "expected %s, got %s", t, v.Kind())
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
