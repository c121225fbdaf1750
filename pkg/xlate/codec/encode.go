package codec

import (
	"bytes"
	"fmt"

	"github.com/marmos91/xdrproxy/internal/protocol/xdr"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// Encode validates v against t and appends its XDR encoding to buf.
//
// Struct members are written in schema order regardless of the order of
// the caller's map, so identical trees always produce identical bytes.
// Nothing is written if validation fails.
func Encode(buf *bytes.Buffer, t *schema.Type, v value.Value) error {
	if err := Validate(t, v); err != nil {
		return err
	}
	return encode(buf, t, v)
}

// EncodeToBytes is Encode into a fresh buffer.
func EncodeToBytes(t *schema.Type, v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode assumes v has been validated against t.
func encode(buf *bytes.Buffer, t *schema.Type, v value.Value) error {
	switch t.Kind {
	case schema.KindVoid:
		return nil

	case schema.KindInt:
		n, _ := v.AsInt()
		xdr.WriteInt32(buf, int32(n))
	case schema.KindUint:
		n, _ := v.AsInt()
		xdr.WriteUint32(buf, uint32(n))
	case schema.KindHyper:
		n, _ := v.AsInt()
		xdr.WriteInt64(buf, n)
	case schema.KindUhyper:
		n, _ := v.AsInt()
		xdr.WriteUint64(buf, uint64(n))

	case schema.KindBool:
		if b, ok := v.AsBool(); ok {
			xdr.WriteBool(buf, b)
		} else {
			n, _ := v.AsInt()
			xdr.WriteBool(buf, n != 0)
		}

	case schema.KindEnum:
		if name, ok := v.AsString(); ok {
			n, _ := t.EnumValue(name)
			xdr.WriteInt32(buf, n)
		} else {
			n, _ := v.AsInt()
			xdr.WriteInt32(buf, int32(n))
		}

	case schema.KindString:
		s, _ := v.AsString()
		return xdr.WriteString(buf, s)

	case schema.KindOpaque:
		return xdr.WriteOpaque(buf, opaqueBytes(v))

	case schema.KindFixedOpaque:
		return xdr.WriteFixedOpaque(buf, opaqueBytes(v), t.Size)

	case schema.KindStruct:
		for _, f := range t.Fields {
			fv, _ := v.Lookup(f.Name)
			if err := encode(buf, f.Type, fv); err != nil {
				return err
			}
		}

	case schema.KindFixedArray:
		for _, item := range v.Items() {
			if err := encode(buf, t.Elem, item); err != nil {
				return err
			}
		}

	case schema.KindVarArray:
		xdr.WriteUint32(buf, uint32(v.Len()))
		for _, item := range v.Items() {
			if err := encode(buf, t.Elem, item); err != nil {
				return err
			}
		}

	case schema.KindOptional:
		if v.IsNil() {
			xdr.WriteBool(buf, false)
			return nil
		}
		xdr.WriteBool(buf, true)
		return encode(buf, t.Elem, v)

	default:
		return fmt.Errorf("unsupported schema kind %s", t.Kind)
	}
	return nil
}

func opaqueBytes(v value.Value) []byte {
	if b, ok := v.AsBytes(); ok {
		return b
	}
	s, _ := v.AsString()
	return []byte(s)
}
