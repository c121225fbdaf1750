package codec

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/marmos91/xdrproxy/internal/protocol/xdr"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// Decode reads one value of type t from r.
//
// Short reads, invalid bool or optional discriminants, unknown enum values
// and lengths over the declared maximum are DecodeErrors naming the path.
// Enum members decode to their name.
func Decode(r io.Reader, t *schema.Type) (value.Value, error) {
	d := &decoder{r: r}
	if br, ok := r.(*bytes.Reader); ok {
		d.remaining = br.Len
	}
	return d.decode(t, "")
}

// DecodeAll decodes data as exactly one value of type t. Trailing bytes
// are a DecodeError.
func DecodeAll(data []byte, t *schema.Type) (value.Value, error) {
	r := bytes.NewReader(data)
	v, err := Decode(r, t)
	if err != nil {
		return value.Value{}, err
	}
	if r.Len() > 0 {
		return value.Value{}, xlateerrors.NewDecodeError("", fmt.Errorf("%d trailing bytes after %s", r.Len(), t))
	}
	return v, nil
}

type decoder struct {
	r io.Reader
	// remaining reports unread bytes when known, to bound allocations.
	remaining func() int
}

func (d *decoder) decode(t *schema.Type, path string) (value.Value, error) {
	switch t.Kind {
	case schema.KindVoid:
		return value.Nil(), nil

	case schema.KindInt:
		n, err := xdr.DecodeInt32(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.Int(int64(n)), nil

	case schema.KindUint:
		n, err := xdr.DecodeUint32(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.Int(int64(n)), nil

	case schema.KindHyper:
		n, err := xdr.DecodeInt64(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.Int(n), nil

	case schema.KindUhyper:
		n, err := xdr.DecodeUint64(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		if n > math.MaxInt64 {
			return value.Value{}, fail(path, fmt.Errorf("unsigned hyper %d does not fit a signed 64-bit integer", n))
		}
		return value.Int(int64(n)), nil

	case schema.KindBool:
		b, err := xdr.DecodeBool(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.Bool(b), nil

	case schema.KindEnum:
		n, err := xdr.DecodeInt32(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		name, ok := t.EnumName(n)
		if !ok {
			return value.Value{}, fail(path, fmt.Errorf("%d is not a value of %s", n, t))
		}
		return value.String(name), nil

	case schema.KindString:
		s, err := xdr.DecodeString(d.r, d.limit(t.Max))
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.String(s), nil

	case schema.KindOpaque:
		b, err := xdr.DecodeOpaque(d.r, d.limit(t.Max))
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.Bytes(b), nil

	case schema.KindFixedOpaque:
		if d.limit(t.Size) < t.Size {
			return value.Value{}, fail(path, io.ErrUnexpectedEOF)
		}
		b, err := xdr.DecodeFixedOpaque(d.r, t.Size)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		return value.Bytes(b), nil

	case schema.KindStruct:
		m := value.NewMap()
		for _, f := range t.Fields {
			fv, err := d.decode(f.Type, join(path, f.Name))
			if err != nil {
				return value.Value{}, err
			}
			m.Set(f.Name, fv)
		}
		return value.FromMap(m), nil

	case schema.KindFixedArray:
		return d.items(t.Elem, t.Size, path)

	case schema.KindVarArray:
		n, err := xdr.DecodeUint32(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		if n > t.Max {
			return value.Value{}, fail(path, fmt.Errorf("%d elements exceeds maximum of %d for %s", n, t.Max, t))
		}
		return d.items(t.Elem, n, path)

	case schema.KindOptional:
		present, err := xdr.DecodeBool(d.r)
		if err != nil {
			return value.Value{}, fail(path, err)
		}
		if !present {
			return value.Nil(), nil
		}
		return d.decode(t.Elem, path)
	}

	return value.Value{}, fail(path, fmt.Errorf("unsupported schema kind %s", t.Kind))
}

func (d *decoder) items(elem *schema.Type, n uint32, path string) (value.Value, error) {
	items := make([]value.Value, 0, min(n, 1024))
	for i := uint32(0); i < n; i++ {
		item, err := d.decode(elem, index(path, int(i)))
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, item)
	}
	return value.List(items...), nil
}

// limit caps a declared maximum by the bytes left in the input, so a
// corrupt length cannot force a large allocation.
func (d *decoder) limit(max uint32) uint32 {
	if d.remaining == nil {
		return max
	}
	if left := d.remaining(); left >= 0 && uint64(left) < uint64(max) {
		return uint32(left)
	}
	return max
}

func fail(path string, err error) error {
	return xlateerrors.NewDecodeError(path, err)
}
