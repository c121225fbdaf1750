// Package bytesize parses human-readable sizes such as "1Mi" or "64KB" used
// for request and reply limits in the configuration.
package bytesize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes that unmarshals from strings like "1Mi",
// "512KiB", "100MB" or a plain number.
//
// Binary units (Ki, Mi, Gi, Ti, with optional B) multiply by 1024; decimal
// units (K, M, G, T, with optional B) multiply by 1000.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var pattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var units = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"t":   TB,
	"tb":  TB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
	"ti":  TiB,
	"tib": TiB,
}

// canonical lists the units String prefers, largest first.
var canonical = []struct {
	suffix string
	size   ByteSize
}{
	{"Ti", TiB},
	{"Gi", GiB},
	{"Mi", MiB},
	{"Ki", KiB},
}

// Parse parses a human-readable byte size.
func Parse(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	mult, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", m[2])
	}

	if strings.Contains(m[1], ".") {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q", s)
		}
		total := f * float64(mult)
		if total >= math.MaxUint64 {
			return 0, fmt.Errorf("byte size %q overflows", s)
		}
		return ByteSize(total), nil
	}

	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	if n != 0 && uint64(mult) > math.MaxUint64/n {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return ByteSize(n) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so mapstructure and
// yaml.v3 decode sizes directly.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler using String.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String renders b exactly, in the largest binary unit that divides it
// (1048576 -> "1Mi"), or as plain bytes.
func (b ByteSize) String() string {
	for _, u := range canonical {
		if b >= u.size && b%u.size == 0 {
			return strconv.FormatUint(uint64(b/u.size), 10) + u.suffix
		}
	}
	return strconv.FormatUint(uint64(b), 10)
}

// Uint64 returns the size as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int64 returns the size as an int64, saturating at math.MaxInt64.
func (b ByteSize) Int64() int64 {
	if uint64(b) > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(b)
}

// Uint32 returns the size as a uint32 for record-size limits, or an error if
// it does not fit.
func (b ByteSize) Uint32() (uint32, error) {
	if uint64(b) > math.MaxUint32 {
		return 0, fmt.Errorf("byte size %s exceeds %d", b, uint64(math.MaxUint32))
	}
	return uint32(b), nil
}
