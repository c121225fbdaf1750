package proxy

import (
	"math"
	"net"
	"strconv"
	"strings"

	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// Request keys, as sent by xdr.xlate callers.
const (
	KeyHostname = "hostname"
	KeyPort     = "port"
	KeyProgram  = "program"
	KeyProcNo   = "procno"
	KeyArg      = "arg"
)

var requestKeys = []string{KeyHostname, KeyPort, KeyProgram, KeyProcNo, KeyArg}

// Request is one translation request.
type Request struct {
	Hostname string
	Port     int
	Program  string
	ProcNo   uint32
	Arg      value.Value
}

// Target returns the host:port the call is forwarded to.
func (r *Request) Target() string {
	return net.JoinHostPort(r.Hostname, strconv.Itoa(r.Port))
}

// Value renders the request back into the map form ParseRequest accepts.
func (r *Request) Value() value.Value {
	return value.MapOf(
		value.F(KeyHostname, value.String(r.Hostname)),
		value.F(KeyPort, value.Int(int64(r.Port))),
		value.F(KeyProgram, value.String(r.Program)),
		value.F(KeyProcNo, value.Int(int64(r.ProcNo))),
		value.F(KeyArg, r.Arg),
	)
}

// ParseRequest validates the envelope of an xdr.xlate request. The arg tree
// itself is checked later against the procedure schema.
//
// Missing or unknown keys, wrong types and an out-of-range port are
// InvalidArgument.
func ParseRequest(v value.Value) (*Request, error) {
	if v.Kind() != value.KindMap {
		return nil, xlateerrors.NewInvalidArgumentError("request must be a struct, got %s", v.Kind())
	}

	for _, f := range v.Fields() {
		if !isRequestKey(f.Name) {
			return nil, xlateerrors.NewInvalidArgumentError("unknown request field %q", f.Name)
		}
	}
	for _, k := range requestKeys {
		if _, ok := v.Lookup(k); !ok {
			return nil, xlateerrors.NewInvalidArgumentError("missing request field %q", k)
		}
	}

	req := &Request{}
	var err error

	if req.Hostname, err = stringField(v, KeyHostname); err != nil {
		return nil, err
	}
	if req.Program, err = stringField(v, KeyProgram); err != nil {
		return nil, err
	}

	port, err := intField(v, KeyPort)
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, xlateerrors.NewInvalidArgumentError("port %d out of range 1-65535", port)
	}
	req.Port = int(port)

	procno, err := intField(v, KeyProcNo)
	if err != nil {
		return nil, err
	}
	if procno < 0 || procno > math.MaxUint32 {
		return nil, xlateerrors.NewInvalidArgumentError("procno %d out of range", procno)
	}
	req.ProcNo = uint32(procno)

	req.Arg, _ = v.Lookup(KeyArg)
	return req, nil
}

func isRequestKey(k string) bool {
	for _, rk := range requestKeys {
		if k == rk {
			return true
		}
	}
	return false
}

func stringField(v value.Value, key string) (string, error) {
	f, _ := v.Lookup(key)
	s, ok := f.AsString()
	if !ok {
		return "", xlateerrors.NewInvalidArgumentError("request field %q must be a string, got %s", key, f.Kind())
	}
	if strings.TrimSpace(s) == "" {
		return "", xlateerrors.NewInvalidArgumentError("request field %q must not be empty", key)
	}
	return s, nil
}

func intField(v value.Value, key string) (int64, error) {
	f, _ := v.Lookup(key)
	n, ok := f.AsInt()
	if !ok {
		return 0, xlateerrors.NewInvalidArgumentError("request field %q must be an integer, got %s", key, f.Kind())
	}
	return n, nil
}
