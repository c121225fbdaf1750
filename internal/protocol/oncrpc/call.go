package oncrpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/xdrproxy/internal/protocol/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// OpaqueAuth is an RFC 5531 opaque_auth (credential or verifier).
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte
}

// CallHeader is the fixed part of an RPC CALL message.
//
// Wire format per RFC 5531:
//
//	XID, MsgType=0, RPCVersion=2, Program, Version, Procedure, Cred, Verf
type CallHeader struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// callPrefix is the part of the header preceding the credential.
type callPrefix struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
}

// BuildCall builds an RPC CALL message with AUTH_NULL credential and
// verifier followed by the already-encoded procedure arguments.
func BuildCall(xid, prog, vers, proc uint32, args []byte) ([]byte, error) {
	hdr := CallHeader{
		XID:        xid,
		MsgType:    RPCCall,
		RPCVersion: RPCVersion,
		Program:    prog,
		Version:    vers,
		Procedure:  proc,
		Cred:       OpaqueAuth{Flavor: AuthNull, Body: []byte{}},
		Verf:       OpaqueAuth{Flavor: AuthNull, Body: []byte{}},
	}

	var buf bytes.Buffer
	buf.Grow(40 + len(args))
	if _, err := xdr2.Marshal(&buf, hdr); err != nil {
		return nil, fmt.Errorf("marshal call header: %w", err)
	}
	buf.Write(args)

	return buf.Bytes(), nil
}

// ParseCall decodes a CALL message and returns its header and the procedure
// arguments that follow it.
func ParseCall(data []byte) (*CallHeader, []byte, error) {
	r := bytes.NewReader(data)

	var prefix callPrefix
	if _, err := xdr2.Unmarshal(r, &prefix); err != nil {
		return nil, nil, fmt.Errorf("unmarshal call header: %w", err)
	}
	if prefix.MsgType != RPCCall {
		return nil, nil, fmt.Errorf("not a call message: type %d", prefix.MsgType)
	}

	hdr := &CallHeader{
		XID:        prefix.XID,
		MsgType:    prefix.MsgType,
		RPCVersion: prefix.RPCVersion,
		Program:    prefix.Program,
		Version:    prefix.Version,
		Procedure:  prefix.Procedure,
	}

	var err error
	if hdr.Cred, err = readOpaqueAuth(r); err != nil {
		return nil, nil, fmt.Errorf("read credential: %w", err)
	}
	if hdr.Verf, err = readOpaqueAuth(r); err != nil {
		return nil, nil, fmt.Errorf("read verifier: %w", err)
	}

	return hdr, data[len(data)-r.Len():], nil
}

func readOpaqueAuth(r *bytes.Reader) (OpaqueAuth, error) {
	flavor, err := xdr.DecodeUint32(r)
	if err != nil {
		return OpaqueAuth{}, err
	}
	body, err := xdr.DecodeOpaque(r, maxAuthBodySize)
	if err != nil {
		return OpaqueAuth{}, err
	}
	return OpaqueAuth{Flavor: flavor, Body: body}, nil
}
