package oncrpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/xdrproxy/internal/protocol/xdr"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// replyPrefix is the part of a REPLY shared by accepted and denied replies.
type replyPrefix struct {
	XID       uint32
	MsgType   uint32
	ReplyStat uint32
}

// acceptedReply is an MSG_ACCEPTED reply header up to accept_stat.
type acceptedReply struct {
	XID        uint32
	MsgType    uint32
	ReplyStat  uint32
	Verf       OpaqueAuth
	AcceptStat uint32
}

// mismatchInfo carries the supported version range of PROG_MISMATCH and
// RPC_MISMATCH replies.
type mismatchInfo struct {
	Low  uint32
	High uint32
}

// ParseReply validates an RPC REPLY for the call identified by xid and
// returns the result body following the header.
//
// Malformed headers and xid mismatches are DecodeErrors. Any accepted reply
// other than SUCCESS, and every denied reply, is a RemoteError.
func ParseReply(data []byte, xid uint32) ([]byte, error) {
	r := bytes.NewReader(data)

	var prefix replyPrefix
	if _, err := xdr2.Unmarshal(r, &prefix); err != nil {
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("reply header: %w", err))
	}
	if prefix.MsgType != RPCReply {
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("expected reply message, got type %d", prefix.MsgType))
	}
	if prefix.XID != xid {
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("xid mismatch: sent %#x, received %#x", xid, prefix.XID))
	}

	switch prefix.ReplyStat {
	case RPCMsgAccepted:
		return parseAccepted(r, data)
	case RPCMsgDenied:
		return nil, parseDenied(r)
	default:
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("unknown reply_stat %d", prefix.ReplyStat))
	}
}

func parseAccepted(r *bytes.Reader, data []byte) ([]byte, error) {
	if _, err := readOpaqueAuth(r); err != nil {
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("reply verifier: %w", err))
	}
	stat, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("accept_stat: %w", err))
	}

	switch stat {
	case RPCSuccess:
		return data[len(data)-r.Len():], nil
	case RPCProgMismatch:
		var info mismatchInfo
		if _, err := xdr2.Unmarshal(r, &info); err != nil {
			return nil, xlateerrors.NewDecodeError("", fmt.Errorf("mismatch info: %w", err))
		}
		return nil, xlateerrors.NewRemoteError("PROG_MISMATCH: target supports versions %d-%d", info.Low, info.High)
	case RPCProgUnavail, RPCProcUnavail, RPCGarbageArgs, RPCSystemErr:
		return nil, xlateerrors.NewRemoteError("call rejected: %s", acceptStatName(stat))
	default:
		return nil, xlateerrors.NewDecodeError("", fmt.Errorf("unknown accept_stat %d", stat))
	}
}

func parseDenied(r *bytes.Reader) error {
	stat, err := xdr.DecodeUint32(r)
	if err != nil {
		return xlateerrors.NewDecodeError("", fmt.Errorf("reject_stat: %w", err))
	}

	switch stat {
	case RPCMismatch:
		var info mismatchInfo
		if _, err := xdr2.Unmarshal(r, &info); err != nil {
			return xlateerrors.NewDecodeError("", fmt.Errorf("mismatch info: %w", err))
		}
		return xlateerrors.NewRemoteError("MSG_DENIED: RPC_MISMATCH, target supports RPC versions %d-%d", info.Low, info.High)
	case RPCAuthError:
		authStat, err := xdr.DecodeUint32(r)
		if err != nil {
			return xlateerrors.NewDecodeError("", fmt.Errorf("auth_stat: %w", err))
		}
		return xlateerrors.NewRemoteError("MSG_DENIED: AUTH_ERROR (auth_stat %d)", authStat)
	default:
		return xlateerrors.NewDecodeError("", fmt.Errorf("unknown reject_stat %d", stat))
	}
}

// ============================================================================
// Reply construction helpers (without record marking -- transport adds it)
// ============================================================================

// MakeSuccessReply builds an MSG_ACCEPTED/SUCCESS reply carrying data.
func MakeSuccessReply(xid uint32, data []byte) []byte {
	buf := acceptedHeader(xid, RPCSuccess)
	buf.Write(data)
	return buf.Bytes()
}

// MakeErrorReply builds an MSG_ACCEPTED reply with a non-success accept_stat.
func MakeErrorReply(xid uint32, acceptStat uint32) []byte {
	return acceptedHeader(xid, acceptStat).Bytes()
}

// MakeProgMismatchReply builds a PROG_MISMATCH reply with the supported
// version range.
func MakeProgMismatchReply(xid uint32, low, high uint32) []byte {
	buf := acceptedHeader(xid, RPCProgMismatch)
	_, _ = xdr2.Marshal(buf, mismatchInfo{Low: low, High: high})
	return buf.Bytes()
}

// MakeRPCMismatchReply builds an MSG_DENIED/RPC_MISMATCH reply.
func MakeRPCMismatchReply(xid uint32) []byte {
	var buf bytes.Buffer
	_, _ = xdr2.Marshal(&buf, replyPrefix{XID: xid, MsgType: RPCReply, ReplyStat: RPCMsgDenied})
	xdr.WriteUint32(&buf, RPCMismatch)
	_, _ = xdr2.Marshal(&buf, mismatchInfo{Low: RPCVersion, High: RPCVersion})
	return buf.Bytes()
}

func acceptedHeader(xid, acceptStat uint32) *bytes.Buffer {
	var buf bytes.Buffer
	_, _ = xdr2.Marshal(&buf, acceptedReply{
		XID:        xid,
		MsgType:    RPCReply,
		ReplyStat:  RPCMsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNull, Body: []byte{}},
		AcceptStat: acceptStat,
	})
	return &buf
}
