package handlers

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/xdrproxy/internal/logger"
	"github.com/marmos91/xdrproxy/internal/telemetry"
	"github.com/marmos91/xdrproxy/pkg/proxy"
	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
	"github.com/marmos91/xdrproxy/pkg/xmlrpc"
)

// XML-RPC method names.
const (
	MethodXlate          = "xdr.xlate"
	MethodListProcedures = "xdr.listProcedures"
	MethodSetDebugLevel  = "system.setDebugLevel"
	MethodGetDebugLevel  = "system.getDebugLevel"
	MethodListMethods    = "system.listMethods"
)

// Translator is the proxy surface exposed over XML-RPC. *proxy.Proxy
// implements it.
type Translator interface {
	Translate(ctx context.Context, req *proxy.Request) (value.Value, error)
	SetDebugLevel(level int64) error
	DebugLevel() int64
	ListProcedures() []schema.ProcedureInfo
}

type method struct {
	params int
	fn     func(ctx context.Context, params []value.Value) (value.Value, error)
}

// XMLRPCHandler decodes XML-RPC calls and dispatches them to the proxy.
// Every outcome, including failures, is answered with HTTP 200 and either a
// result or a fault document.
type XMLRPCHandler struct {
	proxy   Translator
	maxBody int64
	methods map[string]method
}

// NewXMLRPCHandler creates the handler. maxBody caps the request body size.
func NewXMLRPCHandler(p Translator, maxBody int64) *XMLRPCHandler {
	h := &XMLRPCHandler{
		proxy:   p,
		maxBody: maxBody,
	}
	h.methods = map[string]method{
		MethodXlate:          {params: 1, fn: h.xlate},
		MethodListProcedures: {params: 0, fn: h.listProcedures},
		MethodSetDebugLevel:  {params: 1, fn: h.setDebugLevel},
		MethodGetDebugLevel:  {params: 0, fn: h.getDebugLevel},
		MethodListMethods:    {params: 0, fn: h.listMethods},
	}
	return h
}

// Methods returns the registered method names, sorted.
func (h *XMLRPCHandler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeHTTP handles POST requests carrying a <methodCall> document.
func (h *XMLRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := telemetry.ExtractHTTP(r.Context(), r.Header)
	ip := clientIP(r)

	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	call, err := xmlrpc.DecodeCall(body)
	if err != nil {
		logger.Debug("Malformed XML-RPC request", logger.KeyClientIP, ip, logger.Err(err))
		h.writeFault(w, xmlrpc.FaultFromError(err))
		return
	}

	lc := logger.NewLogContext(ip).WithRequest(uuid.NewString(), call.Method)
	ctx, span := telemetry.StartRequestSpan(ctx, call.Method,
		telemetry.ClientIP(ip),
		telemetry.RequestID(lc.RequestID))
	defer span.End()
	if tid := telemetry.TraceID(ctx); tid != "" {
		lc = lc.WithTrace(tid, telemetry.SpanID(ctx))
	}
	ctx = logger.WithContext(ctx, lc)

	logger.DebugCtx(ctx, "XML-RPC call", "params", len(call.Params))

	result, err := h.dispatch(ctx, call)
	if err != nil {
		fault := xmlrpc.FaultFromError(err)
		span.SetAttributes(telemetry.FaultCode(fault.Code))
		span.SetStatus(codes.Error, fault.Message)
		if fault.Code == xmlrpc.FaultInternalError {
			logger.ErrorCtx(ctx, "XML-RPC call failed", logger.Err(err))
		} else {
			logger.DebugCtx(ctx, "XML-RPC call faulted", "fault_code", fault.Code, logger.Err(err))
		}
		h.writeFault(w, fault)
		return
	}

	var buf bytes.Buffer
	if err := xmlrpc.EncodeResponse(&buf, result); err != nil {
		logger.ErrorCtx(ctx, "Failed to encode XML-RPC response", logger.Err(err))
		h.writeFault(w, xmlrpc.NewFault(xmlrpc.FaultInternalError, "failed to encode response"))
		return
	}
	writeXML(w, buf.Bytes())
}

func (h *XMLRPCHandler) dispatch(ctx context.Context, call *xmlrpc.MethodCall) (value.Value, error) {
	m, ok := h.methods[call.Method]
	if !ok {
		return value.Nil(), xmlrpc.NewFault(xmlrpc.FaultMethodNotFound, "unknown method %s", call.Method)
	}
	if len(call.Params) != m.params {
		return value.Nil(), xmlrpc.NewFault(xmlrpc.FaultInvalidParams,
			"%s takes %d parameter(s), got %d", call.Method, m.params, len(call.Params))
	}
	return m.fn(ctx, call.Params)
}

func (h *XMLRPCHandler) xlate(ctx context.Context, params []value.Value) (value.Value, error) {
	req, err := proxy.ParseRequest(params[0])
	if err != nil {
		return value.Nil(), err
	}
	return h.proxy.Translate(ctx, req)
}

func (h *XMLRPCHandler) listProcedures(ctx context.Context, params []value.Value) (value.Value, error) {
	procs := h.proxy.ListProcedures()
	items := make([]value.Value, 0, len(procs))
	for _, p := range procs {
		items = append(items, value.MapOf(
			value.F("program", value.String(p.Program)),
			value.F("number", value.Int(int64(p.Number))),
			value.F("version", value.Int(int64(p.Version))),
			value.F("procno", value.Int(int64(p.ProcNo))),
			value.F("name", value.String(p.Name)),
			value.F("arg", value.String(p.Arg)),
			value.F("res", value.String(p.Res)),
		))
	}
	return value.List(items...), nil
}

func (h *XMLRPCHandler) setDebugLevel(ctx context.Context, params []value.Value) (value.Value, error) {
	level, ok := params[0].AsInt()
	if !ok {
		return value.Nil(), xlateerrors.NewInvalidArgumentError("debug level must be an integer, got %s", params[0].Kind())
	}
	if err := h.proxy.SetDebugLevel(level); err != nil {
		return value.Nil(), err
	}
	return value.Bool(true), nil
}

func (h *XMLRPCHandler) getDebugLevel(ctx context.Context, params []value.Value) (value.Value, error) {
	return value.Int(h.proxy.DebugLevel()), nil
}

func (h *XMLRPCHandler) listMethods(ctx context.Context, params []value.Value) (value.Value, error) {
	names := h.Methods()
	items := make([]value.Value, len(names))
	for i, name := range names {
		items[i] = value.String(name)
	}
	return value.List(items...), nil
}

func (h *XMLRPCHandler) writeFault(w http.ResponseWriter, f *xmlrpc.Fault) {
	var buf bytes.Buffer
	if err := xmlrpc.EncodeFault(&buf, f); err != nil {
		http.Error(w, "failed to encode fault", http.StatusInternalServerError)
		return
	}
	writeXML(w, buf.Bytes())
}

func writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", xmlrpc.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// clientIP strips the port from RemoteAddr. After middleware.RealIP the
// address may already be a bare IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
