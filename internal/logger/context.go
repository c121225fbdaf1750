package logger

import "context"

type ctxKey struct{}

// LogContext carries the fields of one XML-RPC request and its outbound
// ONC-RPC call. The With* methods return modified copies, so a LogContext
// stored in a context is never mutated.
type LogContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	Method    string // XML-RPC method
	ClientIP  string // without port
	Target    string // host:port of the ONC-RPC server
	Program   string
	ProcNo    uint32
}

// WithContext stores lc in ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the LogContext of ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(ctxKey{}).(*LogContext)
	return lc
}

func NewLogContext(clientIP string) *LogContext {
	return &LogContext{ClientIP: clientIP}
}

// Clone returns a shallow copy. Cloning nil yields nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

func (lc *LogContext) modify(fn func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		fn(c)
	}
	return c
}

func (lc *LogContext) WithRequest(requestID, method string) *LogContext {
	return lc.modify(func(c *LogContext) { c.RequestID, c.Method = requestID, method })
}

func (lc *LogContext) WithCall(target, program string, procno uint32) *LogContext {
	return lc.modify(func(c *LogContext) { c.Target, c.Program, c.ProcNo = target, program, procno })
}

func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.modify(func(c *LogContext) { c.TraceID, c.SpanID = traceID, spanID })
}
