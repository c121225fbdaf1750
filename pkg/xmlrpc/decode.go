package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// maxDepth bounds struct/array nesting in a request.
const maxDepth = 64

// MethodCall is a decoded <methodCall>.
type MethodCall struct {
	Method string
	Params []value.Value
}

// DecodeCall reads a <methodCall> document.
//
// Malformed documents are returned as a FaultParseError *Fault. Values the
// proxy cannot represent (double, dateTime.iso8601) are InvalidArgument.
func DecodeCall(r io.Reader) (*MethodCall, error) {
	p := newParser(r)

	if err := p.expectStart("methodCall"); err != nil {
		return nil, err
	}
	if err := p.expectStart("methodName"); err != nil {
		return nil, err
	}
	name, err := p.text("methodName")
	if err != nil {
		return nil, err
	}
	call := &MethodCall{Method: strings.TrimSpace(name)}
	if call.Method == "" {
		return nil, parseError("empty methodName")
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case xml.EndElement:
		if t.Name.Local != "methodCall" {
			return nil, parseError("unexpected </%s>", t.Name.Local)
		}
		return call, p.expectEOF()
	case xml.StartElement:
		if t.Name.Local != "params" {
			return nil, parseError("unexpected <%s> in methodCall", t.Name.Local)
		}
	}

	call.Params, err = p.params()
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd("methodCall"); err != nil {
		return nil, err
	}
	return call, p.expectEOF()
}

// DecodeResponse reads a <methodResponse> document. A fault response is
// returned as a *Fault error.
func DecodeResponse(r io.Reader) (value.Value, error) {
	p := newParser(r)

	if err := p.expectStart("methodResponse"); err != nil {
		return value.Nil(), err
	}
	start, err := p.start()
	if err != nil {
		return value.Nil(), err
	}

	switch start.Name.Local {
	case "params":
		params, err := p.params()
		if err != nil {
			return value.Nil(), err
		}
		if len(params) != 1 {
			return value.Nil(), parseError("methodResponse carries %d params, want 1", len(params))
		}
		if err := p.expectEnd("methodResponse"); err != nil {
			return value.Nil(), err
		}
		return params[0], nil

	case "fault":
		if err := p.expectStart("value"); err != nil {
			return value.Nil(), err
		}
		v, err := p.value(0)
		if err != nil {
			return value.Nil(), err
		}
		if err := p.expectEnd("fault"); err != nil {
			return value.Nil(), err
		}
		return value.Nil(), faultFromValue(v)

	default:
		return value.Nil(), parseError("unexpected <%s> in methodResponse", start.Name.Local)
	}
}

func faultFromValue(v value.Value) error {
	codeV, _ := v.Lookup("faultCode")
	msgV, _ := v.Lookup("faultString")
	code, ok := codeV.AsInt()
	if !ok {
		return parseError("fault without integer faultCode")
	}
	msg, _ := msgV.AsString()
	return &Fault{Code: int(code), Message: msg}
}

func parseError(format string, args ...any) *Fault {
	return &Fault{Code: FaultParseError, Message: "parse error: " + fmt.Sprintf(format, args...)}
}

type parser struct {
	dec *xml.Decoder
}

func newParser(r io.Reader) *parser {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "utf-8", "utf8", "us-ascii", "ascii":
			return input, nil
		}
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return &parser{dec: dec}
}

// next returns the next element token, skipping whitespace, comments and
// processing instructions.
func (p *parser) next() (xml.Token, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, parseError("unexpected end of document")
			}
			return nil, parseError("%v", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) != 0 {
				return nil, parseError("unexpected text %q", truncate(string(t)))
			}
		case xml.StartElement, xml.EndElement:
			return tok, nil
		}
	}
}

func (p *parser) start() (xml.StartElement, error) {
	tok, err := p.next()
	if err != nil {
		return xml.StartElement{}, err
	}
	s, ok := tok.(xml.StartElement)
	if !ok {
		return xml.StartElement{}, parseError("unexpected </%s>", tok.(xml.EndElement).Name.Local)
	}
	return s, nil
}

func (p *parser) expectStart(name string) error {
	s, err := p.start()
	if err != nil {
		return err
	}
	if s.Name.Local != name {
		return parseError("expected <%s>, got <%s>", name, s.Name.Local)
	}
	return nil
}

func (p *parser) expectEnd(name string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	e, ok := tok.(xml.EndElement)
	if !ok || e.Name.Local != name {
		return parseError("expected </%s>", name)
	}
	return nil
}

func (p *parser) expectEOF() error {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return parseError("%v", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) != 0 {
				return parseError("trailing data after document")
			}
		case xml.StartElement:
			return parseError("trailing <%s> after document", t.Name.Local)
		}
	}
}

// text reads character data up to </name>.
func (p *parser) text(name string) (string, error) {
	var b strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", parseError("%v", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			return "", parseError("unexpected <%s> inside <%s>", t.Name.Local, name)
		case xml.EndElement:
			if t.Name.Local != name {
				return "", parseError("expected </%s>", name)
			}
			return b.String(), nil
		}
	}
}

// params reads <param><value>...</value></param> entries up to </params>.
func (p *parser) params() ([]value.Value, error) {
	var out []value.Value
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local != "params" {
				return nil, parseError("expected </params>")
			}
			return out, nil
		case xml.StartElement:
			if t.Name.Local != "param" {
				return nil, parseError("unexpected <%s> in params", t.Name.Local)
			}
			if err := p.expectStart("value"); err != nil {
				return nil, err
			}
			v, err := p.value(0)
			if err != nil {
				return nil, err
			}
			if err := p.expectEnd("param"); err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
}

// value reads the body of a <value> element whose start tag has been
// consumed, including its end tag.
func (p *parser) value(depth int) (value.Value, error) {
	if depth > maxDepth {
		return value.Nil(), parseError("values nested deeper than %d", maxDepth)
	}

	var text strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return value.Nil(), parseError("%v", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			// Untyped <value>text</value> is a string.
			return value.String(text.String()), nil
		case xml.StartElement:
			if strings.TrimSpace(text.String()) != "" {
				return value.Nil(), parseError("mixed content in <value>")
			}
			v, err := p.typed(t.Name.Local, depth)
			if err != nil {
				return value.Nil(), err
			}
			if err := p.expectEnd("value"); err != nil {
				return value.Nil(), err
			}
			return v, nil
		}
	}
}

func (p *parser) typed(name string, depth int) (value.Value, error) {
	switch name {
	case "int", "i4", "i8":
		s, err := p.text(name)
		if err != nil {
			return value.Nil(), err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return value.Nil(), parseError("bad <%s> %q", name, truncate(s))
		}
		return value.Int(n), nil

	case "boolean":
		s, err := p.text(name)
		if err != nil {
			return value.Nil(), err
		}
		switch strings.TrimSpace(s) {
		case "1", "true":
			return value.Bool(true), nil
		case "0", "false":
			return value.Bool(false), nil
		}
		return value.Nil(), parseError("bad <boolean> %q", truncate(s))

	case "string":
		s, err := p.text(name)
		if err != nil {
			return value.Nil(), err
		}
		return value.String(s), nil

	case "base64":
		s, err := p.text(name)
		if err != nil {
			return value.Nil(), err
		}
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
		if err != nil {
			return value.Nil(), parseError("bad <base64>: %v", err)
		}
		return value.Bytes(b), nil

	case "nil":
		if err := p.expectEnd("nil"); err != nil {
			return value.Nil(), err
		}
		return value.Nil(), nil

	case "struct":
		return p.structValue(depth)

	case "array":
		return p.arrayValue(depth)

	case "double":
		s, err := p.text(name)
		if err != nil {
			return value.Nil(), err
		}
		return value.Nil(), xlateerrors.NewInvalidArgumentError("non-integral number %s is not supported", strings.TrimSpace(truncate(s)))

	default:
		return value.Nil(), xlateerrors.NewInvalidArgumentError("unsupported XML-RPC type <%s>", name)
	}
}

func (p *parser) structValue(depth int) (value.Value, error) {
	m := value.NewMap()
	for {
		tok, err := p.next()
		if err != nil {
			return value.Nil(), err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local != "struct" {
				return value.Nil(), parseError("expected </struct>")
			}
			return value.FromMap(m), nil
		case xml.StartElement:
			if t.Name.Local != "member" {
				return value.Nil(), parseError("unexpected <%s> in struct", t.Name.Local)
			}
			if err := p.expectStart("name"); err != nil {
				return value.Nil(), err
			}
			name, err := p.text("name")
			if err != nil {
				return value.Nil(), err
			}
			if _, dup := m.Get(name); dup {
				return value.Nil(), xlateerrors.NewInvalidArgumentError("duplicate struct member %q", name)
			}
			if err := p.expectStart("value"); err != nil {
				return value.Nil(), err
			}
			v, err := p.value(depth + 1)
			if err != nil {
				return value.Nil(), err
			}
			if err := p.expectEnd("member"); err != nil {
				return value.Nil(), err
			}
			m.Set(name, v)
		}
	}
}

func (p *parser) arrayValue(depth int) (value.Value, error) {
	if err := p.expectStart("data"); err != nil {
		return value.Nil(), err
	}
	items := []value.Value{}
	for {
		tok, err := p.next()
		if err != nil {
			return value.Nil(), err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local != "data" {
				return value.Nil(), parseError("expected </data>")
			}
			if err := p.expectEnd("array"); err != nil {
				return value.Nil(), err
			}
			return value.List(items...), nil
		case xml.StartElement:
			if t.Name.Local != "value" {
				return value.Nil(), parseError("unexpected <%s> in array", t.Name.Local)
			}
			v, err := p.value(depth + 1)
			if err != nil {
				return value.Nil(), err
			}
			items = append(items, v)
		}
	}
}

func truncate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
