package xmlrpc

import (
	"bufio"
	"encoding/base64"
	"encoding/xml"
	"io"
	"math"
	"strconv"

	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// EncodeCall writes a <methodCall> document.
func EncodeCall(w io.Writer, method string, params ...value.Value) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xmlHeader)
	bw.WriteString("<methodCall><methodName>")
	escape(bw, method)
	bw.WriteString("</methodName><params>")
	for _, p := range params {
		bw.WriteString("<param>")
		writeValue(bw, p)
		bw.WriteString("</param>")
	}
	bw.WriteString("</params></methodCall>\n")
	return bw.Flush()
}

// EncodeResponse writes a successful <methodResponse> carrying v.
func EncodeResponse(w io.Writer, v value.Value) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xmlHeader)
	bw.WriteString("<methodResponse><params><param>")
	writeValue(bw, v)
	bw.WriteString("</param></params></methodResponse>\n")
	return bw.Flush()
}

// EncodeFault writes a fault <methodResponse>.
func EncodeFault(w io.Writer, f *Fault) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xmlHeader)
	bw.WriteString("<methodResponse><fault>")
	writeValue(bw, value.MapOf(
		value.F("faultCode", value.Int(int64(f.Code))),
		value.F("faultString", value.String(f.Message)),
	))
	bw.WriteString("</fault></methodResponse>\n")
	return bw.Flush()
}

// writeValue renders v. Integers outside the int32 range use <i8>.
func writeValue(bw *bufio.Writer, v value.Value) {
	bw.WriteString("<value>")
	switch v.Kind() {
	case value.KindNil:
		bw.WriteString("<nil/>")
	case value.KindInt:
		n, _ := v.AsInt()
		tag := "int"
		if n < math.MinInt32 || n > math.MaxInt32 {
			tag = "i8"
		}
		bw.WriteString("<" + tag + ">")
		bw.WriteString(strconv.FormatInt(n, 10))
		bw.WriteString("</" + tag + ">")
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			bw.WriteString("<boolean>1</boolean>")
		} else {
			bw.WriteString("<boolean>0</boolean>")
		}
	case value.KindString:
		s, _ := v.AsString()
		bw.WriteString("<string>")
		escape(bw, s)
		bw.WriteString("</string>")
	case value.KindBytes:
		b, _ := v.AsBytes()
		bw.WriteString("<base64>")
		bw.WriteString(base64.StdEncoding.EncodeToString(b))
		bw.WriteString("</base64>")
	case value.KindMap:
		bw.WriteString("<struct>")
		for _, f := range v.Fields() {
			bw.WriteString("<member><name>")
			escape(bw, f.Name)
			bw.WriteString("</name>")
			writeValue(bw, f.Value)
			bw.WriteString("</member>")
		}
		bw.WriteString("</struct>")
	case value.KindList:
		bw.WriteString("<array><data>")
		for _, item := range v.Items() {
			writeValue(bw, item)
		}
		bw.WriteString("</data></array>")
	}
	bw.WriteString("</value>")
}

func escape(bw *bufio.Writer, s string) {
	// EscapeText only fails when the writer does; bufio reports that on Flush.
	_ = xml.EscapeText(bw, []byte(s))
}
