package metrics

import (
	"time"
)

// OutcomeOK labels a translation that returned a reply. Failed translations
// are labelled with their error code name (e.g. "SchemaMismatch").
const OutcomeOK = "ok"

// XlateMetrics provides observability for the translation proxy.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead. The package-level helpers below accept a nil receiver.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := prometheus.NewXlateMetrics()
//	p := proxy.New(cfg, store, client, m)
//
//	// Without metrics
//	p := proxy.New(cfg, store, client, nil)
type XlateMetrics interface {
	// RecordTranslate records a completed translation.
	//
	// Parameters:
	//   - program: Program name from the request (e.g., "tst_prog_1")
	//   - procedure: Procedure name, or the decimal procno when unresolved
	//   - outcome: OutcomeOK or the error code name
	//   - duration: Time from request receipt to reply decode
	RecordTranslate(program, procedure, outcome string, duration time.Duration)

	// RecordTranslateStart increments the in-flight gauge.
	RecordTranslateStart()

	// RecordTranslateEnd decrements the in-flight gauge.
	RecordTranslateEnd()

	// RecordPayload records the size of an encoded argument ("arg") or of a
	// reply body ("reply").
	RecordPayload(program, direction string, bytes int)

	// SetDebugLevel mirrors the current debug level.
	SetDebugLevel(level int64)

	// RecordSchemaReload records a schema reload attempt and, on success,
	// the number of programs now registered.
	RecordSchemaReload(success bool, programs int)
}

// RecordTranslate is a nil-safe wrapper around XlateMetrics.RecordTranslate.
func RecordTranslate(m XlateMetrics, program, procedure, outcome string, duration time.Duration) {
	if m != nil {
		m.RecordTranslate(program, procedure, outcome, duration)
	}
}

// RecordPayload is a nil-safe wrapper around XlateMetrics.RecordPayload.
func RecordPayload(m XlateMetrics, program, direction string, bytes int) {
	if m != nil {
		m.RecordPayload(program, direction, bytes)
	}
}
