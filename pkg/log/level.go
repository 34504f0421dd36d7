package log

import "sync/atomic"

// Level is a bitmask of event severities, mirroring the original
// library's FLIDEBUG levels. An Event carries exactly one bit; a mask
// combines several.
type Level uint8

const (
	// LevelNone enables no events.
	LevelNone Level = 0x00

	// LevelInfo marks informational events.
	LevelInfo Level = 0x01

	// LevelWarn marks recoverable anomalies (retried writes, stale scans).
	LevelWarn Level = 0x02

	// LevelFail marks failed operations.
	LevelFail Level = 0x04

	// LevelIO marks byte-level transport tracing.
	LevelIO Level = 0x08

	// LevelAll enables info, warn and fail (not byte tracing).
	LevelAll = LevelInfo | LevelWarn | LevelFail
)

// String returns the level name for a single-bit level, or "MASK" for
// combined masks.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelFail:
		return "FAIL"
	case LevelIO:
		return "IO"
	case LevelAll:
		return "ALL"
	default:
		return "MASK"
	}
}

// LevelVar holds a level mask that can be changed at runtime. The zero
// value is LevelNone. Safe for concurrent use.
type LevelVar struct {
	mask atomic.Uint32
}

// Level returns the current mask.
func (v *LevelVar) Level() Level {
	return Level(v.mask.Load())
}

// Set replaces the mask.
func (v *LevelVar) Set(l Level) {
	v.mask.Store(uint32(l))
}

// Enabled reports whether events at level l pass the mask.
func (v *LevelVar) Enabled(l Level) bool {
	return v.Level()&l != 0
}

// LevelFilter forwards events whose level bit is enabled in the mask
// and discards the rest.
type LevelFilter struct {
	inner Logger
	mask  *LevelVar
}

// NewLevelFilter wraps inner with a runtime-adjustable level mask.
func NewLevelFilter(inner Logger, mask *LevelVar) *LevelFilter {
	return &LevelFilter{inner: inner, mask: mask}
}

// Log forwards the event if its level is enabled.
func (f *LevelFilter) Log(event Event) {
	if f.inner == nil || !f.mask.Enabled(event.Level) {
		return
	}
	f.inner.Log(event)
}

// Compile-time interface satisfaction check.
var _ Logger = (*LevelFilter)(nil)
