// Package log provides structured logging of device protocol activity.
//
// The library emits an Event for every transport frame, protocol
// exchange and state machine transition. Applications choose where
// events go by implementing the one-method Logger interface, or by
// using one of the provided sinks:
//
//   - NoopLogger discards everything (the default).
//   - SlogAdapter forwards events to a log/slog logger.
//   - FileLogger appends length-prefixed CBOR events to a file.
//   - MultiLogger fans out to several sinks.
//   - LevelFilter gates events by the FLIDEBUG-style level mask.
//
// The level mask mirrors the original library's debug levels: info,
// warn, fail and I/O tracing can be enabled independently, and the
// mask can be changed at runtime through a LevelVar.
package log
