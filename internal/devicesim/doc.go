// Package devicesim is an in-memory FLI device for tests. It
// implements the transport interfaces, so the whole stack from the
// registry down to the frame codec runs against it unchanged.
//
// A Transport holds simulated devices keyed by address; each device is
// described by a Profile, loadable from YAML. Sessions parse request
// frames incrementally and answer with encoded response frames through
// a small per-session read buffer, with a deliberately small maximum
// transfer size so engine chunking is exercised on every exchange.
package devicesim
