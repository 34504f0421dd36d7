// Package device is the top of the library: it discovers FLI devices
// across the registered transports and hands out generation-checked
// handles to opened units.
//
// A Registry owns one transport per interface domain. Enumerate scans
// a domain and yields a fresh snapshot each time it is ranged over;
// Open connects, runs the identify handshake and builds the
// class-specific state machine, returning a Handle. A Handle is a
// small value (index plus generation): once its device is closed every
// later use of it fails, even if the slot has been reused for another
// device.
//
// Locks are advisory and scoped to the transport address, so two
// handles to the same physical unit contend while handles to different
// units never do.
package device
