// Package camera implements the exposure/readout state machine for FLI
// CCD cameras.
//
// A Camera cycles Idle → Exposing → Reading → Idle, with
// WaitingForTrigger as a sub-state of Exposing entered when the shutter
// is armed for external triggering. Configuration is staged host-side
// and sent to the device as one atomic command when the exposure
// starts; configuration calls are rejected while an exposure or
// readout is in progress, before any transport exchange is attempted.
//
// The state machine never transitions on its own: polling
// ExposureStatus until it reports zero and then proceeding to readout
// is the caller's responsibility.
package camera
