// Package fli is the root of the FLI device-control library.
//
// The packages under pkg/ layer as follows:
//
//	device    Registry, handles, per-unit locks
//	camera    Exposure and readout state machine
//	motion    Focuser and filter wheel positioning
//	proto     Wire framing, opcodes, the exchange engine
//	transport Physical interfaces (USB, serial, parallel, network)
//	log       Structured protocol event logging
//
// Applications start at pkg/device: build a Registry over one or more
// transports, enumerate, open a handle, and ask the registry for the
// class-specific controller (Camera, FilterWheel, Focuser).
package fli
