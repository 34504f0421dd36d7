// Package motion implements the stepper state machine shared by FLI
// filter wheels and focusers.
//
// A Motor starts out unhomed: positions are relative and the extent is
// advisory until Home has run. Step blocks until the move completes
// and returns the steps actually taken; StepAsync returns immediately
// and StepsRemaining polls progress. Homing drives toward the limit
// switch; a device that hits the limit without finding its home sensor
// reports a hardware fault.
//
// FilterWheel layers slot positioning on top of the motor, converting
// slot indices to step offsets from the home position. Focuser adds
// the temperature readout the DF-2 hardware provides.
package motion
