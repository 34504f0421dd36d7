// Command flictl is a command-line tool for FLI cameras, filter wheels
// and focusers.
//
// Usage:
//
//	flictl [flags] <command> [args]
//
// Commands:
//
//	list                     List devices on the selected interface
//	info <address>           Show device identity and capabilities
//	expose <address>         Take an exposure and save the raw frame
//	temp <address> [celsius] Read the temperature, or set the cooler
//	step <address> <steps>   Move a focuser or wheel motor
//	home <address>           Home a focuser or wheel
//	filter <address> [slot]  Read or set the filter position
//	log <file>               View a protocol event log file
//	shell                    Interactive command shell
//
// Flags:
//
//	-interface string    Transport: usb, serial, serial1200, parallel, network, sim (default "usb")
//	-debug string        Event level: none, fail, all, io (default "none")
//	-protocol-log string Write protocol events to a CBOR log file
//
// Examples:
//
//	# List USB devices
//	flictl list
//
//	# 2x2 binned 500ms exposure, saved as raw pixels
//	flictl expose usb:ML0012345 -time 500ms -bin 2 -out frame.raw
//
//	# Cool to -20C and watch the sensor temperature
//	flictl temp usb:ML0012345 -- -20
//
//	# Drive the simulated bus with full byte tracing
//	flictl -interface sim -debug io shell
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openfli/fli-go/internal/devicesim"
	"github.com/openfli/fli-go/pkg/device"
	"github.com/openfli/fli-go/pkg/log"
	"github.com/openfli/fli-go/pkg/proto"
	"github.com/openfli/fli-go/pkg/transport"
)

const usage = `flictl - FLI device control

Usage:
  flictl [flags] <command> [args]

Commands:
  list                     List devices on the selected interface
  info <address>           Show device identity and capabilities
  expose <address>         Take an exposure and save the raw frame
  temp <address> [celsius] Read the temperature, or set the cooler
  step <address> <steps>   Move a focuser or wheel motor
  home <address>           Home a focuser or wheel
  filter <address> [slot]  Read or set the filter position
  log <file>               View a protocol event log file
  shell                    Interactive command shell

Flags:
  -interface string    usb, serial, serial1200, parallel, network, sim (default "usb")
  -debug string        none, fail, all, io (default "none")
  -protocol-log string Write protocol events to a CBOR log file
`

func main() {
	ifaceFlag := flag.String("interface", "usb", "transport interface")
	debugFlag := flag.String("debug", "none", "event level: none, fail, all, io")
	logFlag := flag.String("protocol-log", "", "protocol event log file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	app, err := newApp(*ifaceFlag, *debugFlag, *logFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flictl: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "flictl: %v\n", err)
		os.Exit(1)
	}
}

// app wires the registry, transport and logging for one invocation.
type app struct {
	reg        *device.Registry
	domain     device.Domain
	fileLogger *log.FileLogger
}

func newApp(iface, debug, logPath string) (*app, error) {
	var logger log.Logger = log.NoopLogger{}
	var fileLogger *log.FileLogger
	if logPath != "" {
		var err error
		fileLogger, err = log.NewFileLogger(logPath)
		if err != nil {
			return nil, err
		}
		logger = fileLogger
	}

	a := &app{fileLogger: fileLogger}

	var t transport.Transport
	var ifc device.Interface
	switch iface {
	case "usb":
		t, ifc = transport.NewUSB(), device.InterfaceUSB
	case "serial":
		t, ifc = transport.NewSerial(), device.InterfaceSerial
	case "serial1200":
		t, ifc = transport.NewSerialBaud(transport.SerialBaudLegacy), device.InterfaceSerial1200
	case "parallel":
		t, ifc = transport.NewParallel(), device.InterfaceParallelPort
	case "network":
		t, ifc = transport.NewNetwork(), device.InterfaceNetwork
	case "sim":
		t, ifc = simBus(), device.InterfaceUSB
	default:
		return nil, fmt.Errorf("unknown interface %q", iface)
	}

	a.reg = device.NewRegistry(device.WithTransport(ifc, t), device.WithLogger(logger))
	a.domain = device.NewDomain(ifc, proto.ClassUnknown)

	switch debug {
	case "none", "":
	case "fail":
		a.reg.SetDebugLevel(log.LevelFail)
	case "all":
		a.reg.SetDebugLevel(log.LevelAll)
	case "io":
		a.reg.SetDebugLevel(log.LevelAll | log.LevelIO)
	default:
		return nil, fmt.Errorf("unknown debug level %q", debug)
	}
	return a, nil
}

// simBus builds an in-memory bus with one of each device class, for
// exercising the tool without hardware.
func simBus() transport.Transport {
	bus := devicesim.NewTransport()
	bus.Add("cam0", devicesim.CameraProfile())
	bus.Add("wheel0", devicesim.FilterWheelProfile())
	bus.Add("foc0", devicesim.FocuserProfile())
	return bus
}

func (a *app) close() {
	a.reg.CloseAll()
	if a.fileLogger != nil {
		a.fileLogger.Close()
	}
}

func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.cmdList()
	case "info":
		return a.cmdInfo(args)
	case "expose":
		return a.cmdExpose(args)
	case "temp":
		return a.cmdTemp(args)
	case "step":
		return a.cmdStep(args)
	case "home":
		return a.cmdHome(args)
	case "filter":
		return a.cmdFilter(args)
	case "log":
		return a.cmdLog(args)
	case "shell":
		return a.runShell()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
