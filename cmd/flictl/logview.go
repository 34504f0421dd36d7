package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/openfli/fli-go/pkg/log"
)

// cmdLog prints a protocol event log file written with -protocol-log.
func (a *app) cmdLog(args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	connID := fs.String("conn-id", "", "filter by connection ID")
	opcode := fs.String("opcode", "", "filter by opcode mnemonic")
	address := fs.String("address", "", "filter by device address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: log [flags] <file>")
	}

	reader, err := log.NewFilteredReader(fs.Arg(0), log.Filter{
		ConnectionID: *connID,
		Opcode:       strings.ToUpper(*opcode),
		Address:      *address,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		printEvent(event)
	}
}

func printEvent(event log.Event) {
	line := fmt.Sprintf("%s %-8s %-3s %-9s %-16s %-20s",
		event.Timestamp.Format("15:04:05.000000"),
		event.Level, event.Direction, event.Layer,
		shortConnID(event.ConnectionID), event.Address)

	switch {
	case event.Frame != nil:
		line += fmt.Sprintf(" %-22s frame %d bytes", event.Opcode, event.Frame.Size)
	case event.State != nil:
		line += fmt.Sprintf(" %s: %s -> %s", event.State.Entity,
			event.State.OldState, event.State.NewState)
		if event.State.Reason != "" {
			line += " (" + event.State.Reason + ")"
		}
	case event.Error != nil:
		line += fmt.Sprintf(" %-22s error: %s", event.Opcode, event.Error.Message)
	default:
		line += fmt.Sprintf(" %-22s status %s", event.Opcode, event.Status)
	}
	fmt.Println(line)
}

func shortConnID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
