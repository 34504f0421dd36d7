package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const shellHelp = `Commands:
  list                 List devices on the selected interface
  info <address>       Show device identity and capabilities
  expose <address> ... Take an exposure (see 'flictl expose' flags)
  temp <address> [c]   Read the temperature, or set the cooler
  step <address> <n>   Move a focuser or wheel motor
  home <address>       Home a focuser or wheel
  filter <address> [n] Read or set the filter position
  help                 Show this help
  quit                 Exit the shell
`

// runShell is the interactive command loop. Each command opens and
// closes its handle, so the shell never pins a device between
// commands.
func (a *app) runShell() error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("info"),
		readline.PcItem("expose"),
		readline.PcItem("temp"),
		readline.PcItem("step"),
		readline.PcItem("home"),
		readline.PcItem("filter"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fli> ",
		HistoryFile:     "/tmp/flictl_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Print(shellHelp)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Print(shellHelp)
		case "shell":
			fmt.Println("already in a shell")
		default:
			if err := a.run(cmd, args); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
	}
}
