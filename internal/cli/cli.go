// Package cli parses lockbridge command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandServe    Command = "serve"
	CommandSimulate Command = "simulate"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:    {},
	CommandSimulate: {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

// NoReport marks an unset --report value.
const NoReport = -1

type Parsed struct {
	Command    Command
	ConfigPath string
	SocketPath string
	Report     int
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, Report: NoReport}

	var showHelp, showVersion bool
	flags := pflag.NewFlagSet("lockbridge", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&parsed.ConfigPath, "config", "", "config file path")
	flags.StringVar(&parsed.SocketPath, "socket", "", "bridge socket path (overrides lock.socketfile)")
	flags.IntVar(&parsed.Report, "report", NoReport, "initial state reported by simulate")
	flags.BoolVarP(&showHelp, "help", "h", false, "show help")
	flags.BoolVar(&showVersion, "version", false, "show version")

	if err := flags.Parse(args); err != nil {
		return Parsed{}, err
	}

	if flags.Changed("config") && parsed.ConfigPath == "" {
		return Parsed{}, errors.New("--config requires a path")
	}

	rest := flags.Args()
	if len(rest) > 1 {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", rest[0])
	}
	if len(rest) == 1 {
		cmd := Command(rest[0])
		if _, ok := validCommands[cmd]; !ok {
			return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
		}
		parsed.Command = cmd
		parsed.ShowHelp = cmd == CommandHelp
	}

	if flags.Changed("report") {
		if parsed.Command != CommandSimulate {
			return Parsed{}, errors.New("--report is only valid with simulate")
		}
		if parsed.Report < 0 {
			return Parsed{}, errors.New("--report must be >= 0")
		}
	}

	switch {
	case showHelp:
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	case showVersion:
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--socket PATH] <command>

Commands:
  serve     Run the lock bridge until SIGINT/SIGTERM
  simulate  Act as a physical lock driver against a running bridge
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/lockbridge/config.jsonc)
  --socket PATH   Bridge socket path (overrides lock.socketfile)
  --report N      simulate: state code to report right after connecting
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
