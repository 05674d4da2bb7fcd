package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/paularlott/mcp-toon/config"
)

// globals are the flags every command accepts.
type globals struct {
	configPath string
	debug      bool
	noColor    bool
	out        string
}

func newFlagSet(name, usage string, g *globals) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&g.configPath, "config", "", "config file (default: $"+config.EnvVar+")")
	fs.BoolVar(&g.debug, "debug", false, "log at debug level")
	fs.BoolVar(&g.noColor, "no-color", false, "disable coloured output")
	fs.StringVarP(&g.out, "out", "o", "", "write output to this file instead of stdout")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: toon %s\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// setup loads the configuration and prepares logging and colour.
func (g *globals) setup() (*config.Config, *slog.Logger, error) {
	if g.noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr) {
		color.NoColor = true
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	debug := g.debug || os.Getenv("TOON_DEBUG") != ""
	return cfg, cfg.Logger(os.Stderr, debug), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// readInput reads the single file argument, or stdin when there is none or
// it is "-".
func readInput(args []string) ([]byte, string, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(os.Stdin)
		return data, "", err
	case 1:
		if args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			return data, "", err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, "", err
		}
		return data, args[0], nil
	}
	return nil, "", usageErrorf("expected at most one input file, got %d", len(args))
}

// writeOutput writes data to --out or stdout. Text output gets a trailing
// newline when it has none.
func (g *globals) writeOutput(data []byte, text bool) error {
	if text && (len(data) == 0 || data[len(data)-1] != '\n') {
		data = append(data, '\n')
	}
	if g.out == "" || g.out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(g.out, data, 0o644)
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
	noteColor  = color.New(color.FgCyan)
	plainColor = color.New(color.Reset)
)

func errorf(format string, args ...any) {
	errorColor.Fprint(os.Stderr, "error: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func notef(format string, args ...any) {
	noteColor.Fprintf(os.Stderr, format+"\n", args...)
}
