// toon converts documents to and from TOON, pulls structured payloads out of
// mixed text, seals output and serves the same operations as MCP tools.
//
// Usage:
//
//	toon <command> [flags] [file]
//
// Input is read from the file argument, or stdin when it is absent or "-".
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitError   = 1
	exitUsage   = 2
	exitInvalid = 3
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"encode", "convert a document to TOON", runEncode},
		{"decode", "convert TOON to another format", runDecode},
		{"validate", "check the structure of a TOON document", runValidate},
		{"extract", "find JSON, XML or CSV payloads in text", runExtract},
		{"compress", "rewrite payloads in mixed text as TOON", runCompress},
		{"convert", "convert between JSON, YAML, XML, CSV, CBOR and TOON", runConvert},
		{"roundtrip", "check that a document survives TOON encoding", runRoundtrip},
		{"seal", "encrypt a document", runSeal},
		{"open", "decrypt a sealed document", runOpen},
		{"keygen", "generate a sealing key or identity", runKeygen},
		{"serve", "serve the TOON tools over MCP", runServe},
		{"call", "call a tool on a remote MCP server", runCall},
		{"version", "print the version", runVersion},
	}
}

func main() {
	os.Exit(exitCode(run(os.Args[1:])))
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return usageErrorf("no command given")
	}
	name := args[0]
	switch name {
	case "-h", "--help", "help":
		printUsage()
		return nil
	case "--version":
		return runVersion(nil)
	}
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(args[1:])
		}
	}
	printUsage()
	return usageErrorf("unknown command %q", name)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if msg := err.Error(); msg != "" {
			errorf("%s", msg)
		}
		return coder.ExitCode()
	}
	errorf("%v", err)
	return exitError
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: toon <command> [flags] [file]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'toon <command> --help' for the flags of a command.\n")
}

func runVersion(args []string) error {
	fmt.Printf("toon %s\n", version)
	return nil
}

// cliError carries an exit code through run.
type cliError struct {
	code int
	msg  string
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) ExitCode() int { return e.code }

func usageErrorf(format string, args ...any) error {
	return &cliError{code: exitUsage, msg: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...any) error {
	return &cliError{code: exitInvalid, msg: fmt.Sprintf(format, args...)}
}

// parseFlags parses args and turns help and flag errors into usage errors.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return &cliError{code: 0}
	}
	if err != nil {
		return usageErrorf("%v", err)
	}
	return nil
}
