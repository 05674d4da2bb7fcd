package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/paularlott/mcp-toon"
	"github.com/paularlott/mcp-toon/config"
	"github.com/paularlott/mcp-toon/pool"
)

func newClient(cfg *config.Config) (*mcp.Client, error) {
	if cfg.Remote.URL == "" {
		return nil, usageErrorf("no server URL: set remote.url or use --url")
	}
	pc := pool.DefaultConfig()
	pc.Timeout = cfg.Remote.Timeout
	httpClient := pool.NewClient(pc)

	var auth mcp.AuthProvider
	switch {
	case cfg.Remote.OAuth2 != nil:
		o := cfg.Remote.OAuth2
		auth = mcp.NewOAuth2Auth(o.ClientID, o.ClientSecret, o.TokenURL, o.Scopes, httpClient)
	case cfg.Remote.Token != "":
		auth = mcp.NewBearerTokenAuth(cfg.Remote.Token)
	}
	return mcp.NewClient(cfg.Remote.URL, auth, mcp.WithHTTPClient(httpClient)), nil
}

// runCall invokes a tool on a remote server. Arguments come from --arg
// key=value pairs and, for the tool's main text argument, from --input.
func runCall(args []string) error {
	var g globals
	var url, input, inputArg string
	var kv []string
	var list bool
	fs := newFlagSet("call", "call [flags] TOOL", &g)
	fs.StringVar(&url, "url", "", "server URL (default from config)")
	fs.StringArrayVarP(&kv, "arg", "a", nil, "tool argument as key=value; values are parsed as JSON when they can be")
	fs.StringVar(&input, "input", "", "read this file (- for stdin) into the argument named by --input-arg")
	fs.StringVar(&inputArg, "input-arg", "text", "argument that receives --input")
	fs.BoolVar(&list, "list", false, "list the server's tools instead")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	if url != "" {
		cfg.Remote.URL = url
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer client.Close(ctx)

	if list {
		tools, err := client.ListTools(ctx)
		if err != nil {
			return err
		}
		var b strings.Builder
		for _, t := range tools {
			fmt.Fprintf(&b, "%-16s %s\n", t.Name, t.Description)
		}
		return g.writeOutput([]byte(b.String()), false)
	}

	if fs.NArg() != 1 {
		return usageErrorf("expected one tool name")
	}
	arguments, err := parseArguments(kv)
	if err != nil {
		return err
	}
	if input != "" {
		data, _, err := readInput([]string{input})
		if err != nil {
			return err
		}
		arguments[inputArg] = string(data)
	}

	logger.Debug("calling tool", "url", cfg.Remote.URL, "tool", fs.Arg(0))
	resp, err := client.CallTool(ctx, fs.Arg(0), arguments)
	var te *mcp.ToolError
	if errors.As(err, &te) {
		return invalidf("%s (code %d)", te.Message, te.Code)
	}
	if err != nil {
		return err
	}

	if resp.StructuredContent != nil {
		out, err := json.MarshalIndent(resp.StructuredContent, "", "  ")
		if err != nil {
			return err
		}
		return g.writeOutput(out, true)
	}
	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return g.writeOutput([]byte(b.String()), true)
}

func parseArguments(kv []string) (map[string]any, error) {
	arguments := make(map[string]any, len(kv))
	for _, pair := range kv {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, usageErrorf("argument %q is not key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		arguments[key] = v
	}
	return arguments, nil
}
