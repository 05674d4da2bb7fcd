package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/pflag"

	"github.com/paularlott/mcp-toon/config"
	"github.com/paularlott/mcp-toon/convert"
	"github.com/paularlott/mcp-toon/extract"
	"github.com/paularlott/mcp-toon/toon"
)

// encodeFlags are the TOON writer overrides shared by several commands.
type encodeFlags struct {
	delimiter string
	indent    int
}

func (e *encodeFlags) add(g *globals, name, usage string) *pflag.FlagSet {
	fs := newFlagSet(name, usage, g)
	fs.StringVar(&e.delimiter, "delimiter", "", `array delimiter: ",", "|" or "tab" (default from config)`)
	fs.IntVar(&e.indent, "indent", 0, "spaces per indentation level (default from config)")
	return fs
}

func (e *encodeFlags) options(cfg *config.Config) *toon.EncodeOptions {
	opts := cfg.EncodeOptions()
	switch e.delimiter {
	case "":
	case "tab":
		opts.Delimiter = "\t"
	default:
		opts.Delimiter = e.delimiter
	}
	if e.indent > 0 {
		opts.Indent = e.indent
	}
	return opts
}

// inputFormat resolves --from, falling back to the file extension and then
// to def.
func inputFormat(flag, path string, def convert.Format) (convert.Format, error) {
	if flag != "" {
		f, err := convert.ParseFormat(flag)
		if err != nil {
			return "", usageErrorf("%v", err)
		}
		return f, nil
	}
	if f, ok := convert.DetectFormat(path); ok {
		return f, nil
	}
	return def, nil
}

func codecOptions(cfg *config.Config, opts *toon.EncodeOptions) convert.Options {
	co := convert.Options{TOON: opts}
	if r := []rune(cfg.Extract.CSVDelimiter); len(r) == 1 {
		co.CSVDelimiter = r[0]
	}
	return co
}

func runEncode(args []string) error {
	var g globals
	var ef encodeFlags
	var from string
	fs := ef.add(&g, "encode", "encode [flags] [file]")
	fs.StringVarP(&from, "from", "f", "", "input format (default: from extension, else json)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	data, path, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	format, err := inputFormat(from, path, convert.FormatJSON)
	if err != nil {
		return err
	}
	opts := ef.options(cfg)
	out, err := convert.ConvertWithOptions(format, convert.FormatTOON, data, codecOptions(cfg, opts))
	if err != nil {
		return err
	}
	logger.Debug("encoded", "from", format, "bytes_in", len(data), "bytes_out", len(out))
	return g.writeOutput(out, true)
}

func runDecode(args []string) error {
	var g globals
	var to string
	fs := newFlagSet("decode", "decode [flags] [file]", &g)
	fs.StringVarP(&to, "to", "t", "json", "output format")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, _, err := g.setup()
	if err != nil {
		return err
	}
	format, err := convert.ParseFormat(to)
	if err != nil {
		return usageErrorf("%v", err)
	}

	data, _, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	out, err := convert.ConvertWithOptions(convert.FormatTOON, format, data, codecOptions(cfg, cfg.EncodeOptions()))
	if err != nil {
		return err
	}
	return g.writeOutput(out, !format.Binary())
}

func runConvert(args []string) error {
	var g globals
	var ef encodeFlags
	var from, to string
	fs := ef.add(&g, "convert", "convert --to FORMAT [flags] [file]")
	fs.StringVarP(&from, "from", "f", "", "input format (default: from extension)")
	fs.StringVarP(&to, "to", "t", "", "output format")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	if to == "" {
		return usageErrorf("--to is required")
	}
	target, err := convert.ParseFormat(to)
	if err != nil {
		return usageErrorf("%v", err)
	}

	data, path, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	source, err := inputFormat(from, path, "")
	if err != nil {
		return err
	}
	if source == "" {
		return usageErrorf("cannot tell the input format, use --from")
	}
	out, err := convert.ConvertWithOptions(source, target, data, codecOptions(cfg, ef.options(cfg)))
	if err != nil {
		return err
	}
	logger.Debug("converted", "from", source, "to", target, "bytes_in", len(data), "bytes_out", len(out))
	return g.writeOutput(out, !target.Binary())
}

func runValidate(args []string) error {
	var g globals
	var quiet bool
	fs := newFlagSet("validate", "validate [flags] [file]", &g)
	fs.BoolVarP(&quiet, "quiet", "q", false, "report through the exit code only")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, _, err := g.setup(); err != nil {
		return err
	}

	data, path, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	if path == "" {
		path = "<stdin>"
	}
	res := toon.Validate(string(data))
	if res.Valid {
		if !quiet {
			okColor.Fprintf(os.Stderr, "%s: valid\n", path)
		}
		return nil
	}
	if quiet {
		return &cliError{code: exitInvalid}
	}
	if res.Line > 0 {
		return invalidf("%s:%d: %s", path, res.Line, res.Message)
	}
	return invalidf("%s: %s", path, res.Message)
}

func runExtract(args []string) error {
	var g globals
	var kind string
	var asJSON bool
	fs := newFlagSet("extract", "extract [flags] [file]", &g)
	fs.StringVarP(&kind, "kind", "k", "", "only this kind: json, xml or csv (default: all)")
	fs.BoolVar(&asJSON, "json", false, "print the blocks with their offsets as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, _, err := g.setup()
	if err != nil {
		return err
	}

	data, _, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	ex := extract.New(cfg.ExtractOptions())

	var blocks []extract.Block
	if kind == "" {
		blocks = ex.Find(string(data))
	} else {
		k, ok := extract.ParseKind(kind)
		if !ok {
			return usageErrorf("unknown kind %q", kind)
		}
		for pos := 0; ; {
			b, ok := ex.Next(k, string(data), pos)
			if !ok {
				break
			}
			blocks = append(blocks, b)
			pos = b.End
		}
	}
	if len(blocks) == 0 {
		return invalidf("no payload found")
	}

	if asJSON {
		out, err := json.MarshalIndent(blocks, "", "  ")
		if err != nil {
			return err
		}
		return g.writeOutput(out, true)
	}
	var buf bytes.Buffer
	for i, b := range blocks {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(b.Text)
		buf.WriteByte('\n')
	}
	return g.writeOutput(buf.Bytes(), true)
}

func runCompress(args []string) error {
	var g globals
	var ef encodeFlags
	var noPhrases, stats bool
	fs := ef.add(&g, "compress", "compress [flags] [file]")
	fs.BoolVar(&noPhrases, "no-phrases", false, "leave the prose untouched")
	fs.BoolVar(&stats, "stats", false, "report the size change on stderr")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	data, _, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	p := cfg.Pipeline()
	p.Encode = ef.options(cfg)
	if noPhrases {
		p.Phrases = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := p.Compress(ctx, string(data))
	if err != nil {
		return err
	}
	for _, b := range res.Blocks {
		logger.Debug("payload converted", "kind", b.Kind, "bytes_in", len(b.Original), "bytes_out", len(b.TOON))
	}
	if stats {
		saved := 0.0
		if res.BytesBefore > 0 {
			saved = 100 * float64(res.BytesBefore-res.BytesAfter) / float64(res.BytesBefore)
		}
		notef("%d payloads, %d -> %d bytes (%.1f%% saved)", len(res.Blocks), res.BytesBefore, res.BytesAfter, saved)
	}
	return g.writeOutput([]byte(res.Text), false)
}

// runRoundtrip encodes the input as TOON, decodes it again and compares the
// canonical JSON of both trees.
func runRoundtrip(args []string) error {
	var g globals
	var ef encodeFlags
	var from string
	var show bool
	fs := ef.add(&g, "roundtrip", "roundtrip [flags] [file]")
	fs.StringVarP(&from, "from", "f", "", "input format (default: from extension, else json)")
	fs.BoolVar(&show, "show", false, "print the intermediate TOON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, _, err := g.setup()
	if err != nil {
		return err
	}

	data, path, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	format, err := inputFormat(from, path, convert.FormatJSON)
	if err != nil {
		return err
	}
	co := codecOptions(cfg, ef.options(cfg))

	original, err := convert.DecodeWithOptions(format, data, co)
	if err != nil {
		return err
	}
	encoded, err := convert.EncodeWithOptions(convert.FormatTOON, original, co)
	if err != nil {
		return err
	}
	if show {
		if err := g.writeOutput(encoded, true); err != nil {
			return err
		}
	}
	decoded, err := toon.Decode(string(encoded))
	if err != nil {
		return invalidf("encoded document does not decode: %v", err)
	}

	want, err := convert.Encode(convert.FormatJSON, original)
	if err != nil {
		return err
	}
	got, err := convert.Encode(convert.FormatJSON, decoded)
	if err != nil {
		return err
	}
	if bytes.Equal(want, got) {
		okColor.Fprintf(os.Stderr, "round trip ok (%d -> %d bytes)\n", len(want), len(encoded))
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(want), string(got))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	fmt.Fprintln(os.Stderr, renderDiff(diffs))
	return invalidf("round trip changed the document")
}

func renderDiff(diffs []diffmatchpatch.Diff) string {
	var buf bytes.Buffer
	for _, d := range diffs {
		prefix, c := "  ", plainColor
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, c = "+ ", okColor
		case diffmatchpatch.DiffDelete:
			prefix, c = "- ", errorColor
		}
		for _, line := range bytes.SplitAfter([]byte(d.Text), []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			buf.WriteString(c.Sprint(prefix + string(bytes.TrimRight(line, "\n"))))
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}
