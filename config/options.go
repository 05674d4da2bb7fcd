package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paularlott/mcp-toon/convert"
	"github.com/paularlott/mcp-toon/extract"
	"github.com/paularlott/mcp-toon/seal"
	"github.com/paularlott/mcp-toon/toon"
)

// EncodeOptions returns the TOON writer options.
func (c *Config) EncodeOptions() *toon.EncodeOptions {
	return &toon.EncodeOptions{Indent: c.Encode.Indent, Delimiter: c.Encode.Delimiter}
}

// ExtractOptions returns the scanner bounds.
func (c *Config) ExtractOptions() extract.Options {
	return extract.Options{
		MaxIterations: c.Extract.MaxIterations,
		Delimiter:     c.Extract.CSVDelimiter,
		MinLines:      c.Extract.MinLines,
		UniformFields: c.Extract.UniformFields,
	}
}

// PhraseDictionary returns the configured phrases, or the built-in table
// when none are set.
func (c *Config) PhraseDictionary() *convert.Phrases {
	if len(c.Phrases) == 0 {
		return convert.DefaultPhrases()
	}
	return convert.NewPhrases(c.Phrases)
}

// Pipeline builds the mixed-text pipeline.
func (c *Config) Pipeline() *convert.Pipeline {
	return &convert.Pipeline{
		Extractor: extract.New(c.ExtractOptions()),
		Encode:    c.EncodeOptions(),
		Phrases:   c.PhraseDictionary(),
	}
}

// Sealer builds the sealer for the configured mode.
func (c *Config) Sealer() (seal.Sealer, error) {
	switch c.Seal.Mode {
	case SealKey:
		if c.Seal.KeyFile == "" {
			return nil, fmt.Errorf("seal.key_file is required in %s mode", c.Seal.Mode)
		}
		key, err := seal.LoadKey(c.Seal.KeyFile)
		if err != nil {
			return nil, err
		}
		return seal.NewKeySealer(key, c.Seal.Compress)

	case SealIdentity:
		if c.Seal.KeyFile == "" {
			return nil, fmt.Errorf("seal.key_file is required in %s mode", c.Seal.Mode)
		}
		data, err := os.ReadFile(c.Seal.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity file: %w", err)
		}
		return seal.NewIdentitySealer(string(data))

	case SealPassphrase:
		passphrase := os.Getenv(c.Seal.PassphraseEnv)
		if passphrase == "" {
			return nil, fmt.Errorf("%s is not set", c.Seal.PassphraseEnv)
		}
		return seal.NewPassphraseSealer(passphrase)
	}
	return nil, fmt.Errorf("invalid seal.mode: %q", c.Seal.Mode)
}

// Logger builds a slog.Logger writing to w in the configured format.
// debug forces the debug level.
func (c *Config) Logger(w io.Writer, debug bool) *slog.Logger {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
