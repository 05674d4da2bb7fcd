package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paularlott/mcp-toon/config"
	"github.com/paularlott/mcp-toon/seal"
)

type sealFlags struct {
	mode    string
	keyFile string
}

func (s *sealFlags) sealer(cfg *config.Config) (seal.Sealer, error) {
	if s.mode != "" {
		cfg.Seal.Mode = s.mode
	}
	if s.keyFile != "" {
		cfg.Seal.KeyFile = s.keyFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageErrorf("%v", err)
	}
	return cfg.Sealer()
}

func runSeal(args []string) error {
	var g globals
	var sf sealFlags
	fs := newFlagSet("seal", "seal [flags] [file]", &g)
	fs.StringVar(&sf.mode, "mode", "", "key, passphrase or identity (default from config)")
	fs.StringVar(&sf.keyFile, "key-file", "", "key or identity file (default from config)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	sealer, err := sf.sealer(cfg)
	if err != nil {
		return err
	}

	data, _, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	blob, err := sealer.Seal(data)
	if err != nil {
		return err
	}
	logger.Debug("sealed", "mode", cfg.Seal.Mode, "bytes_in", len(data), "bytes_out", len(blob))
	return g.writeOutput([]byte(blob), true)
}

func runOpen(args []string) error {
	var g globals
	var sf sealFlags
	fs := newFlagSet("open", "open [flags] [file]", &g)
	fs.StringVar(&sf.mode, "mode", "", "key, passphrase or identity (default from config)")
	fs.StringVar(&sf.keyFile, "key-file", "", "key or identity file (default from config)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, _, err := g.setup()
	if err != nil {
		return err
	}
	sealer, err := sf.sealer(cfg)
	if err != nil {
		return err
	}

	data, _, err := readInput(fs.Args())
	if err != nil {
		return err
	}
	plaintext, err := sealer.Open(strings.TrimSpace(string(data)))
	switch {
	case errors.Is(err, seal.ErrWrongKey), errors.Is(err, seal.ErrMalformed), errors.Is(err, seal.ErrTampered):
		return invalidf("%v", err)
	case err != nil:
		return err
	}
	return g.writeOutput(plaintext, false)
}

func runKeygen(args []string) error {
	var g globals
	var kind string
	fs := newFlagSet("keygen", "keygen [flags]", &g)
	fs.StringVar(&kind, "type", config.SealKey, "key (symmetric) or identity (age X25519)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, _, err := g.setup(); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageErrorf("keygen takes no arguments")
	}

	var secret string
	switch kind {
	case config.SealKey:
		key, err := seal.GenerateKey()
		if err != nil {
			return err
		}
		s, err := seal.NewKeySealer(key, false)
		if err != nil {
			return err
		}
		secret = seal.EncodeKey(key)
		notef("fingerprint: %s", s.Fingerprint())
	case config.SealIdentity:
		secretKey, publicKey, err := seal.GenerateIdentity()
		if err != nil {
			return err
		}
		secret = secretKey
		notef("public key: %s", publicKey)
	default:
		return usageErrorf("unknown key type %q", kind)
	}

	if g.out == "" || g.out == "-" {
		return g.writeOutput([]byte(secret), true)
	}
	if err := os.WriteFile(g.out, []byte(secret+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing key: %w", err)
	}
	return nil
}
