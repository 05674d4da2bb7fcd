// Package config loads the settings shared by the toon CLI and MCP server.
//
// Configuration comes from a single YAML file named by the --config flag or
// the TOON_CONFIG environment variable. There is no discovery: with neither
// set, Default is used as is. ${VAR} and ${VAR:-default} in paths and
// secrets are expanded from the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paularlott/mcp-toon/seal"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "TOON_CONFIG"

// Config is the complete configuration.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Encode  EncodeConfig      `yaml:"encode"`
	Extract ExtractConfig     `yaml:"extract"`
	Phrases map[string]string `yaml:"phrases"`
	Seal    SealConfig        `yaml:"seal"`
	Remote  RemoteConfig      `yaml:"remote"`
	Log     LogConfig         `yaml:"log"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Listen is the address passed to net/http.
	Listen string `yaml:"listen"`
	// Path is where the JSON-RPC endpoint is mounted.
	Path string `yaml:"path"`
	// Token, when set, must be presented as a bearer token.
	Token string `yaml:"token"`
	// H2C serves HTTP/2 without TLS.
	H2C  bool   `yaml:"h2c"`
	Name string `yaml:"name"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// SessionKey, a hex key, switches to signed sessions that any server
	// holding the same key accepts.
	SessionKey string        `yaml:"session_key"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// EncodeConfig sets the TOON writer options.
type EncodeConfig struct {
	Indent    int    `yaml:"indent"`
	Delimiter string `yaml:"delimiter"`
}

// ExtractConfig bounds the payload scanners.
type ExtractConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	CSVDelimiter  string `yaml:"csv_delimiter"`
	MinLines      int    `yaml:"min_lines"`
	UniformFields bool   `yaml:"uniform_fields"`
}

// Seal modes.
const (
	SealKey        = "key"
	SealPassphrase = "passphrase"
	SealIdentity   = "identity"
)

// SealConfig selects how sealed output is protected.
type SealConfig struct {
	// Mode is key, passphrase or identity.
	Mode string `yaml:"mode"`
	// KeyFile holds a hex key (key mode) or an age identity (identity mode).
	KeyFile string `yaml:"key_file"`
	// PassphraseEnv names the variable holding the passphrase.
	PassphraseEnv string `yaml:"passphrase_env"`
	Compress      bool   `yaml:"compress"`
}

// RemoteConfig points the call command at another MCP server.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	OAuth2  *OAuth2Config `yaml:"oauth2,omitempty"`
}

// OAuth2Config enables the client-credentials flow for remote calls.
type OAuth2Config struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns a working configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			Path:            "/mcp",
			Name:            "toon",
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      time.Hour,
		},
		Encode: EncodeConfig{
			Indent:    2,
			Delimiter: ",",
		},
		Extract: ExtractConfig{
			MaxIterations: 100,
			CSVDelimiter:  ",",
			MinLines:      1,
		},
		Seal: SealConfig{
			Mode:          SealKey,
			PassphraseEnv: "TOON_PASSPHRASE",
			Compress:      true,
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by path, or by TOON_CONFIG when path is empty.
// With neither set it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults, expands variables and validates
// the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Server.Token = expandVars(c.Server.Token)
	c.Server.SessionKey = expandVars(c.Server.SessionKey)
	c.Seal.KeyFile = expandVars(c.Seal.KeyFile)
	c.Remote.URL = expandVars(c.Remote.URL)
	c.Remote.Token = expandVars(c.Remote.Token)
	if c.Remote.OAuth2 != nil {
		c.Remote.OAuth2.ClientID = expandVars(c.Remote.OAuth2.ClientID)
		c.Remote.OAuth2.ClientSecret = expandVars(c.Remote.OAuth2.ClientSecret)
		c.Remote.OAuth2.TokenURL = expandVars(c.Remote.OAuth2.TokenURL)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Encode.Indent < 1 {
		errs = append(errs, fmt.Errorf("encode.indent must be at least 1, got %d", c.Encode.Indent))
	}
	switch c.Encode.Delimiter {
	case ",", "|", "\t":
	default:
		errs = append(errs, fmt.Errorf("encode.delimiter must be \",\", \"|\" or a tab, got %q", c.Encode.Delimiter))
	}

	if c.Extract.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("extract.max_iterations must be at least 1, got %d", c.Extract.MaxIterations))
	}
	if len([]rune(c.Extract.CSVDelimiter)) != 1 {
		errs = append(errs, fmt.Errorf("extract.csv_delimiter must be a single character, got %q", c.Extract.CSVDelimiter))
	}
	if c.Extract.MinLines < 1 {
		errs = append(errs, fmt.Errorf("extract.min_lines must be at least 1, got %d", c.Extract.MinLines))
	}

	switch c.Seal.Mode {
	case SealKey, SealIdentity, SealPassphrase:
	default:
		errs = append(errs, fmt.Errorf("invalid seal.mode: %q", c.Seal.Mode))
	}

	if c.Server.Path == "" || c.Server.Path[0] != '/' {
		errs = append(errs, fmt.Errorf("server.path must start with /, got %q", c.Server.Path))
	}
	if c.Server.SessionKey != "" {
		if _, err := seal.ParseKey(c.Server.SessionKey); err != nil {
			errs = append(errs, fmt.Errorf("server.session_key: %w", err))
		}
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl must be positive, got %v", c.Server.SessionTTL))
	}

	if o := c.Remote.OAuth2; o != nil {
		if o.ClientID == "" || o.TokenURL == "" {
			errs = append(errs, errors.New("remote.oauth2 needs client_id and token_url"))
		}
		if c.Remote.Token != "" {
			errs = append(errs, errors.New("remote.token and remote.oauth2 are mutually exclusive"))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log.level: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format: %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
