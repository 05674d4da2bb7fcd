package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcp "github.com/paularlott/mcp-toon"
	"github.com/paularlott/mcp-toon/config"
	"github.com/paularlott/mcp-toon/pool"
	"github.com/paularlott/mcp-toon/seal"
)

const instructions = "Tools for TOON, a compact notation for JSON data. " +
	"Use toon_encode before placing large JSON in a prompt and compress_text for mixed text."

// sessionSweep is how often idle in-memory sessions are dropped.
const sessionSweep = time.Minute

func runServe(args []string) error {
	var g globals
	var listen, token string
	var h2c, sealTools bool
	fs := newFlagSet("serve", "serve [flags]", &g)
	fs.StringVarP(&listen, "listen", "l", "", "listen address (default from config)")
	fs.StringVar(&token, "token", "", "require this bearer token (default from config)")
	fs.BoolVar(&h2c, "h2c", false, "accept HTTP/2 without TLS")
	fs.BoolVar(&sealTools, "seal", false, "also serve toon_seal and toon_open with the configured seal settings")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if token != "" {
		cfg.Server.Token = token
	}
	if fs.Changed("h2c") {
		cfg.Server.H2C = h2c
	}

	tools := mcp.ToolsConfig{
		Encode:   cfg.EncodeOptions(),
		Pipeline: cfg.Pipeline(),
	}
	if sealTools {
		if tools.Sealer, err = cfg.Sealer(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, tools, logger)
}

func newServer(cfg *config.Config, tools mcp.ToolsConfig, logger *slog.Logger) (*mcp.Server, mcp.SessionManager, error) {
	var sessions mcp.SessionManager = mcp.NewMemorySessionManager()
	if cfg.Server.SessionKey != "" {
		key, err := seal.ParseKey(cfg.Server.SessionKey)
		if err != nil {
			return nil, nil, err
		}
		if sessions, err = mcp.NewSignedSessionManager(key, cfg.Server.SessionTTL); err != nil {
			return nil, nil, err
		}
	}

	opts := []mcp.ServerOption{
		mcp.WithLogger(logger),
		mcp.WithSessionManager(sessions),
		mcp.WithInstructions(instructions),
	}
	if cfg.Server.Token != "" {
		opts = append(opts, mcp.WithBearerToken(cfg.Server.Token))
	}
	server := mcp.NewServer(cfg.Server.Name, version, opts...)
	mcp.RegisterTOONTools(server, tools)
	return server, sessions, nil
}

func serve(ctx context.Context, cfg *config.Config, tools mcp.ToolsConfig, logger *slog.Logger) error {
	server, sessions, err := newServer(cfg, tools, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, server)
	var handler http.Handler = mux
	if cfg.Server.H2C {
		handler = pool.H2CHandler(handler)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	go func() {
		ticker := time.NewTicker(sessionSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sessions.CleanupExpiredSessions(ctx, cfg.Server.SessionTTL); err != nil {
					logger.Warn("session cleanup failed", "error", err)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving MCP",
			"listen", cfg.Server.Listen,
			"path", cfg.Server.Path,
			"h2c", cfg.Server.H2C,
			"auth", cfg.Server.Token != "",
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
