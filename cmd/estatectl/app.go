package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"estatehub/gateway/internal/auth"
	"estatehub/gateway/internal/upstream"
)

const (
	defaultTimeout  = 15 * time.Second
	mintedTokenTTL  = time.Hour
	errNoUpstream   = "--upstream (or UPSTREAM_BASE_URL) is required"
	errNoCredential = "either --token or --user with --secret is required"
)

// cliApp is the state shared by every subcommand.
type cliApp struct {
	upstreamURL string
	token       string
	userID      string
	secret      string
	timeout     time.Duration
	pageSize    int
	verbose     bool

	logger *zap.Logger
	client *upstream.Client
}

func (a *cliApp) init(cmd *cobra.Command) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if a.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	if a.upstreamURL != "" {
		a.client = upstream.NewClient(upstream.Options{
			BaseURL:  a.upstreamURL,
			Timeout:  a.timeout,
			PageSize: a.pageSize,
		})
	}
	return nil
}

func (a *cliApp) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// upstreamContext returns ctx authorized for upstream calls.
func (a *cliApp) upstreamContext(ctx context.Context) (context.Context, error) {
	if a.client == nil {
		return nil, errors.New(errNoUpstream)
	}
	tok := a.token
	if tok == "" {
		if a.userID == "" || a.secret == "" {
			return nil, errors.New(errNoCredential)
		}
		var err error
		if tok, err = auth.GenerateJWT(a.userID, a.secret, mintedTokenTTL); err != nil {
			return nil, err
		}
	}
	return upstream.WithToken(ctx, tok), nil
}

// printYAML writes v to the command's output.
func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return enc.Close()
}

// fileOpener serves photo keys as paths relative to a form file.
type fileOpener struct {
	dir string
}

func (o fileOpener) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p := key
	if !filepath.IsAbs(p) {
		p = filepath.Join(o.dir, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo %s: %w", key, err)
	}
	return f, nil
}
