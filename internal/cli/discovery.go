package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"
)

// Config holds configuration for CLI discovery.
type Config struct {
	// CLIPath is an explicit CLI path that skips PATH search.
	// If empty, discovery will search PATH and common locations.
	CLIPath string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the Copilot CLI binary.
type Discoverer interface {
	// Discover locates the Copilot CLI binary.
	// Returns the path to the CLI binary or an error.
	Discover(ctx context.Context) (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new CLI discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the Copilot CLI binary.
func (d *discoverer) Discover(_ context.Context) (string, error) {
	d.log.Debug("Discovering Copilot CLI binary")

	// If explicit path provided, use it and only it. A .js path is fine
	// here: the invocation builder routes it through node.
	if d.cfg.CLIPath != "" {
		d.log.Debug("Using explicit CLI path", "cli_path", d.cfg.CLIPath)

		if _, err := os.Stat(d.cfg.CLIPath); err == nil {
			return d.cfg.CLIPath, nil
		}

		d.log.Debug("Explicit CLI path not found", "cli_path", d.cfg.CLIPath)

		return "", &errors.CLINotFoundError{SearchedPaths: []string{d.cfg.CLIPath}}
	}

	searchedPaths := make([]string, 0, 4)

	d.log.Debug("Searching for 'copilot' in PATH")

	if path, err := exec.LookPath("copilot"); err == nil {
		d.log.Debug("Found 'copilot' in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	commonPaths := []string{
		"/usr/local/bin/copilot",
		"/usr/bin/copilot",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(homeDir, ".local/bin/copilot"))
	}

	for _, path := range commonPaths {
		searchedPaths = append(searchedPaths, path)
		d.log.Debug("Checking common path", "path", path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found CLI at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("Copilot CLI not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.CLINotFoundError{SearchedPaths: searchedPaths}
}
