package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cyrogem/nodedialogue/internal/config"
	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/buildinfo"
	"github.com/cyrogem/nodedialogue/pkg/cache"
	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/pipeline"
	"github.com/cyrogem/nodedialogue/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "nodedialogue"

	// cachePrefix scopes render artifacts in a shared Redis.
	cachePrefix = "nodedialogue:cache:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "nodedialogue edits branching dialogue graphs",
		Long:          `nodedialogue builds branching conversations from Start, Dialogue, Option and End nodes, and saves them as engine-ready .asset files.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/nodedialogue/config.toml)")

	// Files
	root.AddCommand(c.newCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.editCommand())

	// Store
	root.AddCommand(c.saveAsCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.deleteCommand())
	root.AddCommand(c.serveCommand())

	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Config, Store and Runner Factories
// =============================================================================

// loadConfig loads the settings once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// openStore opens the configured dialogue store.
func (c *CLI) openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("opened store", "backend", s.Backend().Kind())
	return s, nil
}

// newRunner creates a pipeline runner for CLI use. Keys are scoped to the
// build version since DOT output changes between releases.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	rc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Version+":")
	return pipeline.NewRunner(rc, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.CacheRedis {
		rc, err := cache.DialRedisCache(ctx, cfg.RedisAddr, cachePrefix)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	fc, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		c.Logger.Warn("render cache disabled", "dir", cfg.CacheDir, "error", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// File Helpers
// =============================================================================

// writeGraph writes g to path in the format implied by its extension, or to
// w as JSON when path is empty or "-".
func writeGraph(w io.Writer, path string, g *dialogue.Graph, opts asset.Options) error {
	if path == "" || path == "-" {
		return asset.Encode(w, g, asset.FormatJSON, opts)
	}
	return asset.WriteFile(path, g, opts)
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
