// Package cli implements the poolctl commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/app"
	"github.com/kailas-cloud/thepool/internal/config"
	logpkg "github.com/kailas-cloud/thepool/internal/logger"
	"github.com/kailas-cloud/thepool/internal/version"
)

// globalFlags are shared by every command that talks to storage.
type globalFlags struct {
	env        string
	configPath string
	logLevel   string
}

// NewRootCmd builds poolctl with all subcommands attached.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "poolctl",
		Short: "Operate the pool profile search service",
		Long: `poolctl runs the pool search API and the maintenance tasks around it:
seeding profiles, (re)building embeddings and trying searches from the terminal.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.env, "env", "e", config.GetEnv(), "Environment, selects config/<env>.yaml")
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (overrides --env)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override")

	root.AddCommand(newServeCmd(g))
	root.AddCommand(newSearchCmd(g))
	root.AddCommand(newReindexCmd(g))
	root.AddCommand(newSeedCmd(g))
	root.AddCommand(newVersionCmd())
	return root
}

func (g *globalFlags) load() (config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load(g.env)
}

// bootstrap loads config, builds the logger and wires the app.
// CLI commands log at warn unless overridden so their stdout stays readable.
func (g *globalFlags) bootstrap(ctx context.Context, defaultLevel string) (*app.App, *zap.Logger, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := g.logLevel
	if level == "" {
		level = defaultLevel
	}
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(g.env, level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}
