package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/config"
	logpkg "github.com/kailas-cloud/playsearch/internal/logger"
	"github.com/kailas-cloud/playsearch/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the flags shared by every subcommand.
type globals struct {
	env        string
	configPath string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "playsearch",
		Short:         "Search over assigned training content",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.env, "env", config.GetEnv(), "environment (local, dev, prod); selects config/<env>.yaml")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "explicit config file path, overrides --env lookup")

	root.AddCommand(
		newServeCmd(g),
		newCatalogCmd(g),
		newIndexCmd(g),
		newTokenCmd(g),
	)
	return root
}

// load reads the config and builds the logger for a subcommand.
func (g *globals) load() (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load(g.env)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(g.env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
