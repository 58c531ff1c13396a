// Package cli wires the treads commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/goliatone/go-treads/internal/config"
	"github.com/goliatone/go-treads/internal/logging"
)

// Option configures the command tree.
type Option func(*app)

// WithPrompter replaces the interactive prompt.
func WithPrompter(p Prompter) Option {
	return func(a *app) {
		if p != nil {
			a.prompter = p
		}
	}
}

// WithTerminalCheck overrides the interactive terminal detection.
func WithTerminalCheck(fn func() bool) Option {
	return func(a *app) {
		if fn != nil {
			a.isTerminal = fn
		}
	}
}

type app struct {
	v          *viper.Viper
	cfgFile    string
	prompter   Prompter
	isTerminal func() bool
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Each call owns its own viper
// instance so commands can be built repeatedly in tests.
func NewRootCommand(options ...Option) *cobra.Command {
	a := &app{
		v:        viper.New(),
		prompter: surveyPrompter{},
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}

	root := &cobra.Command{
		Use:   "treads",
		Short: "Render agent responses into HTML fragments",
		Long: `treads turns agent JSON responses into HTML chat fragments.

Templates are resolved from the agent's MCP UI resources first, then the
application's, then the built-in set, and finally a generic catch-all.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./treads.yaml or $HOME/.treads/treads.yaml)")
	flags.String("mcp-url", "", "MCP server endpoint")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json or console)")
	_ = a.v.BindPFlag("mcp.url", flags.Lookup("mcp-url"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(newServeCommand(a), newRenderCommand(a))
	return root
}

func (a *app) loadConfig() (config.Config, error) {
	return config.Load(config.WithViper(a.v), config.WithFile(a.cfgFile))
}

func (a *app) logger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("cli: build logger: %w", err)
	}
	return logger, nil
}
