package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/pkg/resolver"
	"github.com/goliatone/go-treads/pkg/response"
)

type renderFlags struct {
	agent       string
	payload     string
	prompt      string
	printConfig bool
	offline     bool
}

func newRenderCommand(a *app) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an agent payload to an HTML fragment",
		Long: `Render an agent payload to an HTML fragment.

Templates are looked up on the configured MCP server (--mcp-url, the config
file or TREADS_MCP_URL) before the built-in registry. Use --offline to render
with built-in templates only.`,
		Example: `  treads render --agent crm --payload response.json --prompt "list customers"
  cat response.json | treads render --offline --payload -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if flags.printConfig {
				out, err := cfg.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if strings.TrimSpace(flags.payload) == "" {
				return fmt.Errorf("render: --payload is required")
			}

			logger, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			raw, err := readPayload(cmd.InOrStdin(), flags.payload)
			if err != nil {
				return err
			}
			payload, err := response.Decode(raw)
			if err != nil {
				logger.Warn("malformed payload, rendering error fragment", zap.Error(err))
				payload = response.ErrorPayload("The agent response could not be parsed")
			}

			prompt := flags.prompt
			if prompt == "" && flags.payload != "-" && a.isTerminal() {
				prompt, err = a.prompter.Input(ctx, "Prompt")
				if err != nil {
					return err
				}
			}

			rt, err := buildRuntime(cfg, logger, !flags.offline)
			if err != nil {
				return err
			}
			result := rt.resolver.Respond(ctx, resolver.NewRequest(flags.agent, payload, prompt))
			logger.Debug("rendered", zap.Stringer("stage", result.Stage), zap.String("uri", result.URI))

			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.HTML)
			return err
		},
	}

	cmd.Flags().StringVar(&flags.agent, "agent", resolver.AppScope, "agent name")
	cmd.Flags().StringVar(&flags.payload, "payload", "", `payload JSON file, or "-" for stdin`)
	cmd.Flags().StringVar(&flags.prompt, "prompt", "", "prompt that produced the payload")
	cmd.Flags().BoolVar(&flags.offline, "offline", false, "render with built-in templates only, skipping MCP lookups")
	cmd.Flags().BoolVar(&flags.printConfig, "print-config", false, "print the resolved configuration as YAML and exit")
	return cmd
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("render: read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: read payload: %w", err)
	}
	return data, nil
}
