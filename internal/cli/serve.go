package cli

import (
	"github.com/spf13/cobra"

	"github.com/topdraw/topdraw/pkg/observability"
	"github.com/topdraw/topdraw/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render service",
		Long: `Run the HTTP render service.

Endpoints:
  GET  /healthz   liveness probe
  GET  /version   build information
  POST /render    render a script; the body is a JSON render request`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && cfg.Server.Addr != "" {
				addr = cfg.Server.Addr
			}

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			hooks := observability.NewLogHooks(c.Logger)
			observability.SetRenderHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			opts := []server.Option{}
			if cfg.Server.MaxBodyBytes > 0 {
				opts = append(opts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
			}
			if cfg.Render.Timeout.Duration > 0 {
				opts = append(opts, server.WithTimeout(cfg.Render.Timeout.Duration))
			}

			return server.New(runner, c.Logger, opts...).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}
