package cli

import (
	"context"
	"pippin/internal/bootstrap"
	"pippin/internal/mcp"

	"github.com/spf13/cobra"
)

func (c *CLI) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the automation verbs as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.started = true

			return c.run(cmd.Context(), c.overrides, func(ctx context.Context, rt *bootstrap.Runtime) error {
				server := mcp.NewServer(mcp.Params{
					Service: rt.Service,
					Logger:  rt.Logger,
					Version: Version,
				})

				return server.Serve(ctx, c.stdin, c.stdout)
			})
		},
	}
}
