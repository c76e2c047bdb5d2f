package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/landbot/internal/mcpserver"
	"github.com/spf13/cobra"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the knowledge base as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			a, err := bootstrap(cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := mcpserver.Run(ctx, mcpserver.New(a.chat, a.rag)); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
