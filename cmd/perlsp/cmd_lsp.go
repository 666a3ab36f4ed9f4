package main

import (
	"github.com/dhamidi/perlsp/lsp"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	var websocket string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the Language Server Protocol server.

The server speaks over stdio unless --websocket names an address to listen
on. Logging goes to stderr or to the file given by --log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lsp.NewServer(version)
			if websocket != "" {
				return server.RunWebSocket(websocket)
			}
			return server.RunStdio()
		},
	}

	cmd.Flags().StringVar(&websocket, "websocket", "", "listen for WebSocket connections on this address instead of stdio")

	return cmd
}
