package main

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newServeCommand returns the hidden "serve" subcommand: a minimal TCP
// server used only as a fixture for the greet-server demo scenario. It
// listens on an ephemeral port, announces it on stdout in the form the
// scenario's line awaiter expects, greets its first connection with
// "Hello <uuid>", and exits once that connection closes.
func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "serve",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	return cmd
}

func serve() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	fmt.Printf("listening on port: %d\n", port)

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	_, err = fmt.Fprintf(conn, "Hello %s\n", uuid.NewString())
	return err
}
