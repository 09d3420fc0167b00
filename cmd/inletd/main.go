package main

import (
	"fmt"
	"os"

	"github.com/inlet-labs/inlet/internal/cli"
	"github.com/inlet-labs/inlet/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inletd",
		Short: "Inlet daemon and CLI",
		Long:  "Inlet daemon for running the capture API server and managing knowledge items",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ItemCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
