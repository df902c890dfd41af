package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/protodo/core/cmd/protodo/commands"
)

var rootCmd = &cobra.Command{
	Use:   "protodo",
	Short: "ProTodo core server and tooling",
	Long:  "ProTodo core - offline-first task manager backend with local persistence, cache gateway and cloud sync",
}

func main() {
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
