// Package main is the fsyncer CLI: a single binary exposing the
// server/client/journal/checksum/control subcommands described in
// spec.md §6, built with the same cobra/viper wiring the teacher's
// cmd_run.go uses for matchlock's own subcommands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "fsyncer",
	Short:         "Filesystem replication daemon: mirror a directory tree to many clients",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serverCmd, clientCmd, journalCmd, checksumCmd, controlCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fsyncer:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to one of the exit codes spec.md §6 defines:
// 0 success, 1 config error, 2 connection/handshake failure, 3 runtime
// error. A plain cobra usage/arg error (no sentinel match) also counts
// as a config error.
func exitCodeFor(err error) int {
	var ce *exitCodeError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case errors.Is(err, ErrHandshake), errors.Is(err, ErrConnect):
		return 2
	case errors.Is(err, ErrRuntime):
		return 3
	default:
		return 1
	}
}
