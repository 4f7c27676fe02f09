package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bahusvel/fsyncer/pkg/mdhash"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum <mount-path>",
	Short: "Print the metadata hash of a directory tree",
	Long: `checksum walks mount-path and prints the stable metadata hash
described in spec.md §4.7, the same value exchanged in InitMsg.DstHash
during the server/client handshake.`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksum,
}

func runChecksum(cmd *cobra.Command, args []string) error {
	hash, err := mdhash.Hash(args[0])
	if err != nil {
		return withExitCode(3, fmt.Errorf("%w: hashing %q: %v", ErrRuntime, args[0], err))
	}
	fmt.Printf("%016x\n", hash)
	return nil
}
