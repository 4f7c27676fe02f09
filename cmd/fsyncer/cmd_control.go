package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bahusvel/fsyncer/pkg/wire"
)

var controlCmd = &cobra.Command{
	Use:   "control <host>",
	Short: "Cork or uncork a running fsyncer server",
	Long: `control connects to host as a CONTROL-mode client (spec.md §4.3's
control clients never park on the cork wait) and sends a single Cork or
Uncork message, the operator-facing half of the cork/uncork quiescence
fence used for consistent snapshots and the rsync bootstrap.`,
	Args: cobra.ExactArgs(1),
	RunE: runControl,
}

func init() {
	controlCmd.Flags().Int("port", 2323, "Server port")
	controlCmd.Flags().Bool("cork", false, "Cork the server")
	controlCmd.Flags().Bool("uncork", false, "Uncork the server")

	viper.BindPFlag("control.port", controlCmd.Flags().Lookup("port"))
	viper.BindPFlag("control.cork", controlCmd.Flags().Lookup("cork"))
	viper.BindPFlag("control.uncork", controlCmd.Flags().Lookup("uncork"))
}

func runControl(cmd *cobra.Command, args []string) error {
	cork := viper.GetBool("control.cork")
	uncork := viper.GetBool("control.uncork")
	if cork == uncork {
		return withExitCode(1, fmt.Errorf("%w: exactly one of --cork or --uncork is required", ErrConfig))
	}

	addr := fmt.Sprintf("%s:%d", args[0], viper.GetInt("control.port"))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return withExitCode(2, fmt.Errorf("%w: dialing %s: %v", ErrConnect, addr, err))
	}
	defer conn.Close()

	if err := wire.WriteFrame(conn, wire.InitMsg{Mode: wire.ModeControl}); err != nil {
		return withExitCode(2, fmt.Errorf("%w: sending InitMsg: %v", ErrHandshake, err))
	}

	var msg wire.Msg
	if cork {
		msg = wire.Cork{Tid: 0}
	} else {
		msg = wire.Uncork{}
	}
	if err := wire.WriteFrame(conn, msg); err != nil {
		return withExitCode(3, fmt.Errorf("%w: sending control message: %v", ErrRuntime, err))
	}

	if cork {
		fmt.Println("fsyncer: corked")
	} else {
		fmt.Println("fsyncer: uncorked")
	}
	return nil
}
