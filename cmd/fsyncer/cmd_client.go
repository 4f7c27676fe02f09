package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bahusvel/fsyncer/pkg/replclient"
	"github.com/bahusvel/fsyncer/pkg/wire"
)

var clientCmd = &cobra.Command{
	Use:   "client <backing-path> <host>",
	Short: "Connect to a fsyncer server and replay its VFSCalls locally",
	Long: `client connects to host, completes the InitMsg handshake under the
requested delivery mode, and runs the replay loop described in spec.md
§4.4 against backing-path until the connection is lost.`,
	Args: cobra.ExactArgs(2),
	RunE: runClient,
}

func init() {
	clientCmd.Flags().Int("port", 2323, "Server port")
	clientCmd.Flags().Int("buffer", 32, "recv socket buffer in MiB")
	clientCmd.Flags().String("sync", "async", "Delivery mode: sync, async, semi, flush")
	clientCmd.Flags().String("stream-compressor", "none", "Stream compressor: lz4, zstd, none")
	clientCmd.Flags().String("rt-compressor", "none", "Block compressor: zstd, chunked, none")
	clientCmd.Flags().Bool("dont-check", false, "Skip the metadata-hash handshake check")
	clientCmd.Flags().Uint64("iolimit-bps", 0, "Per-connection IO rate limit in bytes/sec (0 = unlimited)")

	viper.BindPFlag("client.port", clientCmd.Flags().Lookup("port"))
	viper.BindPFlag("client.buffer", clientCmd.Flags().Lookup("buffer"))
	viper.BindPFlag("client.sync", clientCmd.Flags().Lookup("sync"))
	viper.BindPFlag("client.stream-compressor", clientCmd.Flags().Lookup("stream-compressor"))
	viper.BindPFlag("client.rt-compressor", clientCmd.Flags().Lookup("rt-compressor"))
	viper.BindPFlag("client.dont-check", clientCmd.Flags().Lookup("dont-check"))
	viper.BindPFlag("client.iolimit-bps", clientCmd.Flags().Lookup("iolimit-bps"))
}

func modeFromFlag(s string) (wire.Mode, error) {
	switch s {
	case "sync":
		return wire.ModeSync, nil
	case "async":
		return wire.ModeAsync, nil
	case "semi", "semisync":
		return wire.ModeSemisync, nil
	case "flush", "flushsync":
		return wire.ModeFlushsync, nil
	default:
		return 0, fmt.Errorf("unknown --sync mode %q (want sync, async, semi, or flush)", s)
	}
}

func compressBitsFromFlags(stream, rt string) (wire.CompressBit, error) {
	var bits wire.CompressBit
	switch stream {
	case "lz4":
		bits |= wire.CompressStreamLZ4
	case "zstd":
		bits |= wire.CompressStreamZSTD
	case "none", "":
	default:
		return 0, fmt.Errorf("unknown --stream-compressor %q", stream)
	}
	switch rt {
	case "zstd":
		bits |= wire.CompressRTDsscZSTD
	case "chunked":
		bits |= wire.CompressRTDsscChunked
	case "none", "":
	default:
		return 0, fmt.Errorf("unknown --rt-compressor %q", rt)
	}
	return bits, nil
}

func runClient(cmd *cobra.Command, args []string) error {
	backingPath, host := args[0], args[1]
	if info, err := os.Stat(backingPath); err != nil || !info.IsDir() {
		return withExitCode(1, fmt.Errorf("%w: backing-path %q: %v", ErrConfig, backingPath, err))
	}

	mode, err := modeFromFlag(viper.GetString("client.sync"))
	if err != nil {
		return withExitCode(1, fmt.Errorf("%w: %v", ErrConfig, err))
	}
	bits, err := compressBitsFromFlags(viper.GetString("client.stream-compressor"), viper.GetString("client.rt-compressor"))
	if err != nil {
		return withExitCode(1, fmt.Errorf("%w: %v", ErrConfig, err))
	}

	cfg := replclient.Config{
		Addr:            fmt.Sprintf("%s:%d", host, viper.GetInt("client.port")),
		Mode:            mode,
		MountPath:       backingPath,
		DontCheck:       viper.GetBool("client.dont-check"),
		Compress:        bits,
		IOLimitBps:      viper.GetUint64("client.iolimit-bps"),
		RecvBufferBytes: viper.GetInt("client.buffer") * 1024 * 1024,
		MaxFrameBytes:   uint32(viper.GetInt("client.buffer")) * 1024 * 1024,
	}

	dispatcher, err := newDispatcher(backingPath)
	if err != nil {
		return withExitCode(1, fmt.Errorf("%w: %v", ErrConfig, err))
	}

	client, err := replclient.Connect(cfg, dispatcher)
	if err != nil {
		return withExitCode(2, fmt.Errorf("%w: %v", ErrConnect, err))
	}
	defer client.Close()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- client.Run() }()

	select {
	case <-sigc:
		client.Close()
		<-done
		return nil
	case err := <-done:
		if err != nil {
			fmt.Fprintln(os.Stderr, "fsyncer: client disconnected:", err)
		}
		return nil
	}
}
