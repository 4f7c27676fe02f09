package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bahusvel/fsyncer/pkg/adapter"
	"github.com/bahusvel/fsyncer/pkg/bilog"
	"github.com/bahusvel/fsyncer/pkg/journal"
	"github.com/bahusvel/fsyncer/pkg/replserver"
)

var serverCmd = &cobra.Command{
	Use:   "server <mount-path>",
	Short: "Mount a replicated filesystem and serve it to connected clients",
	Long: `server mounts mount-path via the platform VFS adapter (FUSE on
POSIX), backed by --backing-store, and fans every mutating call out to
clients that connect on --port under the replication fabric described in
spec.md §4.3.`,
	Args: cobra.ExactArgs(1),
	RunE: runServer,
}

func init() {
	serverCmd.Flags().String("backing-store", "", "Directory backing the mount (required)")
	serverCmd.Flags().Int("port", 2323, "TCP port to listen on")
	serverCmd.Flags().Int("buffer", 32, "Inline message buffer ceiling in MiB")
	serverCmd.Flags().Bool("dont-check", false, "Skip the metadata-hash handshake check")
	serverCmd.Flags().String("journal", "off", "Journal mode: bilog or off")
	serverCmd.Flags().String("journal-path", "", "Journal file path (required when --journal=bilog)")
	serverCmd.Flags().String("journal-size", "64MB", "Journal ring size (human, e.g. 256MB)")
	serverCmd.Flags().Bool("journal-sync", false, "fsync the journal on every append")
	serverCmd.Flags().Duration("flush-interval", time.Second, "ASYNC client flush interval")
	serverCmd.MarkFlagRequired("backing-store")

	viper.BindPFlag("server.backing-store", serverCmd.Flags().Lookup("backing-store"))
	viper.BindPFlag("server.port", serverCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.buffer", serverCmd.Flags().Lookup("buffer"))
	viper.BindPFlag("server.dont-check", serverCmd.Flags().Lookup("dont-check"))
	viper.BindPFlag("server.journal", serverCmd.Flags().Lookup("journal"))
	viper.BindPFlag("server.journal-path", serverCmd.Flags().Lookup("journal-path"))
	viper.BindPFlag("server.journal-size", serverCmd.Flags().Lookup("journal-size"))
	viper.BindPFlag("server.journal-sync", serverCmd.Flags().Lookup("journal-sync"))
	viper.BindPFlag("server.flush-interval", serverCmd.Flags().Lookup("flush-interval"))
}

func runServer(cmd *cobra.Command, args []string) error {
	mountPath := args[0]
	backingStore := viper.GetString("server.backing-store")
	if backingStore == "" {
		return withExitCode(1, fmt.Errorf("%w: --backing-store is required", ErrConfig))
	}
	if info, err := os.Stat(backingStore); err != nil || !info.IsDir() {
		return withExitCode(1, fmt.Errorf("%w: --backing-store %q: %v", ErrConfig, backingStore, err))
	}

	journalMode := viper.GetString("server.journal")
	var bilogEngine *bilog.Engine
	var journalStore *journal.Store
	switch journalMode {
	case "off":
	case "bilog":
		path := viper.GetString("server.journal-path")
		if path == "" {
			return withExitCode(1, fmt.Errorf("%w: --journal-path is required when --journal=bilog", ErrConfig))
		}
		size, err := humanize.ParseBytes(viper.GetString("server.journal-size"))
		if err != nil {
			return withExitCode(1, fmt.Errorf("%w: --journal-size: %v", ErrConfig, err))
		}
		syncEach := viper.GetBool("server.journal-sync")
		var store *journal.Store
		if _, statErr := os.Stat(path); statErr == nil {
			store, err = journal.Open(path, syncEach)
		} else {
			store, err = journal.Create(path, size, journal.TypeBilog, syncEach)
		}
		if err != nil {
			return withExitCode(3, fmt.Errorf("%w: opening journal %q: %v", ErrRuntime, path, err))
		}
		journalStore = store
		bilogEngine = bilog.NewEngine(backingStore, bilog.NewFileStore(backingStore))
	default:
		return withExitCode(1, fmt.Errorf("%w: --journal must be bilog or off, got %q", ErrConfig, journalMode))
	}

	server := replserver.NewServer(replserver.Config{
		BackingRoot:   backingStore,
		DontCheck:     viper.GetBool("server.dont-check"),
		FlushInterval: viper.GetDuration("server.flush-interval"),
		MaxFrameBytes: uint32(viper.GetInt("server.buffer")) * 1024 * 1024,
	})

	engine := adapter.NewEngine(bilogEngine, journalStore, server)

	port := viper.GetInt("server.port")
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return withExitCode(2, fmt.Errorf("%w: listening on port %d: %v", ErrConnect, port, err))
	}
	defer ln.Close()

	go func() {
		if err := server.Serve(ln); err != nil {
			fmt.Fprintln(os.Stderr, "fsyncer: replication server stopped:", err)
		}
	}()

	unmount, err := mountAdapter(mountPath, backingStore, engine)
	if err != nil {
		return withExitCode(3, fmt.Errorf("%w: mounting %q: %v", ErrRuntime, mountPath, err))
	}
	defer unmount()

	fmt.Printf("fsyncer: serving %s (backing %s) on port %d, journal=%s\n", mountPath, backingStore, port, journalMode)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc

	// Graceful shutdown: cork drains every in-flight client op before the
	// mount (deferred above) and listener (deferred above) are torn down,
	// per spec.md §5's "graceful shutdown corks, drains, then disconnects".
	_ = server.Cork()
	engine.Shutdown()
	if journalStore != nil {
		_ = journalStore.Close()
	}
	return nil
}
