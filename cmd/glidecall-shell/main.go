package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/glidecall/shell/internal/bridge"
	"github.com/glidecall/shell/internal/config"
	"github.com/glidecall/shell/internal/coordinator"
	"github.com/glidecall/shell/internal/logging"
	"github.com/glidecall/shell/internal/sources"
	"github.com/glidecall/shell/internal/window"
)

var (
	version = "0.1.0"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "glidecall-shell",
	Short: "Glidecall desktop shell",
	Long:  `Glidecall Shell - host-side window management and capture bridge for the Glidecall conferencing client`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the shell",
	Run: func(cmd *cobra.Command, args []string) {
		runShell()
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List capturable screens and windows",
	Run: func(cmd *cobra.Command, args []string) {
		listSources()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Glidecall Shell v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runShell() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Validate()

	logging.Init(cfg.LogFormat, cfg.LogLevel, nil)
	log := logging.L("main")
	log.Info("starting glidecall shell", "version", version)

	bus := bridge.NewBus()

	server := bridge.NewServer(bus, cfg.BridgeSocket)
	if err := server.Start(); err != nil {
		log.Error("bridge start failed", logging.KeyError, err)
		os.Exit(1)
	}
	defer server.Stop()

	wsServer := bridge.NewWSServer(bus, cfg.BridgeWSAddr)
	if err := wsServer.Start(); err != nil {
		log.Error("bridge ws start failed", logging.KeyError, err)
		os.Exit(1)
	}
	defer wsServer.Stop()

	coord := coordinator.New(bus, mainSurface{server}, coordinator.Options{
		Identity:            cfg.Identity,
		BundleID:            cfg.BundleID,
		TrackerPage:         cfg.TrackerPage,
		TrackerSize:         window.Size{Width: cfg.TrackerWidth, Height: cfg.TrackerHeight},
		TrackerBottomMargin: cfg.TrackerBottomMargin,
	}, coordinator.Deps{
		Factory:    window.NewFactory(),
		Enumerator: sources.New(),
	})
	defer coord.Teardown()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("shutting down")
}

// mainSurface adapts the bridge server's per-surface send/close hooks to
// the coordinator's view of the primary conferencing surface.
type mainSurface struct {
	server *bridge.Server
}

func (m mainSurface) Send(env bridge.Envelope) error {
	return m.server.SendTo(bridge.SurfaceMain, env)
}

func (m mainSurface) OnClosed(fn func()) {
	m.server.OnSurfaceClosed(bridge.SurfaceMain, fn)
}

func listSources() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogFormat, "warn", os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	list, err := sources.New().Sources(ctx, sources.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Enumeration failed: %v\n", err)
		os.Exit(1)
	}

	for _, src := range list {
		fmt.Printf("%-8s %-20s %s\n", src.Kind, src.ID, src.Name)
	}
}
