package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/cuemby/cradle/pkg/api"
	"github.com/cuemby/cradle/pkg/config"
	"github.com/cuemby/cradle/pkg/controlplane"
	"github.com/cuemby/cradle/pkg/log"
	"github.com/cuemby/cradle/pkg/metrics"
	"github.com/cuemby/cradle/pkg/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control plane server",
	Long: `serve starts the pre-warmed pool maintainer, health monitor, and
cleanup reaper background loops, and brings up the REST API for
requesting and inspecting workspaces.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("enable-pprof", false, "Expose pprof debug endpoints on the API server")
	serveCmd.Flags().String("containerd-socket", "", "Containerd socket path (overrides config)")
	serveCmd.Flags().Bool("memory-runtime", false, "Use an in-memory runtime instead of containerd (for local testing)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	pprofEnabled, _ := cmd.Flags().GetBool("enable-pprof")
	socketOverride, _ := cmd.Flags().GetString("containerd-socket")
	useMemoryRuntime, _ := cmd.Flags().GetBool("memory-runtime")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if socketOverride != "" {
		cfg.ContainerdSocket = socketOverride
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	var rt runtime.Runtime
	if useMemoryRuntime {
		rt = runtime.NewMemoryRuntime(cfg.Domain)
	} else {
		cdRuntime, err := runtime.NewContainerdRuntime(cfg.ContainerdSocket, cfg.WorkspaceImage, cfg.Domain)
		if err != nil {
			return fmt.Errorf("failed to connect to containerd: %w", err)
		}
		rt = cdRuntime
	}

	cp, err := controlplane.New(cfg, rt)
	if err != nil {
		return fmt.Errorf("failed to build control plane: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("runtime", false, "initializing")
	metrics.RegisterComponent("api", false, "initializing")

	cp.Start()

	server := api.New(cp.Assign, cp.Store, cp.Runtime, cp.Health, cp.Stats, cp.Broker)
	mux := server.Routes()
	if pprofEnabled {
		mux.Mount("/debug/pprof/", http.DefaultServeMux)
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("cradled listening on %s\n", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		log.Errorf("api server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), controlplane.DefaultShutdownGrace())
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("error during http shutdown: %v", err)
	}
	if err := cp.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("error during control plane shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
