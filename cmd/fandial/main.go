package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pdittrich/fandial/internal/controller"
	"github.com/pdittrich/fandial/internal/deck"
	"github.com/pdittrich/fandial/internal/launcher"
	"github.com/pdittrich/fandial/internal/platform/config"
	"github.com/pdittrich/fandial/internal/platform/logging"
	"github.com/pdittrich/fandial/internal/platform/version"
	"github.com/pdittrich/fandial/internal/server"
)

// hostFlags are the registration parameters the device host passes on the
// plugin's command line.
type hostFlags struct {
	port          string
	pluginUUID    string
	registerEvent string
	info          string
}

func parseHostFlags() hostFlags {
	var f hostFlags
	flag.StringVar(&f.port, "port", "", "websocket port assigned by the device host")
	flag.StringVar(&f.pluginUUID, "pluginUUID", "", "plugin identifier assigned by the device host")
	flag.StringVar(&f.registerEvent, "registerEvent", "registerPlugin", "registration event name")
	flag.StringVar(&f.info, "info", "", "host environment info (unused)")
	flag.Parse()
	return f
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(client *deck.Client) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, closing host connection")
		client.Close()
	}()
}

func main() {
	flags := parseHostFlags()
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Plugin starting", "env", cfg.AppEnv, "version", version.Version, "port", flags.port)

	if flags.port == "" || flags.pluginUUID == "" {
		slog.Error("Missing host registration flags, refusing to start")
		os.Exit(1)
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := deck.Dial(dialCtx, flags.port, flags.pluginUUID, flags.registerEvent)
	cancel()
	if err != nil {
		slog.Error("Failed to connect to device host", "error", err)
		os.Exit(1)
	}
	client.LogMessage(fmt.Sprintf("fandial %s (%s) connected", version.Version, version.Commit))

	clock := clockwork.NewRealClock()
	relauncher := launcher.New(launcher.Schtasks{}, cfg.RestartTaskName, cfg.RestartHelperScript)
	ctl := controller.New(client, relauncher, clock, cfg.ExecutableName, slog.Default())

	var srv *server.Server
	if cfg.DebugAddr != "" {
		srv = server.New(cfg.DebugAddr, ctl)
		go func() {
			slog.Info("Debug server starting", "addr", cfg.DebugAddr)
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Debug server error", "error", err)
			}
		}()
	}

	runGracefulShutdown(client)

	// The event channel closes when the host hangs up or Close is called.
	for ev := range client.Events() {
		ctl.HandleEvent(ev)
	}
	if err := client.Err(); err != nil {
		slog.Warn("Host connection closed", "error", err)
	}

	ctl.Stop()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Debug server shutdown error", "error", err)
		}
	}

	slog.Info("Plugin stopped")
}
