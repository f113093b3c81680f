package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-presence/domain"
	"chat-presence/internal"
	"chat-presence/observability"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"chat-presence/transport/ws"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so that defers execute before the process
// exits and the wiring stays testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Engine: registries, transport, router
	monitoring := observability.NewMonitoringManager(logger)
	presence := runtime.NewPresenceRegistry()
	rooms := runtime.NewRoomRegistry()

	server := ws.NewServer(logger, ws.Options{
		ReadLimit:      config.ReadLimitBytes,
		PongTimeout:    config.PongTimeout,
		WriteTimeout:   config.WriteTimeout,
		PingInterval:   config.PingInterval,
		SendQueueSize:  config.SendQueueSize,
		AllowedOrigins: config.AllowedOrigins,
	}, monitoring)

	router := runtime.NewRouter(logger, presence, rooms, server, monitoring, config.EventBufferSize)

	// Read-only presence view for the synchronous CRUD collaborators and
	// the debug inspect page.
	presenceView := services.NewPresenceService(presence, rooms)
	internal.StartDebugServer(ctx, logger, config.DebugPort, "/inspect", inspectRows(presenceView), monitoring.AsMap)

	// 3. Background workers
	go monitoring.Listen(ctx)

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(router, workers.NewHeartbeatWorker(logger, config.HeartbeatInterval, monitoring))
	go supervisor.Run(ctx)

	// 4. HTTP surface
	mux := http.NewServeMux()
	mux.Handle("/ws", server.Handler(router))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	logger.Info("Presence engine listening", "addr", httpServer.Addr, "debug_port", config.DebugPort)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	}

	// 5. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "err", err)
	}
	server.Shutdown()
	supervisor.Stop()

	return exitOK, nil
}

// inspectRows snapshots both registries for the debug inspect page.
func inspectRows(view services.IPresenceService) internal.RowProvider {
	return func() []internal.InspectRow {
		var rows []internal.InspectRow
		for _, user := range view.ActiveUserIDs() {
			rows = append(rows, internal.InspectRow{
				Kind:   "presence",
				Key:    string(user),
				Detail: fmt.Sprintf("%d connection(s)", len(view.ConnectionsOf(user))),
			})
		}
		for _, room := range view.RoomIDs() {
			members := lo.Map(view.RoomMemberIDs(room), func(user domain.UserID, _ int) string { return string(user) })
			rows = append(rows, internal.InspectRow{
				Kind:   "room",
				Key:    string(room),
				Detail: fmt.Sprintf("members: %v", members),
			})
		}
		return rows
	}
}
