package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"chatrelay/internal/api"
	"chatrelay/internal/auth"
	"chatrelay/internal/config"
	"chatrelay/internal/database"
	"chatrelay/internal/hub"
	"chatrelay/internal/registry"
	"chatrelay/internal/rooms"
	"chatrelay/internal/websocket"
	pkgdatabase "chatrelay/pkg/database"
)

// Application wires the relay's components together and owns their
// lifecycles.
type Application struct {
	config     *config.Config
	dbManager  *database.Manager
	registry   *registry.Registry
	rooms      *rooms.Manager
	relayHub   *hub.Hub
	apiServer  *api.Server
	httpServer *http.Server
}

// NewApplication initializes every component in dependency order:
// Database -> Registry -> Rooms -> Hub -> API -> HTTP.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbConfig := &pkgdatabase.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
		MigrationsPath:  "migrations",
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	migrationManager := pkgdatabase.NewMigrationManager(dbManager.GetDB(), dbConfig.MigrationsPath)
	if err := migrationManager.ApplyMigrations(); err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	log.Println("Database migrations applied successfully")

	connRegistry := registry.NewRegistry()
	roomManager := rooms.NewManager()

	verifier := auth.NewVerifier([]byte(cfg.Auth.TokenSecret))

	relayHub := hub.NewHub(connRegistry, roomManager, dbManager, verifier, cfg.Database.Timeout)

	apiServer := api.NewServer(dbManager, connRegistry, roomManager)

	wsHandler := websocket.NewHandler(relayHub, cfg.WebSocket)

	mux := http.NewServeMux()
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		dbManager:  dbManager,
		registry:   connRegistry,
		rooms:      roomManager,
		relayHub:   relayHub,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start launches the hub before the HTTP listener so the relay is ready by
// the time the first client connects.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting chatrelay on %s", app.httpServer.Addr)

	if err := app.relayHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start relay hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.relayHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("chatrelay started successfully")
		return nil
	case <-ctx.Done():
		app.relayHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP -> Hub -> Database.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down chatrelay")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.relayHub.Stop(); err != nil {
		log.Printf("Relay hub shutdown error: %v", err)
	}

	if err := app.dbManager.Close(); err != nil {
		log.Printf("Database shutdown error: %v", err)
	}

	log.Printf("chatrelay shutdown complete")
	return nil
}

// GetAddr returns the address the HTTP server binds to.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
