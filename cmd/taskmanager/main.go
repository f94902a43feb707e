package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/config"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/handlers"
	"github.com/chepyr/go-task-manager/internal/service"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskmanager",
	Short: "taskmanager - task management API",
	// running without a subcommand starts the server
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the SQL schema or the mongo indexes and exit",
	RunE:  runMigrate,
}

var (
	envFileFlag     string
	skipMigrateFlag bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Env file to load before reading the environment")
	serveCmd.Flags().BoolVar(&skipMigrateFlag, "skip-migrate", false, "Do not create the schema on startup")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*config.Config, *db.Store, error) {
	cfg, err := config.Load(envFileFlag)
	if err != nil {
		return nil, nil, err
	}
	store, err := db.Open(ctx, cfg.StoreDriver, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Connected to %s store", cfg.StoreDriver)
	return cfg, store, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	log.Println("Migrations applied")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	if !skipMigrateFlag {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	handler := initHandlers(cfg, store)
	defer handler.RateLimiter.Stop()
	defer handler.WSHub.Close()

	server := initServer(cfg, handlers.NewRouter(handler, cfg.CORSOrigin))
	return startServer(server)
}

func initHandlers(cfg *config.Config, store *db.Store) *handlers.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	// register and login share one budget per client IP
	limiter := handlers.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	limiter.TrustProxy = cfg.TrustProxy
	return &handlers.Handler{
		Auth:          service.NewAuthService(store.Users, tokens),
		Tasks:         service.NewTaskService(store.Tasks),
		Tokens:        tokens,
		RateLimiter:   limiter,
		WSHub:         handlers.NewWSHub(),
		AllowedOrigin: cfg.CORSOrigin,
	}
}

func initServer(cfg *config.Config, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func startServer(server *http.Server) error {
	log.Printf("Starting server on %s", server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err := <-errCh:
		log.Printf("Server failed: %v", err)
		return err
	case <-quit:
	}
	log.Println("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
		return err
	}
	log.Println("Server stopped")
	return nil
}
