package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convtrainer/internal/auth"
	"convtrainer/internal/config"
	"convtrainer/internal/hub"
	"convtrainer/internal/httpapi"
	"convtrainer/internal/leaderboard"
	"convtrainer/internal/locks"
	"convtrainer/internal/registry"
	"convtrainer/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// serve wires config -> store -> registry -> services -> router -> listener,
// the generalization of cmd/server/server.go's setupServer plus
// config.InitializeServices' startup sequence (DB connect, Redis connect,
// orphaned-lock sweep).
func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(store.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		Driver:   cfg.Database.Driver,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	gormStore, err := store.NewGormStore(db)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lockManager := locks.NewManager(redisClient)
	if cleaned, err := lockManager.CleanupOrphanedLocks(ctx); err != nil {
		log.Printf("[STARTUP] orphaned lock sweep failed: %v", err)
	} else if cleaned > 0 {
		log.Printf("[STARTUP] cleaned %d orphaned locks", cleaned)
	}

	reg := registry.New()
	authService := auth.NewService([]byte(cfg.SessionSigningKey), cfg.SessionCookieName, gormStore.GameSessions())
	leaderboardService := leaderboard.NewService(gormStore)
	wsHub := hub.New()

	server := httpapi.NewServer(cfg, reg, authService, leaderboardService, wsHub, lockManager)
	router := server.Router()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	stopSweep := startIdleSweeper(reg, cfg.RoomIdleTTL)
	defer close(stopSweep)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[STARTUP] listening on %s (env=%s)", cfg.ListenAddr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[SHUTDOWN] received %s, draining connections", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startIdleSweeper periodically evicts ended Rooms past the 60s retention
// window, and Rooms of any status idle past ROOM_IDLE_TTL, from the
// Registry (spec §6.4).
func startIdleSweeper(reg *registry.Registry, idleTTL time.Duration) chan struct{} {
	stop := make(chan struct{})
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now()
				removed := reg.SweepIdleRooms(now.Add(-60*time.Second), now.Add(-idleTTL))
				if len(removed) > 0 {
					log.Printf("[SWEEP] removed %d idle rooms", len(removed))
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}
