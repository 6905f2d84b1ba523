package main

import (
	"context"
	"log"
	"time"

	"github.com/l0ubard/wearemeta-chat/internal/auth"
	"github.com/l0ubard/wearemeta-chat/internal/config"
	"github.com/l0ubard/wearemeta-chat/internal/server"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := []server.Option{
		server.WithStore(newStore(cfg)),
		server.WithPingInterval(cfg.PingInterval),
		server.WithLegacyJoin(cfg.AllowLegacyJoin),
	}

	srv := server.New(cfg.Addr(), opts...)
	log.Printf("Server is running on port %s", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// newStore picks the credential store backend: Redis when configured,
// then SQLite, falling back to in-memory. An unreachable backend is
// fatal at startup.
func newStore(cfg config.Config) auth.Store {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("Using Redis credential store at %s", cfg.RedisAddr)
		return auth.NewRedisStore(rdb)
	}

	if cfg.SQLitePath != "" {
		store, err := auth.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open SQLite store at %s: %v", cfg.SQLitePath, err)
		}
		log.Printf("Using SQLite credential store at %s", cfg.SQLitePath)
		return store
	}

	log.Print("No credential store configured, using in-memory store")
	return auth.NewMemoryStore()
}
