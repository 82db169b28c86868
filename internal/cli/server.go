package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeconnect/internal/app"
	"codeconnect/internal/config"
	"codeconnect/internal/infra/memory"
	pgblob "codeconnect/internal/infra/postgres"
	redisblob "codeconnect/internal/infra/redis"
	transport "codeconnect/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the platform server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	blobs, cleanup, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	auth, err := app.NewAuthService(ctx, blobs)
	if err != nil {
		return err
	}
	store, err := app.NewStoreService(ctx, blobs, auth,
		app.WithReplyDelay(config.Duration(cfg.Chat.ReplyDelay, 2*time.Second)))
	if err != nil {
		return err
	}
	defer store.Close()
	auth.OnLogout(store.CancelPendingReplies)

	wsHandler := transport.NewWSHandler(auth, store)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting codeconnect on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBlobStore picks the durable store from config: Postgres when a URL
// is set, otherwise Redis when an address is set, otherwise in-memory.
// Remote stores get a read-through cache so collection reads stay local.
func buildBlobStore(ctx context.Context, cfg config.Config) (app.BlobStore, func(), error) {
	cacheTTL := config.Duration(cfg.Cache.TTL, 10*time.Minute)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return memory.NewBlobCache(pgblob.NewBlobStore(pool), cacheTTL), pool.Close, nil
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanup := func() { _ = client.Close() }
		return memory.NewBlobCache(redisblob.NewBlobStore(client), cacheTTL), cleanup, nil
	}

	log.Println("no redis or postgres configured, state will not survive restarts")
	return memory.NewBlobStore(), func() {}, nil
}
