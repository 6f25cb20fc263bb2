package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/matrimony/internal/config"
	"github.com/vedran77/matrimony/internal/database"
	"github.com/vedran77/matrimony/internal/media"
	"github.com/vedran77/matrimony/internal/ratelimit"
	"github.com/vedran77/matrimony/internal/repository"
	"github.com/vedran77/matrimony/internal/repository/memory"
	postgresrepo "github.com/vedran77/matrimony/internal/repository/postgres"
	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/internal/transport/http/handlers"
	"github.com/vedran77/matrimony/internal/transport/ws"
	"github.com/vedran77/matrimony/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.EnvFile)
			if err != nil {
				return err
			}
			logger.Init(cfg.Env)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

type repos struct {
	users        repository.UserRepository
	photos       repository.PhotoRepository
	interactions repository.InteractionRepository
	matches      repository.MatchRepository
	messages     repository.MessageRepository
}

// openRepos returns the configured store and a func releasing it.
func openRepos(ctx context.Context, cfg *config.Config) (*repos, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &repos{
			users:        memory.NewUserRepo(store),
			photos:       memory.NewPhotoRepo(store),
			interactions: memory.NewInteractionRepo(store),
			matches:      memory.NewMatchRepo(store),
			messages:     memory.NewMessageRepo(store),
		}, func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Connected to database")

	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if len(applied) > 0 {
		logger.Info().Strs("versions", applied).Msg("migrations applied")
	}

	return &repos{
		users:        postgresrepo.NewUserRepo(pool),
		photos:       postgresrepo.NewPhotoRepo(pool),
		interactions: postgresrepo.NewInteractionRepo(pool),
		matches:      postgresrepo.NewMatchRepo(pool),
		messages:     postgresrepo.NewMessageRepo(pool),
	}, pool.Close, nil
}

func openMedia(ctx context.Context, cfg *config.Config) (media.Store, error) {
	if cfg.MediaDriver == config.MediaDriverS3 {
		return media.NewS3(ctx, cfg.AWSRegion, cfg.S3Bucket)
	}
	return media.NewStatic(cfg.MediaBaseURL), nil
}

// openLimiter prefers Redis so limits hold across instances, and keeps a
// local limiter for when Redis is down.
func openLimiter(cfg *config.Config) (ratelimit.Limiter, func(), error) {
	local := ratelimit.NewLocal(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute)
	if cfg.RedisURL == "" {
		return local, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	limiter := ratelimit.NewFallback(ratelimit.NewRedis(client, cfg.RateLimitPerMinute, time.Minute), local)
	return limiter, func() { client.Close() }, nil
}

// wsOriginPatterns turns allowed origins into the host patterns the
// WebSocket upgrade checks against.
func wsOriginPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			out = append(out, o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openRepos(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	mediaStore, err := openMedia(ctx, cfg)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := openLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// Services
	ledger := service.NewLedger(store.interactions, store.users)
	connections := service.NewConnectionService(ledger, store.interactions, store.matches, mediaStore)
	matches := service.NewMatchService(store.matches, connections, mediaStore)
	conversations := service.NewConversationService(store.messages, matches, mediaStore)
	profiles := service.NewProfileService(store.users, store.photos, store.interactions, ledger,
		connections, matches, conversations, mediaStore)
	auth := service.NewAuthService(store.users, cfg.JWTSecret, cfg.JWTTTL)

	// Realtime
	hub := ws.NewHub(matches)
	notifier := ws.NewHubNotifier(hub)
	connections.SetNotifier(notifier)
	conversations.SetNotifier(notifier)
	conversations.SetPresence(hub)

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           handlers.NewAuthHandler(auth),
		Connections:    handlers.NewConnectionHandler(connections),
		Matches:        handlers.NewMatchHandler(matches),
		Conversations:  handlers.NewConversationHandler(conversations),
		Profiles:       handlers.NewProfileHandler(profiles, mediaStore),
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins(),
		Limiter:        limiter,
		WS:             ws.ServeWS(hub, cfg.JWTSecret, wsOriginPatterns(cfg.AllowedOrigins())),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("storage", cfg.StorageDriver).Msg("Starting server")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
