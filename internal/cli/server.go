package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	pgstore "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

const (
	defaultRedisTTL    = 3 * time.Hour
	defaultQuizTTL     = 10 * time.Minute
	defaultIdleTimeout = 2 * time.Hour
	reapInterval       = time.Minute
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the bundled sample quizzes into postgres")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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

	registryOpts := []app.RegistryOption{}
	if cfg.Game.PinLength > 0 {
		registryOpts = append(registryOpts, app.WithPinLength(cfg.Game.PinLength))
	}
	registry := app.NewRegistry(registryOpts...)
	hub := transport.NewHub()

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var results interface {
		app.ResultStore
		transport.ResultReader
	} = memory.NewResultStore()

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		pgLoader := pgstore.NewQuizLoader(pool)
		if seed {
			for _, quiz := range sampleQuizzes() {
				if err := pgLoader.SaveQuiz(ctx, quiz); err != nil {
					return err
				}
			}
			log.Printf("seeded %d sample quizzes", len(sampleQuizzes()))
		}
		loader = pgLoader

		db := openBun(cfg.Postgres.URL)
		defer db.Close()
		results = pgstore.NewResultStore(db)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, defaultQuizTTL)
	var (
		quizRepo app.QuizRepository = memory.NewQuizRepository(loader, quizTTL)
		rooms    app.Broadcaster    = hub
		opts     []app.Option
	)

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}

		fanout := redisstore.NewFanout(redisClient, hub)
		if err := fanout.Start(ctx); err != nil {
			return fmt.Errorf("subscribe fanout: %w", err)
		}
		rooms = fanout
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)

		instanceID := uuid.NewString()
		redisTTL := config.TTLDuration(cfg.Redis.TTL, defaultRedisTTL)
		opts = append(opts, app.WithPinClaimer(redisstore.NewPinStore(redisClient, instanceID, redisTTL)))
		log.Printf("redis enabled at %s (instance %s)", cfg.Redis.Addr, instanceID)
	}

	opts = append(opts, app.WithHostGracePeriod(config.TTLDuration(cfg.Game.HostGracePeriod, app.DefaultHostGracePeriod)))
	service := app.NewGameService(registry, quizRepo, results, rooms, opts...)

	idleTimeout := config.TTLDuration(cfg.Game.IdleTimeout, defaultIdleTimeout)
	go service.Supervisor().RunReaper(ctx, reapInterval, idleTimeout)

	router := transport.NewRouter(transport.RouterConfig{
		Registry:  registry,
		WS:        transport.NewWSHandler(service, hub, rooms),
		Results:   results,
		PublicURL: cfg.Server.PublicURL,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	ended := service.Supervisor().Shutdown(shutdownCtx)
	log.Printf("ended %d live games", ended)
	err = server.Shutdown(shutdownCtx)
	registry.Close()
	service.Wait()
	cancel()
	return err
}
