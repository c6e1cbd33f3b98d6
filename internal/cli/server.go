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

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/auth"
	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/infra/memory"
	"quiz-assessment-service/internal/infra/postgres"
	"quiz-assessment-service/internal/infra/rabbit"
	rediscache "quiz-assessment-service/internal/infra/redis"
	"quiz-assessment-service/internal/infra/sqlite"
	transport "quiz-assessment-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the stores selected by config; closers run on shutdown.
type backends struct {
	quizzes   app.QuizDirectory
	questions app.QuestionBank
	mappings  app.MappingStore
	snapshots app.SnapshotStore
	recorder  app.SubmissionRecorder
	sessions  app.SessionVerifier
	publisher app.ResultPublisher
	closers   []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
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

	timerMode, err := app.ParseTimerMode(cfg.Attempt.TimerMode)
	if err != nil {
		return err
	}

	b, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	engine := app.NewMappingEngine(b.questions, b.quizzes, b.mappings)
	submitter := app.NewSubmitter(b.sessions, b.recorder)
	if b.publisher != nil {
		submitter.WithPublisher(b.publisher)
	}
	attempts := app.NewAttemptService(b.quizzes, b.mappings, b.snapshots, b.sessions, submitter).
		WithTimerMode(timerMode)

	router := transport.NewRouter(transport.NewMappingHandler(engine), transport.NewAttemptHandler(attempts))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: attempt websockets stay open for the whole quiz.
	}

	go func() {
		log.Printf("starting quiz service on :%s (timer=%s snapshots=%s)", finalPort, timerMode, cfg.Snapshots.Driver)
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

func buildBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
		err  error
	)
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		db = postgres.OpenBun(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
	}

	var loader memory.QuizLoader
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
		b.questions = postgres.NewQuestionBank(pool)
		b.mappings = postgres.NewMappingStore(db)
		b.recorder = postgres.NewSubmissionStore(db)
	} else {
		static := memory.NewStaticQuizLoader(sampleQuizzes())
		loader = static
		b.questions = memory.NewQuestionBank(sampleQuestions()...)
		b.mappings = memory.NewMappingStore().OnCountChange(static.SetQuestionCount)
		b.recorder = memory.NewSubmissionRecorder()
		log.Printf("postgres not configured, using in-memory demo data")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		b.quizzes = rediscache.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	switch cfg.Snapshots.Driver {
	case "memory":
		b.snapshots = memory.NewSnapshotStore()
	case "redis":
		if redisClient == nil {
			b.close()
			return nil, fmt.Errorf("snapshots.driver=redis requires redis.addr")
		}
		b.snapshots = rediscache.NewSnapshotStore(redisClient, cfg.SnapshotTTL())
	case "sqlite":
		path := cfg.Snapshots.SQLitePath
		if path == "" {
			path = "attempts.db"
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.snapshots = store
	default:
		b.close()
		return nil, fmt.Errorf("unknown snapshots.driver %q", cfg.Snapshots.Driver)
	}

	if cfg.Auth.JWTSecret != "" {
		b.sessions = auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	} else {
		tokens := auth.StaticVerifier(cfg.Auth.StaticTokens)
		if len(tokens) == 0 {
			tokens = auth.StaticVerifier{"dev-token": "demo-user"}
		}
		b.sessions = tokens
		log.Printf("auth.jwt_secret not set, accepting %d static tokens", len(tokens))
	}

	if cfg.Rabbit.URL != "" {
		pub, err := rabbit.Dial(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = pub.Close() })
		b.publisher = pub
	}
	return b, nil
}
