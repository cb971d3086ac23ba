package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	"quiz-session-service/internal/infra/postgres"
	redisinfra "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/jobs"
	"quiz-session-service/internal/lib/logger/sl"
	transport "quiz-session-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting quiz session service", slog.String("env", cfg.Env))

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, log, cfg); err != nil {
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

	timing := timingFrom(cfg)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var (
		loader  memory.QuizLoader
		writer  app.QuizWriter
		history app.HistoryRecorder
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := postgres.NewQuizStore(pool)
		loader, writer = store, store

		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		history = postgres.NewHistory(db)
	} else {
		catalog := memory.NewCatalog(sampleQuizzes())
		loader, writer = catalog, catalog
		history = memory.NewHistory()
		log.Warn("postgres not configured, quizzes and history are kept in memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		store    app.SessionRepository
		notifier app.Notifier = logNotifier{log: log}
	)
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		store = redisinfra.NewSessionStore(redisClient, redisTTL, timing)
		notifier = redisinfra.NewNotifier(redisClient)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore()
	}

	service := app.NewSessionService(store, quizRepo,
		app.WithLogger(log),
		app.WithQuizWriter(writer),
		app.WithHistory(history),
		app.WithNotifier(notifier),
		app.WithTiming(timing),
	)

	scheduler, err := jobs.NewScheduler(log, service, cfg.Session.SweepSchedule, config.TTLDuration(cfg.Session.Retain, time.Hour))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Auth.Secret == "" {
		log.Warn("auth secret not configured, bearer tokens cannot be verified")
	}
	router := transport.NewRouter(service, transport.NewAuthenticator(cfg.Auth.Secret))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func timingFrom(cfg config.Config) app.Timing {
	timing := app.DefaultTiming()
	timing.DefaultTimeLimit = config.TTLDuration(cfg.Session.DefaultTimeLimit, timing.DefaultTimeLimit)
	timing.Grace = config.TTLDuration(cfg.Session.Grace, timing.Grace)
	if cfg.Session.DefaultPoints > 0 {
		timing.DefaultPoints = cfg.Session.DefaultPoints
	}
	return timing
}

// logNotifier stands in for the notification service when Redis is absent.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Notify(_ context.Context, event domain.Event) error {
	n.log.Debug("session event",
		slog.String("type", string(event.Type)),
		slog.String("session_id", event.SessionID),
	)
	return nil
}

// sampleQuizzes seeds the in-memory catalog when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:              "quiz-1",
			Title:           "Warm-up",
			TimePerQuestion: 30,
			Status:          domain.QuizPublished,
			Questions: []domain.Question{
				{
					ID:         "q1",
					QuizID:     "quiz-1",
					Text:       "What is 2 + 2?",
					OrderIndex: 0,
					Points:     1000,
					Answers: []domain.Answer{
						{ID: "q1-a1", QuestionID: "q1", Text: "3"},
						{ID: "q1-a2", QuestionID: "q1", Text: "4", IsCorrect: true},
						{ID: "q1-a3", QuestionID: "q1", Text: "5"},
					},
				},
				{
					ID:         "q2",
					QuizID:     "quiz-1",
					Text:       "Which of these are prime?",
					OrderIndex: 1,
					Points:     1000,
					Answers: []domain.Answer{
						{ID: "q2-a1", QuestionID: "q2", Text: "2", IsCorrect: true},
						{ID: "q2-a2", QuestionID: "q2", Text: "4"},
						{ID: "q2-a3", QuestionID: "q2", Text: "7", IsCorrect: true},
					},
				},
			},
		},
	}
}
