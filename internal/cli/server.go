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

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	pgloader "quiz-session-service/internal/infra/postgres"
	redisinfra "quiz-session-service/internal/infra/redis"
	transport "quiz-session-service/internal/transport/http"
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	backends, err := buildBackends(cfg, redisClient, pool)
	if err != nil {
		return err
	}

	service := app.NewSessionService(backends, cfg.Rules())
	wsHandler := transport.NewWSHandler(service)

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
		log.Printf("starting quiz session service on :%s", finalPort)
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

// buildBackends wires the collaborators: Redis-backed wallet/ledger/cache when
// configured, Postgres question pool when configured, in-memory fallbacks
// otherwise.
func buildBackends(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) (app.Backends, error) {
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	memSource := memory.NewQuestionSource(sampleQuestions())
	var source app.QuestionSource = memSource
	var loader redisinfra.PoolLoader = memSource
	if pool != nil {
		pg := pgloader.NewQuestionLoader(pool)
		source = pg
		loader = pg
	}
	if redisClient != nil {
		source = redisinfra.NewQuestionCache(redisClient, loader, questionTTL)
	}

	if redisClient != nil {
		wallet := redisinfra.NewWallet(redisClient, cfg.StartingCoins(), cfg.StartingLives())
		return app.Backends{
			Source:    source,
			Wallet:    wallet,
			Ledger:    redisinfra.NewRewardLedger(redisClient, wallet),
			Reporter:  redisinfra.NewReporter(redisClient, wallet),
			Broadcast: redisinfra.NewBroadcaster(redisClient),
		}, nil
	}

	wallet := memory.NewWallet(cfg.StartingCoins(), cfg.StartingLives())
	return app.Backends{
		Source:    source,
		Wallet:    wallet,
		Ledger:    memory.NewRewardLedger(wallet),
		Reporter:  memory.NewReporter(wallet),
		Broadcast: memory.NewBroadcaster(),
	}, nil
}

// sampleQuestions provides a minimal demo pool; swap in the Postgres loader
// for production content.
func sampleQuestions() []domain.Question {
	topics := []struct {
		text   string
		right  string
		wrongs [2]string
	}{
		{"What is 2 + 2?", "4", [2]string{"3", "5"}},
		{"Capital of France?", "Paris", [2]string{"Lyon", "Nice"}},
		{"Largest planet?", "Jupiter", [2]string{"Mars", "Venus"}},
		{"H2O is?", "Water", [2]string{"Helium", "Hydrogen"}},
		{"7 x 8?", "56", [2]string{"54", "64"}},
		{"Continents on Earth?", "7", [2]string{"5", "6"}},
		{"Fastest land animal?", "Cheetah", [2]string{"Lion", "Horse"}},
		{"Smallest prime?", "2", [2]string{"1", "3"}},
		{"Colors in a rainbow?", "7", [2]string{"6", "8"}},
		{"First element?", "Hydrogen", [2]string{"Helium", "Oxygen"}},
		{"Days in a leap year?", "366", [2]string{"365", "364"}},
		{"Capital of Japan?", "Tokyo", [2]string{"Osaka", "Kyoto"}},
		{"Square root of 81?", "9", [2]string{"8", "7"}},
		{"Ocean between US and Europe?", "Atlantic", [2]string{"Pacific", "Indian"}},
		{"Red planet?", "Mars", [2]string{"Jupiter", "Mercury"}},
		{"Largest mammal?", "Blue whale", [2]string{"Elephant", "Giraffe"}},
		{"Sides of a hexagon?", "6", [2]string{"5", "8"}},
		{"Freezing point of water (C)?", "0", [2]string{"-10", "10"}},
		{"Currency of Japan?", "Yen", [2]string{"Won", "Yuan"}},
		{"Bones in an adult human?", "206", [2]string{"201", "212"}},
	}

	questions := make([]domain.Question, 0, len(topics))
	for i, t := range topics {
		questions = append(questions, domain.Question{
			ID:   fmt.Sprintf("q%d", i+1),
			Text: t.text,
			Answers: [3]domain.Answer{
				{Key: domain.KeyA, Text: t.right, Correct: true},
				{Key: domain.KeyB, Text: t.wrongs[0]},
				{Key: domain.KeyC, Text: t.wrongs[1]},
			},
		})
	}
	return questions
}
