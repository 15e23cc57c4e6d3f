package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/config"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/repo"
	"github.com/noah-isme/toko-promo/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	asynqRedis := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	sweeper := worker.ExpirySweeper{
		Store:  repo.NewCoupons(pool),
		Logger: &logger,
	}

	scheduler := asynq.NewScheduler(asynqRedis, nil)
	if _, err := scheduler.Register("@every "+cfg.ExpirySweepInterval.String(), worker.NewExpiryTask()); err != nil {
		logger.Fatal().Err(err).Msg("register expiry sweep schedule")
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskCouponExpirySweep, sweeper.Handle)

	srv := asynq.NewServer(asynqRedis, asynq.Config{Concurrency: 1})

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Fatal().Err(err).Msg("scheduler stopped with error")
		}
	}()

	go func() {
		<-ctx.Done()
		scheduler.Shutdown()
		srv.Shutdown()
	}()

	logger.Info().Str("interval", cfg.ExpirySweepInterval.String()).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "toko-promo-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}
