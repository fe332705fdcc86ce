package app

import (
	"channels-core/internal/circuitbreaker"
	"channels-core/internal/common/logging"
	"channels-core/internal/redis"
	"channels-core/internal/replay"
)

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (replay protection and rate limits are per process)")
		return nil
	}

	redisDB, err := app.Config.RedisDBNumber()
	if err != nil {
		return err
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       redisDB,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.Field{Key: "address", Value: app.Config.RedisAddress})
	return nil
}

func (app *App) initializeReplayGuard() error {
	if app.RedisClient != nil {
		breaker, err := circuitbreaker.New("replay-redis", circuitbreaker.DefaultConfig(), app.Logger)
		if err != nil {
			return err
		}
		app.Guard = replay.NewBreakerGuard(replay.NewRedisGuard(app.RedisClient), breaker)
		app.Logger.Info("Replay protection: Redis")
		return nil
	}
	app.Guard = replay.NewMemoryGuard()
	app.Logger.Info("Replay protection: in memory")
	return nil
}
