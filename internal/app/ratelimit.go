package app

import (
	"time"

	"channels-core/internal/common/logging"
	"channels-core/internal/ratelimit"
)

// InitializeRateLimiter creates the limiter guarding the auth endpoints.
// With Redis the budget is shared between processes.
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	rps, burst := app.Config.RateLimit()

	if app.RedisClient != nil {
		// A window holding one burst at the sustained rate
		window := time.Duration(float64(burst) / rps * float64(time.Second))
		if window < time.Second {
			window = time.Second
		}
		app.Logger.Info("Rate Limiting: Redis",
			logging.Field{Key: "limit", Value: burst},
			logging.Field{Key: "window", Value: window.String()},
		)
		return ratelimit.NewRedisLimiter(app.RedisClient, burst, window)
	}

	config := ratelimit.DefaultConfig()
	config.RequestsPerSecond = rps
	config.BurstSize = burst
	limiter, err := ratelimit.NewLocalLimiter(config)
	if err != nil {
		app.Logger.Warn("Rate Limiting: Invalid configuration, disabled", logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	app.Logger.Info("Rate Limiting: Local",
		logging.Field{Key: "requests_per_second", Value: rps},
		logging.Field{Key: "burst", Value: burst},
	)
	return limiter
}
