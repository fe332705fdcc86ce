package app

import (
	"channels-core/internal/client"
	"channels-core/internal/common/logging"
	"channels-core/internal/config"
	"channels-core/internal/redis"
	"channels-core/internal/replay"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Client      *client.Client
	RedisClient *redis.Client
	Guard       replay.Guard
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeClient(); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, claims fall back to process memory
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{Key: "error", Value: err.Error()})
	}
	if err := app.initializeReplayGuard(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *App) initializeClient() error {
	grace, err := app.Config.Grace()
	if err != nil {
		return err
	}
	masterKey, err := app.Config.MasterKey()
	if err != nil {
		return err
	}
	tokens, err := app.Config.WebhookTokens()
	if err != nil {
		return err
	}

	opts := client.Options{
		AppID:          app.Config.AppID,
		Key:            app.Config.Key,
		Secret:         app.Config.Secret,
		MasterKey:      masterKey,
		TimestampGrace: grace,
		WebhookTokens:  tokens,
		Logger:         logging.GetGlobalLogger(),
	}

	var c *client.Client
	if app.Config.URL != "" {
		c, err = client.FromURL(app.Config.URL, opts)
	} else {
		c, err = client.New(opts)
	}
	if err != nil {
		return err
	}

	app.Client = c
	app.Logger.Info("Client configured",
		logging.Field{Key: "app_id", Value: c.AppID()},
		logging.Field{Key: "key", Value: c.Key()},
		logging.Field{Key: "encrypted_channels", Value: masterKey != nil},
		logging.Field{Key: "webhook_tokens", Value: len(tokens) + 1},
	)
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
