package main

import (
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/joho/godotenv"
	"github.com/medilocker/medigate/adapters/accountstore"
	"github.com/medilocker/medigate/adapters/completion"
	"github.com/medilocker/medigate/adapters/events"
	"github.com/medilocker/medigate/adapters/store"
	"github.com/medilocker/medigate/adapters/tokenizer"
	"github.com/medilocker/medigate/config"
	"github.com/medilocker/medigate/ports"
	"github.com/medilocker/medigate/service"
	transport "github.com/medilocker/medigate/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("MEDIGATE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	signKey, err := cfg.LoadSigningKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load signing key")
	}
	if cfg.SigningKey == "" {
		log.Warn().Msg("no signing key configured, sessions will not survive a restart")
	}

	var (
		nonceStore ports.NonceStore
		tokenStore ports.TokenStore
		eventPub   ports.EventPublisher
	)

	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse Redis URL")
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Redis publisher")
		}

		nonceStore = store.NewRedisNonceStore(redisClient)
		tokenStore = store.NewRedisTokenStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		log.Info().Msg("no Redis URL configured, using in-memory stores")
		nonceStore = store.NewMemoryNonceStore()
		tokenStore = store.NewMemoryTokenStore()
		eventPub = events.NewWatermillPublisher(gochannel.NewGoChannel(gochannel.Config{}, wmLogger))
	}

	var accounts ports.AccountStore
	if cfg.SQLitePath != "" {
		sqliteStore, err := accountstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open account database")
		}
		defer sqliteStore.Close()
		accounts = sqliteStore
	} else {
		log.Info().Msg("no SQLite path configured, using in-memory account store")
		accounts = accountstore.NewMemoryStore()
	}

	authService := service.NewAuthService(
		service.NewNonceRegistry(nonceStore, service.DefaultChallengeTTL),
		service.NewIdentityResolver(accounts),
		service.NewSessionIssuer(tokenizer.NewJWTTokenizer(signKey), tokenStore),
		eventPub,
		log,
	)

	chatService := service.NewChatService(completion.NewHTTPClient(completion.Config{
		BaseURL: cfg.Completion.BaseURL,
		APIKey:  cfg.Completion.APIKey,
		Model:   cfg.Completion.Model,
		Timeout: cfg.Completion.Timeout.Duration,
	}), log)

	router := transport.SetupRouter(authService, chatService, log)

	log.Info().Str("listen", cfg.Listen).Msg("starting server")
	if err := router.Run(cfg.Listen); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
