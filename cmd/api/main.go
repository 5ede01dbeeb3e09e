package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lexia-auth/internal/config"
	"lexia-auth/internal/db"
	"lexia-auth/internal/email"
	"lexia-auth/internal/events"
	apihttp "lexia-auth/internal/http"
	"lexia-auth/internal/oauth"
	"lexia-auth/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	store, closeStore := db.OpenUserStore(ctx, cfg, logger)
	defer closeStore()

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	publisher := events.NewNopPublisher()
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("amqp publisher init failed", zap.Error(err))
		} else {
			publisher = amqpPub
		}
	}

	stateStore := service.NewMemoryOAuthStateStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, oauth state kept in memory", zap.Error(err))
		} else {
			stateStore = service.NewRedisOAuthStateStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTRememberTTL)
	if jwtSvc.UsingFallbackSecret() {
		logger.Warn("JWT_SECRET not configured: tokens are signed with the public fallback secret, do not run like this in production")
	}

	lockout := service.LockoutPolicy{MaxAttempts: cfg.LockoutMaxAttempts, Duration: cfg.LockoutDuration}
	userSvc := service.NewUserService(
		logger,
		store,
		service.NewBcryptHasher(cfg.BcryptCost),
		lockout,
		emailSender,
		publisher,
		cfg.FrontendURL,
	)
	adminSvc := service.NewAdminService(store)

	providers := oauth.NewRegistry(
		oauth.NewGoogle(credentials(cfg, "google", cfg.GoogleClientID, cfg.GoogleClientSecret)),
		oauth.NewFacebook(credentials(cfg, "facebook", cfg.FacebookAppID, cfg.FacebookAppSecret)),
		oauth.NewGitHub(credentials(cfg, "github", cfg.GitHubClientID, cfg.GitHubClientSecret)),
		oauth.NewLinkedIn(credentials(cfg, "linkedin", cfg.LinkedInClientID, cfg.LinkedInClientSecret)),
	)
	logger.Info("oauth providers enabled", zap.Strings("providers", providers.Names()))

	dev := cfg.IsDevelopment()
	router := apihttp.NewRouter(apihttp.RouterDeps{
		Logger:        logger,
		Authenticator: apihttp.NewAuthenticator(logger, jwtSvc, userSvc),
		AdminServ:     adminSvc,
		AuthH:         apihttp.NewAuthHandler(logger, userSvc, jwtSvc, dev),
		OAuthH:        apihttp.NewOAuthHandler(logger, providers, stateStore, userSvc, jwtSvc, cfg.FrontendURL),
		UserH:         apihttp.NewUserHandler(logger, userSvc, dev),
		AdminH:        apihttp.NewAdminHandler(logger, adminSvc, dev),
		HealthH:       apihttp.NewHealthHandler(store, providers.Names()),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           apihttp.WithCORS(router, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", store.Status().Backend))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

func credentials(cfg *config.Config, provider, id, secret string) oauth.Credentials {
	return oauth.Credentials{
		ClientID:     id,
		ClientSecret: secret,
		RedirectURL:  strings.TrimRight(cfg.PublicBaseURL, "/") + "/auth/" + provider + "/callback",
	}
}
