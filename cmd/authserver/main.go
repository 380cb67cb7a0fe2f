package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/plateful/plateful-api/internal/config"
	"github.com/plateful/plateful-api/internal/handler"
	"github.com/plateful/plateful-api/internal/notifier"
	"github.com/plateful/plateful-api/internal/repository"
	"github.com/plateful/plateful-api/internal/usecase"
	"github.com/plateful/plateful-api/shared/auth"
	"github.com/plateful/plateful-api/shared/mailer"
	"github.com/plateful/plateful-api/shared/provider"
	"github.com/plateful/plateful-api/shared/ratelimit"
	"github.com/plateful/plateful-api/shared/security"
	"github.com/plateful/plateful-api/shared/totp"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "auth").Logger()

	cfg := config.Load(&logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongodb")
	}
	db := mongoClient.Database(cfg.Mongo.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping redis")
	}

	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)
	sessionRepo := repository.NewSessionMongoRepository(ctx, &logger, db)
	tokenRepo := repository.NewVerificationTokenMongoRepository(ctx, &logger, db)
	twoFactorRepo := repository.NewTwoFactorMongoRepository(ctx, &logger, db)
	attemptRepo := repository.NewTwoFactorAttemptMongoRepository(ctx, &logger, db)
	deviceRepo := repository.NewTrustedDeviceMongoRepository(ctx, &logger, db)
	securityLogRepo := repository.NewSecurityLogMongoRepository(ctx, &logger, db)
	profileRepo := repository.NewRestaurantProfileMongoRepository(ctx, &logger, db)
	transactor := repository.NewMongoTransactor(mongoClient)

	tokenService := auth.NewTokenService(auth.Config{
		AccessSecret:       cfg.Token.AccessSecret,
		RefreshSecret:      cfg.Token.RefreshSecret,
		AccessExpiresIn:    cfg.Token.AccessExpiresIn,
		RefreshExpiresIn:   cfg.Token.RefreshExpiresIn,
		TwoFactorExpiresIn: cfg.Token.TwoFactorExpiresIn,
		Issuer:             cfg.Token.Issuer,
	})

	hasher := security.NewHasher()
	limiter := ratelimit.New(redisClient)
	totpGenerator := totp.NewGenerator(cfg.App.Name)
	googleVerifier := provider.NewGoogleVerifier(cfg.Google.ClientID)
	emailNotifier := notifier.NewEmailNotifier(mailer.NewMailer(&logger), cfg.App.Name, cfg.App.BaseURL)

	verificationUsecase := usecase.NewEmailVerificationUsecase(
		userRepo, tokenRepo, securityLogRepo, transactor, emailNotifier, &logger,
	)
	twoFactorUsecase := usecase.NewTwoFactorUsecase(
		userRepo, twoFactorRepo, attemptRepo, securityLogRepo, transactor,
		totpGenerator, emailNotifier, &logger,
	)
	authUsecase := usecase.NewAuthUsecase(usecase.AuthUsecaseParams{
		Users:         userRepo,
		Sessions:      sessionRepo,
		Profiles:      profileRepo,
		Devices:       deviceRepo,
		SecurityLogs:  securityLogRepo,
		Transactor:    transactor,
		Tokens:        tokenService,
		Hasher:        hasher,
		Limiter:       limiter,
		Google:        googleVerifier,
		TwoFactor:     twoFactorUsecase,
		Verifications: verificationUsecase,
		Logger:        &logger,
	})
	resetUsecase := usecase.NewPasswordResetUsecase(usecase.PasswordResetUsecaseParams{
		Users:        userRepo,
		Tokens:       tokenRepo,
		Sessions:     sessionRepo,
		SecurityLogs: securityLogRepo,
		Transactor:   transactor,
		Hasher:       hasher,
		Limiter:      limiter,
		Notifier:     emailNotifier,
		Logger:       &logger,
	})
	sessionUsecase := usecase.NewSessionUsecase(sessionRepo, securityLogRepo, &logger)

	router, err := handler.NewRouter(handler.RouterParams{
		Auth:          authUsecase,
		TwoFactor:     twoFactorUsecase,
		PasswordReset: resetUsecase,
		Verification:  verificationUsecase,
		Sessions:      sessionUsecase,
		Tokens:        tokenService,
		Logger:        &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build router")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("auth service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to disconnect mongodb")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close redis client")
	}
}
