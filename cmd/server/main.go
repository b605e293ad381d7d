package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/config"
	"github.com/iliyamo/advisor-scheduler/internal/database"
	"github.com/iliyamo/advisor-scheduler/internal/google"
	"github.com/iliyamo/advisor-scheduler/internal/handler"
	"github.com/iliyamo/advisor-scheduler/internal/logger"
	"github.com/iliyamo/advisor-scheduler/internal/mail"
	"github.com/iliyamo/advisor-scheduler/internal/middleware"
	"github.com/iliyamo/advisor-scheduler/internal/queue"
	"github.com/iliyamo/advisor-scheduler/internal/ratelimit"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
	"github.com/iliyamo/advisor-scheduler/internal/router"
	"github.com/iliyamo/advisor-scheduler/internal/service"
	"github.com/iliyamo/advisor-scheduler/internal/token"
	"github.com/iliyamo/advisor-scheduler/internal/utils"
	"github.com/iliyamo/advisor-scheduler/internal/zoom"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine

	cfg := config.Load()
	log := logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	rlCfg := config.LoadRateLimitConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// ----- token engine and credentials -----
	users := repository.NewUserRepo(db)
	engine, err := token.New(cfg.Algorithm,
		token.Kind{Audience: token.AudienceAccess, Secret: cfg.AccessSecret, TTL: cfg.AccessTTL()},
		token.Kind{Audience: token.AudienceEmailConfirmation, Secret: cfg.ConfirmationSecret, TTL: cfg.ConfirmationTTL(),
			Store: repository.NewTokenRepo(db, repository.EmailConfirmationTokens)},
		token.Kind{Audience: token.AudiencePasswordRecovery, Secret: cfg.ResetSecret, TTL: cfg.ResetTTL(),
			Store: repository.NewTokenRepo(db, repository.PasswordResetTokens)},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("token engine")
	}
	hasher := utils.NewHasher(cfg.BcryptCost)

	// ----- rate limiter -----
	var limiter *ratelimit.Limiter
	checks := map[string]handler.Check{"mysql": db.PingContext}
	if rlCfg.Enabled {
		policy, err := ratelimit.ParsePolicy(rlCfg.StoreFailurePolicy)
		if err != nil {
			log.Fatal().Err(err).Msg("rate limit config")
		}
		rdb, err := config.NewRedisClient()
		if err != nil {
			log.Warn().Err(err).Str("policy", policy.String()).Msg("redis unreachable at start-up")
		}
		defer rdb.Close()
		limiter = ratelimit.New(rdb, rlCfg.Prefix, policy, log.With().Str("component", "ratelimit").Logger())
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// ----- notifications -----
	composer, err := mail.NewComposer(cfg.FrontendBaseURL, cfg.Zoom.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("mail templates")
	}
	mailer := mail.NewMailer(cfg.Mail, log.With().Str("component", "mailer").Logger())
	var sender mail.Sender = mailer
	consumerDone := make(chan struct{})
	if cfg.Notify.Transport == "queue" {
		pub := queue.NewPublisher(cfg.Notify.AMQPURL, cfg.Notify.Queue, log.With().Str("component", "publisher").Logger())
		defer pub.Close()
		sender = pub
		consumer := queue.NewConsumer(cfg.Notify.AMQPURL, cfg.Notify.Queue, mailer, log.With().Str("component", "consumer").Logger())
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("notification consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}
	dispatcher := service.NewDispatcher(composer, sender, log.With().Str("component", "notify").Logger())

	// ----- services -----
	userSvc := service.NewUserService(users, hasher)
	authSvc := service.NewAuthService(userSvc, engine, hasher, dispatcher)
	advisorSvc := service.NewAdvisorService(repository.NewAdvisorRepo(db))
	meetingSvc := service.NewMeetingService(advisorSvc, repository.NewMeetingRepo(db), zoom.New(cfg.Zoom),
		dispatcher, log.With().Str("component", "meetings").Logger())

	if err := service.Bootstrap(ctx, service.BootstrapConfig{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		AdvisorName:   cfg.AdvisorName,
		AdvisorEmail:  cfg.AdvisorEmail,
	}, userSvc, advisorSvc, log); err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	// ----- HTTP -----
	var attempts handler.AttemptResetter
	if limiter != nil {
		attempts = limiter
	}
	e := router.NewServer(log)
	router.Register(e, router.Handlers{
		Auth: handler.NewAuthHandler(authSvc, google.New(cfg.Google), attempts,
			handler.CookieConfig{Secure: cfg.CookieSecure, MaxAge: cfg.AccessTTL()}, log),
		Meetings: handler.NewMeetingHandler(meetingSvc),
		Admin:    handler.NewAdminHandler(userSvc, advisorSvc),
		Health:   handler.Health(checks),
		Users:    authSvc,
	}, router.Limits{
		Limiter:  limiter,
		Login:    middleware.Rule{Max: rlCfg.LoginMax, Window: rlCfg.LoginWindow, Message: "Too many login attempts. Please try again later."},
		Recovery: middleware.Rule{Max: rlCfg.RecoveryMax, Window: rlCfg.RecoveryWindow, Message: "Rate limit exceeded, please try again later."},
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdown(e.Shutdown, dispatcher, consumerDone, log)
}

// shutdown stops accepting requests, then lets in-flight notifications and
// the queue consumer finish.
func shutdown(stopHTTP func(context.Context) error, d *service.Dispatcher, consumerDone <-chan struct{}, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := stopHTTP(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	done := make(chan struct{})
	go func() {
		d.Wait()
		<-consumerDone
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("shutdown complete")
	case <-ctx.Done():
		log.Warn().Msg("shutdown timed out with work pending")
	}
}
