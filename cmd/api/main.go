package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vendorica-api/internal/config"
	"vendorica-api/internal/db"
	"vendorica-api/internal/email"
	apihttp "vendorica-api/internal/http"
	"vendorica-api/internal/repository"
	"vendorica-api/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if cfg.AutoMigrate {
		results, err := db.MigrateUp(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied", zap.Int("count", len(results)))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	orgRepo := repository.NewPgOrganizationRepository(pool)
	roleRepo := repository.NewPgRoleRepository(pool)
	incidentRepo := repository.NewPgIncidentRepository(pool)
	auditRepo := repository.NewPgAuditRepository(pool)
	resetRepo := repository.NewPgPasswordResetRepository(pool)

	templates, err := email.NewTemplates()
	if err != nil {
		logger.Fatal("load email templates", zap.Error(err))
	}
	mailer := email.NewMailer(newEmailSender(cfg, logger), templates)

	resetLimiter := service.NewMemoryLimiter(time.Hour, cfg.ResetRequestsPerHour)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory reset limiter", zap.Error(err))
		} else {
			resetLimiter = service.NewRedisLimiter(redisClient, logger, "reset:rl:", time.Hour, cfg.ResetRequestsPerHour)
		}
		cancel()
	}

	secrets := config.NewSecretStore(cfg.JWTSecret)
	if secrets.SigningSecret() == "" {
		logger.Warn("jwt secret not configured, authentication will answer 503 until it is set")
	}
	go reloadSecretOnHangup(ctx, logger, secrets)

	tokens := service.NewTokenService(secrets, cfg.JWTExpiresIn)
	audit := service.NewAuditRecorder(logger, auditRepo)
	authSvc := service.NewAuthService(logger, userRepo, orgRepo, roleRepo, tokens, audit)
	passwordSvc := service.NewPasswordService(logger, userRepo, resetRepo, mailer, resetLimiter, audit, cfg.FrontendURL)
	incidentSvc := service.NewIncidentService(logger, incidentRepo, userRepo, audit)
	inviteSvc := service.NewInvitationService(logger, userRepo, mailer, cfg.FrontendURL)
	healthSvc := service.NewHealthService(logger, pool, service.HealthConfig{
		Version:         cfg.Version,
		Environment:     cfg.Env,
		EmailConfigured: cfg.EmailConfigured(),
	})

	router := apihttp.NewRouter(
		logger,
		apihttp.RouterConfig{APIPrefix: cfg.APIPrefix, AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute},
		authSvc,
		apihttp.NewAuthHandler(logger, authSvc),
		apihttp.NewPasswordHandler(logger, passwordSvc),
		apihttp.NewInvitationHandler(logger, inviteSvc),
		apihttp.NewIncidentHandler(logger, incidentSvc),
		apihttp.NewHealthHandler(logger, healthSvc, cfg, secrets),
		apihttp.NewMetrics(),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           apihttp.WithCORS(cfg.CORSOrigins, router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("env", cfg.Env),
			zap.String("api_prefix", cfg.APIPrefix),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger.With(zap.String("service", "vendorica-api"), zap.String("version", cfg.Version))
}

// newEmailSender prioriza Resend, luego SMTP. Sin ninguno los envios fallan
// con un error explicito.
func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.ResendAPIKey != "" {
		sender, err := email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		if err == nil {
			return sender
		}
		logger.Warn("resend sender init failed", zap.Error(err))
	}
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	logger.Warn("email sender not configured")
	return email.NewDisabledSender("email sender not configured")
}

// reloadSecretOnHangup relee .env y el entorno en cada SIGHUP.
func reloadSecretOnHangup(ctx context.Context, logger *zap.Logger, secrets *config.SecretStore) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := secrets.Reload(func() (*config.Config, error) {
				if err := godotenv.Overload(); err != nil {
					logger.Warn("reload .env", zap.Error(err))
				}
				return config.LoadConfig()
			})
			if err != nil {
				logger.Error("reload signing secret", zap.Error(err))
				continue
			}
			logger.Info("configuration reloaded",
				zap.Bool("secret_changed", changed),
				zap.Bool("secret_present", secrets.SigningSecret() != ""),
			)
		}
	}
}
