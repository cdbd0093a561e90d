package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/api"
	"github.com/jansathi/portal/internal/app"
	"github.com/jansathi/portal/internal/app/maintenance"
	iauth "github.com/jansathi/portal/internal/auth"
	"github.com/jansathi/portal/internal/cache"
	"github.com/jansathi/portal/internal/database"
	"github.com/jansathi/portal/internal/middleware"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/monitoring"
	"github.com/jansathi/portal/internal/monitoring/checks"
	"github.com/jansathi/portal/internal/notifications"
	"github.com/jansathi/portal/internal/realtime"
	"github.com/jansathi/portal/internal/services"
	"github.com/jansathi/portal/pkg/captcha"
	"github.com/jansathi/portal/pkg/crypto"
	"github.com/jansathi/portal/pkg/logger"
	"github.com/jansathi/portal/pkg/mail"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Store     cache.Store
	RateStore middleware.RateStore
	Cleaner   *maintenance.Cleaner
	Router    *gin.Engine

	redis *cache.RedisClient
}

// bootstrapRuntime initialises the database, challenge store, services, and
// the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	secret, err := database.EnsureJWTSecret(ctx, stack.DB, cfg.Auth.JWT.Secret)
	if err != nil {
		return nil, err
	}
	cfg.Auth.JWT.Secret = secret

	stack.Store = selectChallengeStore(cfg, stack, log)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	challenges, err := iauth.NewChallengeService(cfg.Auth.ChallengeServiceConfig(stack.Store, captcha.NewImageRenderer()))
	if err != nil {
		return nil, fmt.Errorf("initialise challenge service: %w", err)
	}

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return nil, err
	}

	verifier, err := iauth.NewVerifier(iauth.VerifierConfig{
		DB:         stack.DB,
		Challenges: challenges,
		Tokens:     jwtSvc,
		Notifier:   notifier,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise verifier: %w", err)
	}

	if err := ensureBootstrapAdmin(ctx, stack.DB, cfg.Bootstrap, log); err != nil {
		return nil, err
	}

	policySvc, err := services.NewPolicyService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise policy service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Store, policySvc)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.RateStore = selectRateStore(cfg, stack)

	hub := realtime.NewHub()

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(stack.DB, 0))
	health.RegisterReadiness(checks.CacheStore(stack.Store, 0))
	health.RegisterLiveness(checks.Maintenance(stack.Cleaner, 0))
	health.RegisterLiveness(checks.Realtime(hub))

	stack.Router, err = api.NewRouter(api.Deps{
		DB:         stack.DB,
		Config:     cfg,
		JWT:        jwtSvc,
		Verifier:   verifier,
		Challenges: challenges,
		Hub:        hub,
		RateStore:  stack.RateStore,
		Health:     health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// selectChallengeStore picks the backing store for challenges and rate
// counters. Redis failures fall back to the database store so a cache outage
// never blocks startup.
func selectChallengeStore(cfg *app.Config, stack *runtimeStack, log *zap.Logger) cache.Store {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "memory":
		return cache.NewMemoryStore()
	case "redis":
		client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database store", zap.Error(err))
			return cache.NewDatabaseStore(stack.DB)
		}
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		stack.redis = client
		return client
	default:
		return cache.NewDatabaseStore(stack.DB)
	}
}

func selectRateStore(cfg *app.Config, stack *runtimeStack) middleware.RateStore {
	switch {
	case stack.redis != nil:
		return middleware.NewRedisRateStore(stack.redis)
	case strings.EqualFold(strings.TrimSpace(cfg.Cache.Backend), "memory"):
		return middleware.NewMemoryRateStore()
	default:
		return middleware.NewDatabaseRateStore(cache.NewDatabaseStore(stack.DB))
	}
}

// buildNotifier wires OTP delivery. Without SMTP configured, codes are
// accepted but never delivered, which only suits development setups.
func buildNotifier(cfg *app.Config, log *zap.Logger) (notifications.Notifier, error) {
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; one-time codes will not be delivered")
		return notifications.NopNotifier{}, nil
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	return notifications.NewEmailNotifier(mailer)
}

// ensureBootstrapAdmin seeds the first admin account on an empty database so
// a fresh deployment has a management login. Existing accounts are never
// touched.
func ensureBootstrapAdmin(ctx context.Context, db *gorm.DB, cfg app.BootstrapConfig, log *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	password := strings.TrimSpace(cfg.AdminPassword)
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.AdminAccount{}).Count(&count).Error; err != nil {
		return fmt.Errorf("bootstrap admin: count accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: hash password: %w", err)
	}

	admin := models.AdminAccount{
		Name:         strings.TrimSpace(cfg.AdminName),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("bootstrap admin: create account: %w", err)
	}

	log.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOpenConfig()

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
