package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/daksh-api/api/swagger"
	"github.com/noah-isme/daksh-api/internal/repository"
	"github.com/noah-isme/daksh-api/internal/service"
	"github.com/noah-isme/daksh-api/pkg/cache"
	"github.com/noah-isme/daksh-api/pkg/config"
	"github.com/noah-isme/daksh-api/pkg/database"
	"github.com/noah-isme/daksh-api/pkg/firebase"
	"github.com/noah-isme/daksh-api/pkg/logger"
	"github.com/noah-isme/daksh-api/pkg/qr"
)

// @title Daksh API
// @version 1.0.0
// @description School, class and student onboarding with cookie-based student sessions.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := buildApp(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise application", zap.Error(err))
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Firebase.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// application bundles the wired services the router needs.
type application struct {
	metrics       *service.MetricsService
	audit         *service.AuditService
	adminAuth     *service.AdminAuthService
	schools       *service.SchoolService
	classes       *service.ClassService
	students      *service.StudentService
	questionnaire *service.QuestionnaireService
	sessions      *service.SessionService
	qr            *qr.Generator
	redis         *repository.CacheRepository
	auditRepo     *repository.AuditRepository
}

func buildApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*application, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	st, closeStore, err := openStore(ctx, cfg, metrics)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeStore)

	app := &application{metrics: metrics, questionnaire: service.NewQuestionnaireService(validate), qr: qr.NewGenerator(256)}

	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("audit database: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		app.auditRepo = repository.NewAuditRepository(db)
		app.audit = service.NewAuditService(app.auditRepo, logr)
	} else {
		app.audit = service.NewAuditService(nil, logr)
	}

	var studentCache service.StudentCache = service.NewMemoryStudentCache(cfg.Cache.StudentTTL)
	if cfg.Cache.RedisEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, using in-memory student cache", zap.Error(err))
		} else {
			app.redis = repository.NewCacheRepository(client, "daksh:")
			closers = append(closers, func() { _ = app.redis.Close() })
			cacheSvc := service.NewCacheService(app.redis, metrics, cfg.Cache.StudentTTL, logr, true)
			studentCache = service.NewRedisStudentCache(cacheSvc, cfg.Cache.StudentTTL)
		}
	}

	app.adminAuth = service.NewAdminAuthService(service.AdminAuthConfig{
		Email:        cfg.Admin.Email,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
		Secret:       cfg.Session.Secret,
		Issuer:       cfg.Session.Issuer,
		TokenTTL:     cfg.Admin.SessionTTL,
	}, app.audit, validate, logr)
	app.schools = service.NewSchoolService(st.Schools, app.audit, validate, logr)
	app.classes = service.NewClassService(st.Schools, st.Classes, st.Students, app.audit, validate, logr)
	app.students = service.NewStudentService(st.Classes, st.Students, app.questionnaire, app.qr, app.audit, validate, logr)

	auth := service.NewStudentAuthService(st.Schools, st.Classes, st.Students, logr)
	app.sessions = service.NewSessionService(auth, app.students, st.Schools, st.Classes, studentCache, app.audit, metrics, logr, service.SessionConfig{
		Secret:     cfg.Session.Secret,
		Issuer:     cfg.Session.Issuer,
		TTL:        cfg.Session.TTL,
		PendingTTL: cfg.Session.PendingTTL,
	})

	return app, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config, metrics *service.MetricsService) (repository.Stores, func(), error) {
	if cfg.Firebase.Driver == config.StoreDriverMemory {
		return repository.NewMemoryStore().Stores(), func() {}, nil
	}

	client, err := firebase.NewFirestore(ctx, cfg.Firebase)
	if err != nil {
		return repository.Stores{}, func() {}, err
	}
	return repository.NewFirestoreStores(client, metrics), func() { _ = client.Close() }, nil
}
