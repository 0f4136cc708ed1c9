package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/handler"
	"github.com/noah-isme/daksh-api/internal/middleware"
	"github.com/noah-isme/daksh-api/internal/models"
	"github.com/noah-isme/daksh-api/pkg/config"
	"github.com/noah-isme/daksh-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/daksh-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/daksh-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	cookies := middleware.CookieConfig{Secure: cfg.Session.CookieSecure, Domain: cfg.Session.CookieDomain}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))

	checks := map[string]handler.Pinger{}
	if app.redis != nil {
		checks["redis"] = app.redis
	}
	if app.auditRepo != nil {
		checks["audit"] = app.auditRepo
	}
	metricsHandler := handler.NewMetricsHandler(app.metrics, checks, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	adminAuthHandler := handler.NewAdminAuthHandler(app.adminAuth, cookies)
	auditHandler := handler.NewAuditHandler(app.audit)
	schoolHandler := handler.NewSchoolHandler(app.schools)
	classHandler := handler.NewClassHandler(app.classes)
	studentHandler := handler.NewStudentHandler(app.students)
	qrHandler := handler.NewQRHandler(app.qr)
	sessionHandler := handler.NewSessionHandler(app.sessions, cookies, logr)
	questionnaireHandler := handler.NewQuestionnaireHandler(app.questionnaire)
	pageHandler := handler.NewPageHandler(cfg.Web.StaticDir, cfg.APIPrefix)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.StudentSession(app.sessions))

	api.POST("/admin/login", adminAuthHandler.Login)
	api.POST("/admin/logout", adminAuthHandler.Logout)

	api.GET("/onboarding/questions", questionnaireHandler.Questions)

	session := api.Group("/session")
	session.GET("", sessionHandler.State)
	session.POST("/login", sessionHandler.Login)
	session.POST("/login/qr", sessionHandler.LoginQR)
	session.POST("/select", sessionHandler.Select)
	session.POST("/logout", sessionHandler.Logout)
	session.GET("/route", sessionHandler.Route)
	session.POST("/onboarding", middleware.RequireStudentSession(), sessionHandler.CompleteOnboarding)
	session.GET("/students/:schoolId/:classId/:studentId", sessionHandler.Student)

	admin := api.Group("")
	admin.Use(middleware.AdminJWT(app.adminAuth))
	admin.GET("/admin/me", adminAuthHandler.Me)
	admin.GET("/admin/audit", auditHandler.List)
	admin.POST("/qr", qrHandler.Generate)

	schools := admin.Group("/schools")
	schools.POST("", schoolHandler.Create)
	schools.GET("", schoolHandler.List)
	schools.GET("/search", schoolHandler.Search)
	schools.GET("/:schoolId", schoolHandler.Get)

	classes := schools.Group("/:schoolId/classes")
	classes.POST("", classHandler.Create)
	classes.GET("", classHandler.List)
	classes.GET("/:classId", classHandler.Get)
	classes.GET("/:classId/roll-numbers", classHandler.RollNumbers)
	classes.POST("/:classId/students", studentHandler.Create)
	classes.GET("/:classId/students", studentHandler.List)
	classes.GET("/:classId/students/:studentId", studentHandler.Get)
	classes.GET("/:classId/credentials",
		middleware.AdminAudit(app.audit, models.AuditActionCredentialExport, "class"),
		studentHandler.ExportCredentials)

	r.NoRoute(middleware.Gate(app.sessions, app.adminAuth, app.metrics, middleware.GateConfig{
		MaxRedirects: cfg.Gate.MaxRedirects,
		Cookies:      cookies,
	}, logr), pageHandler.Serve)

	return r
}
