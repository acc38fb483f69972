package http

import (
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "vendorica-api/docs" // Swagger docs
)

// RouterConfig agrupa los parametros del router que vienen de configuracion.
type RouterConfig struct {
	APIPrefix              string
	AuthRateLimitPerMinute int
}

// NewRouter configura el router de Gin con middlewares y rutas.
//
//	@title						Vendorica API
//	@version					1.0.0
//	@description				Multi-tenant vendor risk management API: authentication, incidents and health.
//	@BasePath					/internal
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT bearer token. Format: "Bearer {token}".
func NewRouter(
	logger *zap.Logger,
	cfg RouterConfig,
	authenticator Authenticator,
	authH *AuthHandler,
	passwordH *PasswordHandler,
	inviteH *InvitationHandler,
	incidentH *IncidentHandler,
	healthH *HealthHandler,
	metrics *Metrics,
) *gin.Engine {
	r := gin.New()

	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), recoveryMiddleware(logger))
	if metrics != nil {
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.GET("/", healthH.Landing)
	r.GET("/health", healthH.Health)
	r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/doc.json"))))

	requireAuth := RequireAuth(authenticator, logger)
	limitByIP := rateLimitByIP(cfg.AuthRateLimitPerMinute, logger)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", limitByIP, authH.Login)
	auth.POST("/register", limitByIP, authH.Register)
	auth.GET("/me", requireAuth, authH.Me)
	auth.POST("/logout", OptionalAuth(authenticator, logger), authH.Logout)
	auth.POST("/refresh", requireAuth, authH.Refresh)
	auth.POST("/validate", requireAuth, authH.Validate)
	auth.POST("/reset-password", passwordH.RequestReset)
	auth.POST("/update-password", passwordH.UpdatePassword)
	auth.POST("/validate-reset-token", passwordH.ValidateResetToken)
	auth.POST("/invite", requireAuth, inviteH.Invite)

	incidents := api.Group("/incidents", requireAuth)
	incidents.GET("", incidentH.List)
	incidents.POST("", incidentH.Create)
	incidents.GET("/:id", incidentH.Get)
	incidents.PUT("/:id", incidentH.Update)
	incidents.DELETE("/:id", incidentH.Delete)
	incidents.GET("/:id/enriched", incidentH.Enriched)

	health := api.Group("/health")
	health.GET("/detailed", healthH.Health)
	health.GET("/diagnostics", healthH.Diagnostics)

	r.NoRoute(notFoundHandler)
	return r
}
