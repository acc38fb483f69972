package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendorica-api/internal/config"
	"vendorica-api/internal/service"
)

// HealthHandler expone el estado del servicio sin autenticacion.
type HealthHandler struct {
	logger  *zap.Logger
	health  *service.HealthService
	cfg     *config.Config
	secrets service.SecretSource
}

func NewHealthHandler(logger *zap.Logger, health *service.HealthService, cfg *config.Config, secrets service.SecretSource) *HealthHandler {
	return &HealthHandler{logger: logger, health: health, cfg: cfg, secrets: secrets}
}

type diagnosticsReport struct {
	Environment          string   `json:"environment"`
	MissingKeys          []string `json:"missing_keys"`
	SigningSecretPresent bool     `json:"signing_secret_present"`
	EmailConfigured      bool     `json:"email_configured"`
	RedisConfigured      bool     `json:"redis_configured"`
	APIPrefix            string   `json:"api_prefix"`
}

// Health maneja GET /health y GET /internal/health/detailed.
//
//	@Summary	Service health
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	service.HealthStatus
//	@Failure	503	{object}	service.HealthStatus
//	@Router		/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status == service.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// Diagnostics maneja GET /internal/health/diagnostics. Solo en desarrollo;
// nunca expone valores de configuracion.
//
//	@Summary	Configuration diagnostics (development only)
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	envelope{data=diagnosticsReport}
//	@Failure	403	{object}	envelope
//	@Router		/health/diagnostics [get]
func (h *HealthHandler) Diagnostics(c *gin.Context) {
	if !h.cfg.IsDevelopment() {
		abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Diagnostics only available in development mode", nil)
		return
	}
	report := diagnosticsReport{
		Environment:          h.cfg.Env,
		MissingKeys:          h.cfg.MissingKeys(),
		SigningSecretPresent: h.secrets.SigningSecret() != "",
		EmailConfigured:      h.cfg.EmailConfigured(),
		RedisConfigured:      h.cfg.RedisAddr != "",
		APIPrefix:            h.cfg.APIPrefix,
	}
	if report.MissingKeys == nil {
		report.MissingKeys = []string{}
	}
	respond(c, http.StatusOK, envelope{Data: report, Message: "Environment diagnostics generated successfully"})
}

// Landing maneja GET /.
func (h *HealthHandler) Landing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Vendorica API",
		"version":     h.cfg.Version,
		"description": "Enterprise vendor risk management platform API",
		"status":      "operational",
		"environment": h.cfg.Env,
		"endpoints": gin.H{
			"health":        "/health",
			"documentation": "/docs/index.html",
			"metrics":       "/metrics",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
