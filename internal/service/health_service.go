package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vendorica-api/internal/db"
)

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"

	ServiceOperational = "operational"
	ServiceDegraded    = "degraded"
	ServiceDown        = "down"

	databaseCheckTimeout = 5 * time.Second
	slowDatabaseLatency  = time.Second
)

type HealthServices struct {
	API      string `json:"api"`
	Database string `json:"database"`
	Email    string `json:"email"`
}

type HealthResponseTimes struct {
	Database string `json:"database"`
}

type HealthStatus struct {
	Status        string               `json:"status"`
	Timestamp     time.Time            `json:"timestamp"`
	Version       string               `json:"version"`
	Environment   string               `json:"environment"`
	Uptime        string               `json:"uptime"`
	Services      HealthServices       `json:"services"`
	ResponseTimes *HealthResponseTimes `json:"response_times,omitempty"`
}

type HealthConfig struct {
	Version         string
	Environment     string
	EmailConfigured bool
}

// HealthService reporta el estado del proceso y sus dependencias.
type HealthService struct {
	logger  *zap.Logger
	db      db.Pinger
	cfg     HealthConfig
	started time.Time
	timeout time.Duration
	now     func() time.Time
}

func NewHealthService(logger *zap.Logger, pinger db.Pinger, cfg HealthConfig) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthService{
		logger:  logger,
		db:      pinger,
		cfg:     cfg,
		started: time.Now(),
		timeout: databaseCheckTimeout,
		now:     time.Now,
	}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	dbStatus, latency := s.checkDatabase(ctx)
	emailStatus := ServiceDown
	if s.cfg.EmailConfigured {
		emailStatus = ServiceOperational
	}

	status := HealthStatus{
		Timestamp:   s.now().UTC(),
		Version:     s.cfg.Version,
		Environment: s.cfg.Environment,
		Uptime:      formatUptime(s.now().Sub(s.started)),
		Services: HealthServices{
			API:      ServiceOperational,
			Database: dbStatus,
			Email:    emailStatus,
		},
	}
	status.Status = overallStatus(status.Services)
	if latency > slowDatabaseLatency {
		status.ResponseTimes = &HealthResponseTimes{Database: fmt.Sprintf("%dms", latency.Milliseconds())}
	}
	return status
}

func (s *HealthService) checkDatabase(ctx context.Context) (string, time.Duration) {
	if s.db == nil {
		return ServiceDown, 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.db.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		s.logger.Warn("database health check failed", zap.Duration("latency", latency), zap.Error(err))
		return ServiceDown, latency
	}
	if latency > s.timeout {
		return ServiceDegraded, latency
	}
	return ServiceOperational, latency
}

func overallStatus(services HealthServices) string {
	if services.Database == ServiceDown {
		return HealthUnhealthy
	}
	for _, st := range []string{services.API, services.Database, services.Email} {
		if st != ServiceOperational {
			return HealthDegraded
		}
	}
	return HealthHealthy
}

func formatUptime(d time.Duration) string {
	seconds := int64(d.Seconds())
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
