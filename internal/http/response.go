package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"vendorica-api/internal/apperr"
)

// envelope es el cuerpo comun de todas las respuestas.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Token     string `json:"token,omitempty"`
	User      any    `json:"user,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

func respond(c *gin.Context, status int, body envelope) {
	body.Success = true
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	body.RequestID = RequestID(c)
	c.JSON(status, body)
}

func respondMessage(c *gin.Context, message string) {
	respond(c, http.StatusOK, envelope{Message: message})
}

// respondError traduce err al envelope de error. Las causas internas solo
// van al log.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("request_id", RequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	abortWithError(c, status, apperr.Code(err), apperr.Message(err), apperr.Details(err))
}

func abortWithError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, envelope{
		Success:   false,
		Error:     message,
		Code:      code,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: RequestID(c),
	})
}

// bindError traduce una falla de binding: campos invalidos dan 400
// VALIDATION_ERROR con detalle por campo, un body ilegible da BAD_REQUEST.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		return apperr.Validation("Invalid request").WithDetails(details)
	}
	return apperr.New(apperr.ErrBadRequest, "", "Invalid request body").Wrap(err)
}

func notFoundHandler(c *gin.Context) {
	abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Endpoint not found: "+c.Request.Method+" "+c.Request.URL.Path, nil)
}
