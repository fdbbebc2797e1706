package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError writes err with the status of its kind. Server-side failures are
// logged and their details kept out of the response.
func respondError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)

	if status >= http.StatusInternalServerError {
		logger.Error("Failed to "+action, slog.String("error", err.Error()), slog.String("kind", string(kind)))
		c.JSON(status, dto.ErrorResponse{Error: string(kind), Message: "Failed to " + action})
		return
	}
	logger.Warn("Request rejected", slog.String("action", action), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	c.JSON(status, dto.ErrorResponse{Error: string(kind), Message: apperrors.MessageOf(err)})
}

func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   string(apperrors.KindValidation),
		Message: "Invalid request format: " + err.Error(),
	})
}

// actorOrAbort returns the authenticated caller, answering 401 when there is none.
func actorOrAbort(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "UNAUTHORIZED", Message: "Unauthorized"})
	}
	return actor, ok
}
