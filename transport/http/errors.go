package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/internal/logging"
)

// errorStatus pairs a domain error with the status it maps to
type errorStatus struct {
	err    error
	status int
}

var errorStatuses = []errorStatus{
	{core.ErrMalformedMessage, http.StatusBadRequest},
	{core.ErrDomainMismatch, http.StatusBadRequest},
	{core.ErrInvalidOrUsedNonce, http.StatusBadRequest},
	{core.ErrBadSignature, http.StatusBadRequest},
	{core.ErrSignatureMismatch, http.StatusBadRequest},
	{core.ErrInvalidAddress, http.StatusBadRequest},
	{core.ErrInvalidDeployment, http.StatusBadRequest},
	{core.ErrUnsupportedNetwork, http.StatusBadRequest},
	{core.ErrNoSession, http.StatusUnauthorized},
	{core.ErrInvalidSession, http.StatusUnauthorized},
	{core.ErrUserNotFound, http.StatusNotFound},
	{core.ErrDeploymentNotFound, http.StatusNotFound},
	{core.ErrArtifactNotFound, http.StatusNotFound},
}

// respondError writes {"error": reason}. Known domain errors expose their
// sentinel text, anything else is logged and reported as an internal error.
func respondError(c *gin.Context, err error) {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			c.AbortWithStatusJSON(es.status, gin.H{"error": es.err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	logging.FromContext(ctx).ErrorContext(ctx, "request failed", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
