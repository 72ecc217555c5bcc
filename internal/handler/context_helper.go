package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uniflow-academic-api/internal/middleware"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

// studentIDFromContext returns the authenticated student or an unauthorized error.
func studentIDFromContext(c *gin.Context) (string, error) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	return principal.StudentID(), nil
}
