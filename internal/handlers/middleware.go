package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	operatorCtxKey   = "operatorId"
	accessTokenQuery = "access_token"
	bearerScheme     = "Bearer"

	errMissingAuth = "missing Authorization header"
	errAuthFormat  = "invalid Authorization header format"
	errBadToken    = "invalid or expired token"
)

func (h *Handler) operatorMiddleware(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg == "" {
		id, err := h.services.ParseToken(token)
		if err == nil {
			c.Set(operatorCtxKey, id)
			c.Next()
			return
		}
		h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		msg = errBadToken
	}
	c.Header("WWW-Authenticate", bearerScheme)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// operatorID returns the id stored by operatorMiddleware, 0 on open routes.
func operatorID(c *gin.Context) int {
	return c.GetInt(operatorCtxKey)
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter. msg is non-empty when neither is usable.
func bearerToken(c *gin.Context) (token, msg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := strings.TrimSpace(c.Query(accessTokenQuery)); q != "" {
			return q, ""
		}
		return "", errMissingAuth
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		return "", errAuthFormat
	}
	return token, ""
}
