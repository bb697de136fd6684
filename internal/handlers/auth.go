package handlers

import (
	"errors"
	"net/http"

	"matrix_orchestrator/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errBadCredentials = "invalid credentials"
	errSignInDisabled = "sign-in disabled: auth.signing_key is not configured"
)

type authCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Sign in
// @Description  Exchanges operator credentials from the config file for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      authCredentials  true  "username and password"
// @Success      200          {object}  map[string]string  "token, token_type"
// @Failure      400          {object}  map[string]string
// @Failure      401          {object}  map[string]string
// @Failure      503          {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var input authCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.Infow("auth_bad_request_body", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.services.GenerateToken(input.Username, input.Password)
	switch {
	case errors.Is(err, service.ErrNoSigningKey):
		h.log.Warnw("auth_sign_in_disabled", "username", input.Username)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errSignInDisabled})
		return
	case err != nil:
		// unknown user and wrong password look the same to the caller
		h.log.Infow("auth_sign_in_failed", "username", input.Username, "err", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": errBadCredentials})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "Bearer"})
}
