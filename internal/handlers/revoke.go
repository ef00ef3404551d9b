package handlers

import (
	"errors"
	"net/http"

	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/services"

	"github.com/gin-gonic/gin"
)

type RevokeHandler struct {
	grantService  *services.GrantService
	clientService *services.ClientService
}

func NewRevokeHandler(gs *services.GrantService, cs *services.ClientService) *RevokeHandler {
	return &RevokeHandler{
		grantService:  gs,
		clientService: cs,
	}
}

// Revoke godoc
//
//	@Summary		Revoke a token
//	@Description	Revoke a token and everything issued under its grant (RFC 7009). Unknown tokens still return 200.
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	true	"Token value to revoke"
//	@Param			token_type_hint	formData	string	false	"access_token or refresh_token (advisory only)"
//	@Success		200				{object}	object{}	"Token revoked or already gone"
//	@Failure		400				{object}	object{error=string,error_description=string}	"Missing token parameter"
//	@Failure		401				{object}	object{error=string,error_description=string}	"Client authentication failed"
//	@Router			/oauth/revoke [post]
func (h *RevokeHandler) Revoke(c *gin.Context) {
	client, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	tokenValue := c.PostForm("token")
	if tokenValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token is required",
		})
		return
	}

	// token_type_hint is accepted but unused: the token hash index covers
	// every type, so the hinted lookup order never changes the outcome
	_ = c.PostForm("token_type_hint")

	if err := h.grantService.Revoke(c.Request.Context(), client, tokenValue); err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_client",
				"error_description": "Public client revocation is not enabled",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
		return
	}

	// RFC 7009 §2.2: success regardless of whether the token existed
	c.JSON(http.StatusOK, gin.H{})
}

func (h *RevokeHandler) authenticateClient(c *gin.Context) (*models.Client, bool) {
	clientID, clientSecret, ok := c.Request.BasicAuth()
	if !ok {
		clientID = c.PostForm("client_id")
		clientSecret = c.PostForm("client_secret")
	}

	client, err := h.clientService.Authenticate(c.Request.Context(), clientID, clientSecret)
	if err != nil {
		c.Header("WWW-Authenticate", `Basic realm="oauth"`)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_client",
			"error_description": "Client authentication failed",
		})
		return nil, false
	}
	return client, true
}
