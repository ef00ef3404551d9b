package handlers

import (
	"net/http"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthorizeHandler struct {
	grantService  *services.GrantService
	clientService *services.ClientService
}

func NewAuthorizeHandler(gs *services.GrantService, cs *services.ClientService) *AuthorizeHandler {
	return &AuthorizeHandler{
		grantService:  gs,
		clientService: cs,
	}
}

// Authorize godoc
//
//	@Summary		Issue an authorization code
//	@Description	Headless code issuance for an already-authenticated authorization decision. The upstream gateway owns user login and consent; this endpoint records the grant and mints the code.
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			client_id	formData	string	true	"OAuth client ID"
//	@Param			user_id		formData	string	true	"Authenticated subject"
//	@Param			scope		formData	string	true	"Requested scope"
//	@Param			acr_values	formData	string	false	"Authentication context class references"
//	@Param			nonce		formData	string	false	"OIDC nonce echoed into the ID token"
//	@Success		200			{object}	object{code=string,expires_in=int}	"Authorization code"
//	@Failure		400			{object}	object{error=string,error_description=string}	"Invalid request or scope"
//	@Failure		401			{object}	object{error=string,error_description=string}	"Client authentication failed"
//	@Router			/oauth/authorize [post]
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	client, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	userID := c.PostForm("user_id")
	scope := c.PostForm("scope")
	if userID == "" || scope == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "user_id and scope are required",
		})
		return
	}

	_, code, err := h.grantService.CreateFromCode(c.Request.Context(), client, services.AuthorizeParams{
		ClientID:           client.ClientID,
		UserID:             userID,
		Scopes:             scope,
		AcrValues:          c.PostForm("acr_values"),
		AmrValues:          c.PostForm("amr_values"),
		AuthenticationTime: time.Now(),
		Nonce:              c.PostForm("nonce"),
		JwtRequest:         c.PostForm("request"),
	})
	if err != nil {
		respondGrantError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       code.RawToken,
		"expires_in": int(time.Until(code.ExpiresAt).Seconds()),
	})
}

func (h *AuthorizeHandler) authenticateClient(c *gin.Context) (*models.Client, bool) {
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
