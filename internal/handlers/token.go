package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	// https://datatracker.ietf.org/doc/html/rfc6749#section-4.1
	GrantTypeAuthorizationCode = "authorization_code"
	// https://datatracker.ietf.org/doc/html/rfc6749#section-6
	GrantTypeRefreshToken = "refresh_token"
	// https://datatracker.ietf.org/doc/html/rfc6749#section-4.4
	GrantTypeClientCredentials = "client_credentials"
	// https://docs.kantarainitiative.org/uma/wg/rec-oauth-uma-grant-2.0.html
	GrantTypeUmaTicket = "urn:ietf:params:oauth:grant-type:uma-ticket"
)

type TokenHandler struct {
	grantService  *services.GrantService
	umaService    *services.UmaService
	clientService *services.ClientService
}

func NewTokenHandler(
	gs *services.GrantService,
	us *services.UmaService,
	cs *services.ClientService,
) *TokenHandler {
	return &TokenHandler{
		grantService:  gs,
		umaService:    us,
		clientService: cs,
	}
}

// Token godoc
//
//	@Summary		Request access token
//	@Description	Exchange an authorization code, refresh token, client credentials, or UMA permission ticket for tokens (RFC 6749, UMA 2.0)
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string																							true	"Grant type"
//	@Param			code			formData	string																							false	"Authorization code (grant_type=authorization_code)"
//	@Param			refresh_token	formData	string																							false	"Refresh token (grant_type=refresh_token)"
//	@Param			ticket			formData	string																							false	"Permission ticket (grant_type=uma-ticket)"
//	@Param			scope			formData	string																							false	"Requested scope (narrowing only)"
//	@Success		200				{object}	object{access_token=string,refresh_token=string,id_token=string,token_type=string,expires_in=int,scope=string}	"Tokens issued"
//	@Failure		400				{object}	object{error=string,error_description=string}													"OAuth error"
//	@Failure		401				{object}	object{error=string,error_description=string}													"Client authentication failed"
//	@Router			/oauth/token [post]
func (h *TokenHandler) Token(c *gin.Context) {
	client, ok := h.authenticateClient(c)
	if !ok {
		return
	}

	grantType := c.PostForm("grant_type")

	switch grantType {
	case GrantTypeAuthorizationCode:
		h.handleAuthorizationCodeGrant(c, client)
	case GrantTypeRefreshToken:
		h.handleRefreshTokenGrant(c, client)
	case GrantTypeClientCredentials:
		h.handleClientCredentialsGrant(c, client)
	case GrantTypeUmaTicket:
		h.handleUmaTicketGrant(c, client)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "Supported grant types: authorization_code, refresh_token, client_credentials, uma-ticket",
		})
	}
}

// handleAuthorizationCodeGrant handles authorization code exchange (RFC 6749 §4.1.3)
func (h *TokenHandler) handleAuthorizationCodeGrant(c *gin.Context, client *models.Client) {
	code := c.PostForm("code")
	requestedScopes := c.PostForm("scope") // Optional

	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "code is required",
		})
		return
	}

	set, err := h.grantService.ExchangeCode(c.Request.Context(), client, code, requestedScopes)
	if err != nil {
		respondGrantError(c, err)
		return
	}

	respondTokenSet(c, set)
}

// handleRefreshTokenGrant handles refresh token exchange (RFC 6749 §6)
func (h *TokenHandler) handleRefreshTokenGrant(c *gin.Context, client *models.Client) {
	refreshToken := c.PostForm("refresh_token")
	requestedScopes := c.PostForm("scope") // Optional

	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "refresh_token is required",
		})
		return
	}

	set, err := h.grantService.Refresh(c.Request.Context(), client, refreshToken, requestedScopes)
	if err != nil {
		respondGrantError(c, err)
		return
	}

	respondTokenSet(c, set)
}

// handleClientCredentialsGrant handles the client credentials grant (RFC 6749 §4.4)
func (h *TokenHandler) handleClientCredentialsGrant(c *gin.Context, client *models.Client) {
	requestedScopes := c.PostForm("scope") // Optional

	set, err := h.grantService.ClientCredentials(c.Request.Context(), client, requestedScopes)
	if err != nil {
		respondGrantError(c, err)
		return
	}

	respondTokenSet(c, set)
}

// handleUmaTicketGrant handles the UMA 2.0 grant: permission ticket -> RPT
func (h *TokenHandler) handleUmaTicketGrant(c *gin.Context, client *models.Client) {
	ticket := c.PostForm("ticket")

	if ticket == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "ticket is required",
		})
		return
	}

	set, err := h.umaService.ExchangeTicket(c.Request.Context(), client, ticket)
	if err != nil {
		respondGrantError(c, err)
		return
	}

	respondTokenSet(c, set)
}

// authenticateClient resolves client credentials from HTTP Basic auth or the
// form body (RFC 6749 §2.3.1). Writes the error response itself on failure.
func (h *TokenHandler) authenticateClient(c *gin.Context) (*models.Client, bool) {
	clientID, clientSecret, ok := c.Request.BasicAuth()
	if ok {
		// Basic auth credentials are form-urlencoded before base64
		if id, err := url.QueryUnescape(clientID); err == nil {
			clientID = id
		}
		if sec, err := url.QueryUnescape(clientSecret); err == nil {
			clientSecret = sec
		}
	} else {
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

// respondGrantError maps service errors onto RFC 6749 / UMA error codes
func respondGrantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidGrant):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_grant",
			"error_description": "The provided grant is invalid, expired, or revoked",
		})
	case errors.Is(err, services.ErrInvalidScope):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_scope",
			"error_description": "The requested scope exceeds the granted scope",
		})
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "The request is missing a parameter or is otherwise malformed",
		})
	case errors.Is(err, services.ErrUnauthorizedGrantType):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unauthorized_client",
			"error_description": "The client is not authorized to use this grant type",
		})
	case errors.Is(err, services.ErrInvalidClient):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_client",
			"error_description": "Client authentication failed",
		})
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "access_denied",
		})
	case errors.Is(err, services.ErrInvalidTicket):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_ticket",
			"error_description": "The permission ticket is invalid or has already been used",
		})
	case errors.Is(err, services.ErrTicketExpired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "expired_ticket",
			"error_description": "The permission ticket has expired",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
	}
}

func respondTokenSet(c *gin.Context, set *services.TokenSet) {
	resp := gin.H{
		"access_token": set.AccessToken.RawToken,
		"token_type":   "Bearer",
		"expires_in":   set.ExpiresIn,
		"scope":        set.Scope,
	}
	if set.RefreshToken != nil {
		resp["refresh_token"] = set.RefreshToken.RawToken
	}
	if set.IDToken != "" {
		resp["id_token"] = set.IDToken
	}
	c.JSON(http.StatusOK, resp)
}
