package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-grantgate/grantgate/internal/services"

	"github.com/gin-gonic/gin"
)

type IntrospectHandler struct {
	grantService *services.GrantService
}

func NewIntrospectHandler(gs *services.GrantService) *IntrospectHandler {
	return &IntrospectHandler{grantService: gs}
}

// Introspect godoc
//
//	@Summary		Introspect a token
//	@Description	Resolve a token value to its metadata (RFC 7662). The caller's bearer token must carry the introspection scope.
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token	formData	string	true	"Token value to introspect"
//	@Success		200		{object}	services.IntrospectionResponse	"Introspection result; active=false for unknown tokens"
//	@Failure		400		{object}	object{error=string,error_description=string}	"Missing token parameter"
//	@Failure		401		{object}	object{error=string}	"Caller not authorized to introspect"
//	@Router			/oauth/introspect [post]
func (h *IntrospectHandler) Introspect(c *gin.Context) {
	callerToken := bearerToken(c)
	if callerToken == "" {
		c.Header("WWW-Authenticate", `Bearer realm="oauth"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	target := c.PostForm("token")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token is required",
		})
		return
	}

	resp, err := h.grantService.Introspect(c.Request.Context(), callerToken, target)
	if err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			c.Header("WWW-Authenticate", `Bearer realm="oauth", error="insufficient_scope"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
