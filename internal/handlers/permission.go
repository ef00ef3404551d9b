package handlers

import (
	"errors"
	"net/http"

	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/services"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	umaService *services.UmaService
}

func NewPermissionHandler(us *services.UmaService) *PermissionHandler {
	return &PermissionHandler{umaService: us}
}

type permissionRequest struct {
	ResourceID        string            `json:"resource_id" binding:"required"`
	ResourceScopes    []string          `json:"resource_scopes" binding:"required"`
	ConfigurationCode string            `json:"configuration_code"`
	Attributes        map[string]string `json:"attributes"`
}

// RegisterPermission godoc
//
//	@Summary		Register a permission request
//	@Description	Register a pending permission on behalf of a Resource Server and receive a ticket (UMA 2.0 Federated Authz §4.1). Requires a PAT with the uma_protection scope.
//	@Tags			UMA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		permissionRequest	true	"Resource and scopes the client needs"
//	@Success		201		{object}	services.TicketResponse	"Permission ticket"
//	@Failure		400		{object}	object{error=string,error_description=string}	"Unknown resource or scope"
//	@Failure		401		{object}	object{error=string}	"Missing or insufficient PAT"
//	@Router			/uma/permission [post]
func (h *PermissionHandler) RegisterPermission(c *gin.Context) {
	pat := bearerToken(c)
	if pat == "" {
		c.Header("WWW-Authenticate", `Bearer realm="uma"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "resource_id and resource_scopes are required",
		})
		return
	}

	resp, err := h.umaService.RegisterPermission(c.Request.Context(), pat, services.PermissionRequest{
		ResourceID:        req.ResourceID,
		ScopeIDs:          req.ResourceScopes,
		ConfigurationCode: req.ConfigurationCode,
		Attributes:        models.TicketAttributes(req.Attributes),
	})
	if err != nil {
		respondUmaError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

type resourceRequest struct {
	ResourceID string   `json:"resource_id" binding:"required"`
	Name       string   `json:"name"`
	Scopes     []string `json:"resource_scopes" binding:"required"`
}

// RegisterResource godoc
//
//	@Summary		Register a protected resource
//	@Description	Add a resource to the registry so permission requests can be validated against it. Requires a PAT with the uma_protection scope.
//	@Tags			UMA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		resourceRequest	true	"Resource description"
//	@Success		201		{object}	object{resource_id=string}	"Resource registered"
//	@Failure		400		{object}	object{error=string,error_description=string}	"Malformed or duplicate resource"
//	@Failure		401		{object}	object{error=string}	"Missing or insufficient PAT"
//	@Router			/uma/resource [post]
func (h *PermissionHandler) RegisterResource(c *gin.Context) {
	pat := bearerToken(c)
	if pat == "" {
		c.Header("WWW-Authenticate", `Bearer realm="uma"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "resource_id and resource_scopes are required",
		})
		return
	}

	resource, err := h.umaService.RegisterResource(
		c.Request.Context(), pat, req.ResourceID, req.Name, req.Scopes)
	if err != nil {
		respondUmaError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"resource_id": resource.ResourceID})
}

func respondUmaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAccessDenied):
		c.Header("WWW-Authenticate", `Bearer realm="uma", error="insufficient_scope"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
	case errors.Is(err, services.ErrInvalidResource):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_resource_id",
			"error_description": "The referenced resource does not exist or is already registered",
		})
	case errors.Is(err, services.ErrInvalidScope):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_scope",
			"error_description": "One or more scopes are not registered on the resource",
		})
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "The request is missing a required parameter",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
	}
}
