package handlers

import (
	"net/http"

	"github.com/go-grantgate/grantgate/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterHandler struct {
	clientService *services.ClientService
}

func NewRegisterHandler(cs *services.ClientService) *RegisterHandler {
	return &RegisterHandler{clientService: cs}
}

type registerRequest struct {
	ClientName string `json:"client_name"`
	ClientType string `json:"client_type"`
	Scope      string `json:"scope"`
	GrantTypes string `json:"grant_types"`
}

// Register godoc
//
//	@Summary		Register a client
//	@Description	Dynamic client registration. Returns the client credentials and a registration access token; the plaintext secret is never shown again.
//	@Tags			OAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Client metadata"
//	@Success		201		{object}	services.ClientRegistrationResponse	"Registered client"
//	@Failure		400		{object}	object{error=string,error_description=string}	"Malformed registration"
//	@Router			/connect/register [post]
func (h *RegisterHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_client_metadata",
			"error_description": "Request body must be a JSON client description",
		})
		return
	}

	resp, err := h.clientService.Register(c.Request.Context(), services.ClientRegistration{
		ClientName: req.ClientName,
		ClientType: req.ClientType,
		Scopes:     req.Scope,
		GrantTypes: req.GrantTypes,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_client_metadata",
			"error_description": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, resp)
}
