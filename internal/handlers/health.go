package handlers

import (
	"net/http"

	"github.com/go-grantgate/grantgate/internal/cache"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/version"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	store  *store.Store
	tokens cache.Cache[models.Token]
}

func NewHealthHandler(s *store.Store, tokens cache.Cache[models.Token]) *HealthHandler {
	return &HealthHandler{
		store:  s,
		tokens: tokens,
	}
}

// Health godoc
//
//	@Summary		Health check
//	@Description	Reports database and cache health
//	@Tags			Ops
//	@Produce		json
//	@Success		200	{object}	object{status=string,version=string}	"All dependencies healthy"
//	@Failure		503	{object}	object{status=string,database=string,cache=string}	"A dependency is down"
//	@Router			/healthz [get]
func (h *HealthHandler) Health(c *gin.Context) {
	dbErr := h.store.Health()

	var cacheErr error
	if h.tokens != nil {
		cacheErr = h.tokens.Health(c.Request.Context())
	}

	if dbErr != nil || cacheErr != nil {
		resp := gin.H{"status": "unhealthy"}
		if dbErr != nil {
			resp["database"] = dbErr.Error()
		}
		if cacheErr != nil {
			resp["cache"] = cacheErr.Error()
		}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}
