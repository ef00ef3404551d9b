package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-grantgate/grantgate/internal/config"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Registration defaults applied when the request omits them
const (
	defaultGrantTypes = "authorization_code refresh_token"
	defaultScopes     = "openid profile"
)

// ClientService handles dynamic client registration and client authentication.
type ClientService struct {
	cfg   *config.Config
	store *store.Store
	audit *AuditService
}

func NewClientService(cfg *config.Config, s *store.Store, audit *AuditService) *ClientService {
	return &ClientService{
		cfg:   cfg,
		store: s,
		audit: audit,
	}
}

// ClientRegistration is a dynamic registration request.
type ClientRegistration struct {
	ClientName string
	ClientType string // confidential (default) or public
	Scopes     string
	GrantTypes string
}

// ClientRegistrationResponse carries the only copy of the plaintext secret
// the server ever produces.
type ClientRegistrationResponse struct {
	ClientID                string `json:"client_id"`
	ClientSecret            string `json:"client_secret,omitempty"`
	ClientName              string `json:"client_name,omitempty"`
	RegistrationAccessToken string `json:"registration_access_token"`
	GrantTypes              string `json:"grant_types"`
	Scopes                  string `json:"scope"`
}

// Register creates a client and mints its registration access token. The
// token lives under a client_credentials grant so revocation cascades the
// same way as for every other credential.
func (c *ClientService) Register(
	ctx context.Context,
	req ClientRegistration,
) (*ClientRegistrationResponse, error) {
	clientType := req.ClientType
	switch clientType {
	case "":
		clientType = models.ClientTypeConfidential
	case models.ClientTypeConfidential, models.ClientTypePublic:
	default:
		return nil, ErrInvalidRequest
	}

	grantTypes := req.GrantTypes
	if grantTypes == "" {
		grantTypes = defaultGrantTypes
	}
	scopes := req.Scopes
	if scopes == "" {
		scopes = defaultScopes
	}

	clientID := uuid.New().String()

	var plainSecret string
	var hashedSecret string
	if clientType == models.ClientTypeConfidential {
		secret, err := token.NewOpaqueValue()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		plainSecret = secret
		hashedSecret = string(hash)
	}

	client := &models.Client{
		ClientID:     clientID,
		ClientSecret: hashedSecret,
		ClientName:   req.ClientName,
		ClientType:   clientType,
		Scopes:       scopes,
		GrantTypes:   grantTypes,
		IsActive:     true,
	}
	if err := c.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}

	grant := &models.AuthorizationGrant{
		GrantID:   uuid.New().String(),
		GrantType: models.GrantTypeClientCredentials,
		ClientID:  clientID,
		Scopes:    "registration",
		CreatedAt: time.Now(),
	}

	var regToken *models.Token
	var err error
	for attempt := 0; attempt < token.MaxGenerateAttempts; attempt++ {
		regToken, err = token.Mint(
			models.TokenTypeRegistrationAccess,
			grant.GrantID, clientID, "", "registration",
			c.cfg.RegistrationTokenExpiration,
		)
		if err != nil {
			return nil, err
		}
		err = c.store.CreateGrantWithToken(ctx, grant, regToken)
		if !errors.Is(err, store.ErrDuplicateToken) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	c.audit.Log(AuditLogEntry{
		EventType:     models.EventClientRegistered,
		ActorClientID: clientID,
		ResourceType:  models.ResourceClient,
		ResourceID:    clientID,
		Action:        "register_client",
		Details: models.AuditDetails{
			"client_type": clientType,
			"grant_types": grantTypes,
		},
		Success: true,
	})

	return &ClientRegistrationResponse{
		ClientID:                clientID,
		ClientSecret:            plainSecret,
		ClientName:              req.ClientName,
		RegistrationAccessToken: regToken.RawToken,
		GrantTypes:              grantTypes,
		Scopes:                  scopes,
	}, nil
}

// Authenticate resolves and verifies client credentials. Confidential clients
// must present their secret; public clients must not have one.
func (c *ClientService) Authenticate(
	ctx context.Context,
	clientID, clientSecret string,
) (*models.Client, error) {
	if clientID == "" {
		return nil, ErrInvalidClient
	}

	client, err := c.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !client.IsActive {
		return nil, ErrInvalidClient
	}

	if client.IsPublic() {
		if clientSecret != "" {
			return nil, ErrInvalidClient
		}
		return client, nil
	}

	if !client.ValidateSecret(clientSecret) {
		return nil, ErrInvalidClient
	}
	return client, nil
}
