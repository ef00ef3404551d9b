package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-grantgate/grantgate/internal/config"
	"github.com/go-grantgate/grantgate/internal/metrics"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/registry"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/token"

	"github.com/google/uuid"
)

// UmaService owns the UMA permission flow: the protection API that registers
// permission tickets and the token endpoint exchange that consumes them.
type UmaService struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	metrics  metrics.Recorder
	audit    *AuditService
}

func NewUmaService(
	cfg *config.Config,
	s *store.Store,
	r *registry.Registry,
	m metrics.Recorder,
	audit *AuditService,
) *UmaService {
	return &UmaService{
		cfg:      cfg,
		store:    s,
		registry: r,
		metrics:  m,
		audit:    audit,
	}
}

// PermissionRequest is one registered permission: a resource and the scopes
// the Resource Server wants granted on it.
type PermissionRequest struct {
	ResourceID        string
	ScopeIDs          []string
	ConfigurationCode string
	Attributes        models.TicketAttributes
}

// TicketResponse is handed back to the Resource Server after registration.
type TicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expires_in"`
}

// RegisterPermission validates a permission request against the resource
// registry and issues a fresh ticket. The caller authenticates with a PAT
// carrying the uma_protection scope.
func (u *UmaService) RegisterPermission(
	ctx context.Context,
	patRaw string,
	req PermissionRequest,
) (*TicketResponse, error) {
	pat, _, err := u.registry.FindByAccessToken(ctx, patRaw)
	if err != nil || pat.IsExpired() || !hasScope(pat.Scopes, u.cfg.UmaProtectionScope) {
		u.metrics.RecordTicketRegistered(false)
		return nil, ErrAccessDenied
	}

	if req.ResourceID == "" || len(req.ScopeIDs) == 0 {
		u.metrics.RecordTicketRegistered(false)
		return nil, ErrInvalidRequest
	}

	resource, err := u.store.GetResource(ctx, req.ResourceID)
	if err != nil {
		u.metrics.RecordTicketRegistered(false)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidResource
		}
		return nil, err
	}
	if !resource.HasScopes(req.ScopeIDs) {
		u.metrics.RecordTicketRegistered(false)
		return nil, ErrInvalidScope
	}

	var ticket *models.UmaPermissionTicket
	for attempt := 0; attempt < token.MaxGenerateAttempts; attempt++ {
		value, gerr := token.NewOpaqueValue()
		if gerr != nil {
			return nil, gerr
		}
		now := time.Now()
		ticket = &models.UmaPermissionTicket{
			Ticket:            value,
			ResourceID:        req.ResourceID,
			ScopeIDs:          strings.Join(req.ScopeIDs, " "),
			Status:            models.TicketStatusIssued,
			ConfigurationCode: req.ConfigurationCode,
			Attributes:        req.Attributes,
			ExpiresAt:         now.Add(u.cfg.UmaTicketExpiration),
			CreatedAt:         now,
			Deletable:         true,
		}
		err = u.store.CreateTicket(ctx, ticket)
		if !errors.Is(err, store.ErrDuplicateToken) {
			break
		}
	}
	if err != nil {
		u.metrics.RecordTicketRegistered(false)
		return nil, err
	}

	u.metrics.RecordTicketRegistered(true)
	u.audit.Log(AuditLogEntry{
		EventType:     models.EventPermissionTicketIssued,
		ActorClientID: pat.ClientID,
		ResourceType:  models.ResourceTicket,
		ResourceID:    req.ResourceID,
		Action:        "register_permission",
		Details: models.AuditDetails{
			"ticket": ticket.Ticket,
			"scopes": ticket.ScopeIDs,
		},
		Success: true,
	})

	return &TicketResponse{
		Ticket:    ticket.Ticket,
		ExpiresIn: ticket.TTLSeconds(),
	}, nil
}

// ExchangeTicket consumes a permission ticket into an RPT grant. At most one
// exchange per ticket ever succeeds: the store's conditional update decides
// the winner, and grant plus RPT are created in that same transaction.
func (u *UmaService) ExchangeTicket(
	ctx context.Context,
	client *models.Client,
	rawTicket string,
) (*TokenSet, error) {
	start := time.Now()

	if !client.AllowsGrantType(models.GrantTypeUmaTicket) {
		return nil, ErrUnauthorizedGrantType
	}

	ticket, err := u.store.GetTicket(ctx, rawTicket)
	if err != nil {
		u.metrics.RecordTicketExchange("invalid")
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidTicket
		}
		return nil, err
	}

	var set *TokenSet
	err = u.withTokenRetry(func() error {
		grant := &models.AuthorizationGrant{
			GrantID:    uuid.New().String(),
			GrantType:  models.GrantTypeUmaTicket,
			ClientID:   client.ClientID,
			Scopes:     ticket.ScopeIDs,
			TicketID:   ticket.Ticket,
			Attributes: ticket.Attributes,
			CreatedAt:  time.Now(),
		}

		rpt, mintErr := token.Mint(
			models.TokenTypeAccessToken,
			grant.GrantID, client.ClientID, "", ticket.ScopeIDs,
			u.cfg.AccessTokenExpiration,
		)
		if mintErr != nil {
			return mintErr
		}
		refresh, mintErr := token.Mint(
			models.TokenTypeRefreshToken,
			grant.GrantID, client.ClientID, "", ticket.ScopeIDs,
			u.cfg.RefreshTokenExpiration,
		)
		if mintErr != nil {
			return mintErr
		}

		txErr := u.store.ConsumeTicket(ctx, ticket.Ticket, grant,
			[]*models.Token{rpt, refresh})
		if txErr != nil {
			return txErr
		}

		set = &TokenSet{
			AccessToken:  rpt,
			RefreshToken: refresh,
			Scope:        ticket.ScopeIDs,
			ExpiresIn:    int(time.Until(rpt.ExpiresAt).Seconds()),
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTicketNotFound):
			u.metrics.RecordTicketExchange("invalid")
			return nil, ErrInvalidTicket
		case errors.Is(err, store.ErrTicketConsumed):
			u.metrics.RecordTicketExchange("consumed")
			return nil, ErrInvalidTicket
		case errors.Is(err, store.ErrTicketExpired):
			u.metrics.RecordTicketExchange("expired")
			return nil, ErrTicketExpired
		}
		return nil, err
	}

	u.metrics.RecordTicketExchange("success")
	u.metrics.RecordTokenIssued(
		string(models.TokenTypeAccessToken),
		string(models.GrantTypeUmaTicket),
		time.Since(start),
	)
	u.audit.Log(AuditLogEntry{
		EventType:     models.EventPermissionTicketConsumed,
		ActorClientID: client.ClientID,
		ResourceType:  models.ResourceTicket,
		ResourceID:    ticket.ResourceID,
		Action:        "exchange_ticket",
		Details: models.AuditDetails{
			"ticket": ticket.Ticket,
			"scopes": ticket.ScopeIDs,
		},
		Success: true,
	})

	return set, nil
}

// RegisterResource adds a protected resource to the registry on behalf of a
// Resource Server holding a PAT.
func (u *UmaService) RegisterResource(
	ctx context.Context,
	patRaw string,
	resourceID, name string,
	scopes []string,
) (*models.UmaResource, error) {
	pat, _, err := u.registry.FindByAccessToken(ctx, patRaw)
	if err != nil || pat.IsExpired() || !hasScope(pat.Scopes, u.cfg.UmaProtectionScope) {
		return nil, ErrAccessDenied
	}
	if resourceID == "" || len(scopes) == 0 {
		return nil, ErrInvalidRequest
	}

	resource := &models.UmaResource{
		ResourceID:    resourceID,
		Name:          name,
		Scopes:        strings.Join(scopes, " "),
		OwnerClientID: pat.ClientID,
		CreatedAt:     time.Now(),
	}
	if err := u.store.CreateResource(ctx, resource); err != nil {
		if store.IsDuplicate(err) {
			return nil, ErrInvalidResource
		}
		return nil, err
	}

	return resource, nil
}

func (u *UmaService) withTokenRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < token.MaxGenerateAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrDuplicateToken) {
			return err
		}
	}
	return token.ErrGeneration
}
