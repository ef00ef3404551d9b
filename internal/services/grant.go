package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-grantgate/grantgate/internal/config"
	"github.com/go-grantgate/grantgate/internal/metrics"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/registry"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/token"
	"github.com/go-grantgate/grantgate/internal/util"

	"github.com/google/uuid"
)

// RevokeAnyScope is the registered scope a client needs before it may revoke
// tokens issued to other clients.
const RevokeAnyScope = "revoke_any"

// GrantService owns the authorization grant lifecycle: code issuance, code
// exchange, refresh, revocation, and introspection.
type GrantService struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	metrics  metrics.Recorder
	audit    *AuditService
}

func NewGrantService(
	cfg *config.Config,
	s *store.Store,
	r *registry.Registry,
	m metrics.Recorder,
	audit *AuditService,
) *GrantService {
	return &GrantService{
		cfg:      cfg,
		store:    s,
		registry: r,
		metrics:  m,
		audit:    audit,
	}
}

// AuthorizeParams carries the outcome of an authorization decision into code
// issuance. The caller has already authenticated the user; this service only
// records the event and mints the code.
type AuthorizeParams struct {
	ClientID           string
	UserID             string
	Scopes             string
	AcrValues          string
	AmrValues          string
	AuthenticationTime time.Time
	Nonce              string
	JwtRequest         string
}

// TokenSet is the result of a successful token endpoint exchange.
type TokenSet struct {
	AccessToken  *models.Token
	RefreshToken *models.Token // nil when the grant type cannot refresh
	IDToken      string        // signed JWT; empty unless openid scope granted
	Scope        string
	ExpiresIn    int
}

// CreateFromCode creates a new authorization_code grant and its single
// authorization code atomically. The grant is never visible without its code.
func (g *GrantService) CreateFromCode(
	ctx context.Context,
	client *models.Client,
	params AuthorizeParams,
) (*models.AuthorizationGrant, *models.Token, error) {
	if !client.AllowsGrantType(models.GrantTypeAuthorizationCode) {
		return nil, nil, ErrUnauthorizedGrantType
	}
	if params.Scopes == "" || !client.AllowsScopes(params.Scopes) {
		return nil, nil, ErrInvalidScope
	}
	if params.UserID == "" {
		return nil, nil, ErrInvalidRequest
	}

	authTime := params.AuthenticationTime
	if authTime.IsZero() {
		authTime = time.Now()
	}

	grant := &models.AuthorizationGrant{
		GrantID:            uuid.New().String(),
		GrantType:          models.GrantTypeAuthorizationCode,
		ClientID:           client.ClientID,
		UserID:             params.UserID,
		Scopes:             params.Scopes,
		AcrValues:          params.AcrValues,
		AmrValues:          params.AmrValues,
		AuthenticationTime: authTime,
		Nonce:              params.Nonce,
		JwtRequest:         params.JwtRequest,
		CreatedAt:          time.Now(),
	}

	var code *models.Token
	err := g.withTokenRetry(func() error {
		var mintErr error
		code, mintErr = token.Mint(
			models.TokenTypeAuthorizationCode,
			grant.GrantID, client.ClientID, params.UserID, params.Scopes,
			g.cfg.AuthCodeExpiration,
		)
		if mintErr != nil {
			return mintErr
		}
		return g.store.CreateGrantWithToken(ctx, grant, code)
	})
	if err != nil {
		return nil, nil, err
	}

	g.audit.Log(AuditLogEntry{
		EventType:     models.EventAuthorizationCodeIssued,
		ActorClientID: client.ClientID,
		ActorUserID:   params.UserID,
		ResourceType:  models.ResourceGrant,
		ResourceID:    grant.GrantID,
		Action:        "issue_authorization_code",
		Details:       models.AuditDetails{"scopes": params.Scopes},
		Success:       true,
	})

	return grant, code, nil
}

// ExchangeCode swaps an authorization code for tokens. The code is single-use:
// the store's conditional delete decides the winner of concurrent exchanges,
// and a replay revokes everything already issued under the grant (RFC 6749 §4.1.2).
func (g *GrantService) ExchangeCode(
	ctx context.Context,
	client *models.Client,
	rawCode, requestedScopes string,
) (*TokenSet, error) {
	start := time.Now()

	codeTok, grant, err := g.registry.FindByCode(ctx, rawCode)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if codeTok.ClientID != client.ClientID {
		return nil, ErrInvalidGrant
	}
	if codeTok.IsExpired() {
		return nil, ErrInvalidGrant
	}
	if !token.ScopesSubset(grant.Scopes, requestedScopes) {
		return nil, ErrInvalidScope
	}
	scopes := requestedScopes
	if scopes == "" {
		scopes = grant.Scopes
	}

	var set *TokenSet
	err = g.withTokenRetry(func() error {
		newTokens, ts, mintErr := g.mintTokenSet(grant, scopes, true)
		if mintErr != nil {
			return mintErr
		}
		if txErr := g.store.ExchangeCodeTokens(ctx, codeTok.TokenHash, newTokens); txErr != nil {
			return txErr
		}
		set = ts
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrCodeAlreadyUsed) {
			// Code replay: kill everything the first exchange issued
			g.revokeGrantForReplay(ctx, grant)
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	g.recordIssued(set, grant.GrantType, time.Since(start))
	g.audit.Log(AuditLogEntry{
		EventType:     models.EventAuthorizationCodeExchanged,
		ActorClientID: client.ClientID,
		ActorUserID:   grant.UserID,
		ResourceType:  models.ResourceGrant,
		ResourceID:    grant.GrantID,
		Action:        "exchange_authorization_code",
		Details:       models.AuditDetails{"scopes": scopes},
		Success:       true,
	})

	return set, nil
}

// ClientCredentials creates a client_credentials grant with a single access
// token. No user, no refresh token (RFC 6749 §4.4.3).
func (g *GrantService) ClientCredentials(
	ctx context.Context,
	client *models.Client,
	requestedScopes string,
) (*TokenSet, error) {
	start := time.Now()

	if client.IsPublic() {
		return nil, ErrInvalidClient
	}
	if !client.AllowsGrantType(models.GrantTypeClientCredentials) {
		return nil, ErrUnauthorizedGrantType
	}
	scopes := requestedScopes
	if scopes == "" {
		scopes = client.Scopes
	}
	if !client.AllowsScopes(scopes) {
		return nil, ErrInvalidScope
	}
	// client_credentials grants cannot refresh, so offline_access is
	// unsatisfiable here
	if hasScope(scopes, "offline_access") {
		return nil, ErrInvalidRequest
	}

	grant := &models.AuthorizationGrant{
		GrantID:   uuid.New().String(),
		GrantType: models.GrantTypeClientCredentials,
		ClientID:  client.ClientID,
		Scopes:    scopes,
		CreatedAt: time.Now(),
	}

	var access *models.Token
	err := g.withTokenRetry(func() error {
		var mintErr error
		access, mintErr = token.Mint(
			models.TokenTypeAccessToken,
			grant.GrantID, client.ClientID, "", scopes,
			g.cfg.AccessTokenExpiration,
		)
		if mintErr != nil {
			return mintErr
		}
		return g.store.CreateGrantWithToken(ctx, grant, access)
	})
	if err != nil {
		return nil, err
	}

	set := &TokenSet{
		AccessToken: access,
		Scope:       scopes,
		ExpiresIn:   int(time.Until(access.ExpiresAt).Seconds()),
	}
	g.recordIssued(set, grant.GrantType, time.Since(start))
	g.audit.Log(AuditLogEntry{
		EventType:     models.EventAccessTokenIssued,
		ActorClientID: client.ClientID,
		ResourceType:  models.ResourceGrant,
		ResourceID:    grant.GrantID,
		Action:        "client_credentials_grant",
		Details:       models.AuditDetails{"scopes": scopes},
		Success:       true,
	})

	return set, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation
// enabled the presented refresh token is retired and the grant's prior access
// tokens are revoked; otherwise the refresh token is long-lived and only its
// last_used_at moves. A refresh racing a revocation loses cleanly: the
// conditional mutation inside the store either sees the token or it is gone.
func (g *GrantService) Refresh(
	ctx context.Context,
	client *models.Client,
	rawRefresh, requestedScopes string,
) (*TokenSet, error) {
	start := time.Now()

	refreshTok, grant, err := g.registry.FindByRefreshToken(ctx, client.ClientID, rawRefresh)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			g.metrics.RecordTokenRefresh(false)
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if refreshTok.IsExpired() {
		g.metrics.RecordTokenRefresh(false)
		return nil, ErrInvalidGrant
	}
	if !grant.CanRefresh() {
		g.metrics.RecordTokenRefresh(false)
		return nil, ErrInvalidGrant
	}
	// Narrowing is measured against the refresh token's own scope set, which
	// may already be narrower than the grant's
	if !token.ScopesSubset(refreshTok.Scopes, requestedScopes) {
		g.metrics.RecordTokenRefresh(false)
		return nil, ErrInvalidScope
	}
	scopes := requestedScopes
	if scopes == "" {
		scopes = refreshTok.Scopes
	}

	rotate := g.cfg.EnableTokenRotation

	// Collect the hashes rotation will retire so the lookup cache can be
	// purged after the transaction commits
	var staleHashes []string
	if rotate {
		staleHashes = append(staleHashes, refreshTok.TokenHash)
		if priorTokens, lerr := g.store.GetTokensByGrantID(ctx, grant.GrantID); lerr == nil {
			for _, t := range priorTokens {
				if t.TokenType == models.TokenTypeAccessToken {
					staleHashes = append(staleHashes, t.TokenHash)
				}
			}
		}
	}

	var set *TokenSet
	err = g.withTokenRetry(func() error {
		newTokens, ts, mintErr := g.mintTokenSet(grant, scopes, rotate)
		if mintErr != nil {
			return mintErr
		}
		if rotate && ts.RefreshToken != nil {
			// Rotation never extends the refresh window
			ts.RefreshToken.ExpiresAt = refreshTok.ExpiresAt
		}
		txErr := g.store.RefreshTokens(
			ctx,
			refreshTok.TokenHash, grant.GrantID,
			rotate, rotate,
			newTokens,
		)
		if txErr != nil {
			return txErr
		}
		set = ts
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrTokenGone) {
			g.metrics.RecordTokenRefresh(false)
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	g.registry.InvalidateHashes(ctx, staleHashes)
	g.metrics.RecordTokenRefresh(true)
	g.recordIssued(set, models.GrantTypeRefreshToken, time.Since(start))
	g.audit.Log(AuditLogEntry{
		EventType:     models.EventTokenRefreshed,
		ActorClientID: client.ClientID,
		ActorUserID:   grant.UserID,
		ResourceType:  models.ResourceGrant,
		ResourceID:    grant.GrantID,
		Action:        "refresh_token_grant",
		Details:       models.AuditDetails{"scopes": scopes, "rotation": rotate},
		Success:       true,
	})

	return set, nil
}

// Revoke implements RFC 7009 semantics: best-effort, idempotent, cascading.
// Revoking any token of a grant removes the grant and every sibling token.
// An unknown or already-revoked token is a success, not an error.
func (g *GrantService) Revoke(
	ctx context.Context,
	client *models.Client,
	rawToken string,
) error {
	if client.IsPublic() && !g.cfg.AllowPublicClientRevocation {
		return ErrAccessDenied
	}

	// The hash index covers every token type, so the RFC 7009
	// token_type_hint never changes the lookup
	tok, grant, err := g.registry.FindByValue(ctx, rawToken)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil
		}
		return err
	}

	if tok.ClientID != client.ClientID {
		crossAllowed := g.cfg.AllowCrossClientRevocation &&
			client.AllowsScopes(RevokeAnyScope)
		if !crossAllowed {
			// Respond exactly as for an unknown token so a client cannot
			// learn whether a value is live in another client's token space
			g.audit.Log(AuditLogEntry{
				EventType:     models.EventGrantRevoked,
				Severity:      models.SeverityWarning,
				ActorClientID: client.ClientID,
				ResourceType:  models.ResourceGrant,
				ResourceID:    grant.GrantID,
				Action:        "revoke_denied_cross_client",
				Success:       false,
				ErrorMessage:  "cross-client revocation not permitted",
			})
			return nil
		}
	}

	return g.revokeGrant(ctx, grant, client.ClientID, "client_request")
}

// RevokeGrant removes a grant and all of its tokens. Exposed for the UMA
// service, whose RPT grants share the same cascade.
func (g *GrantService) RevokeGrant(
	ctx context.Context,
	grant *models.AuthorizationGrant,
	actorClientID string,
) error {
	return g.revokeGrant(ctx, grant, actorClientID, "client_request")
}

func (g *GrantService) revokeGrant(
	ctx context.Context,
	grant *models.AuthorizationGrant,
	actorClientID, reason string,
) error {
	tokens, err := g.registry.RemoveGrant(ctx, grant.GrantID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// Lost the race against another revoke; nothing left to do
			return nil
		}
		return err
	}

	for _, t := range tokens {
		g.metrics.RecordTokenRevoked(string(t.TokenType), reason)
	}

	g.audit.Log(AuditLogEntry{
		EventType:     models.EventGrantRevoked,
		ActorClientID: actorClientID,
		ActorUserID:   grant.UserID,
		ResourceType:  models.ResourceGrant,
		ResourceID:    grant.GrantID,
		Action:        "revoke_grant",
		Details:       models.AuditDetails{"tokens_deleted": len(tokens), "reason": reason},
		Success:       true,
	})

	return nil
}

func (g *GrantService) revokeGrantForReplay(ctx context.Context, grant *models.AuthorizationGrant) {
	if err := g.revokeGrant(ctx, grant, grant.ClientID, "code_replay"); err != nil {
		log.Printf("[Grant] Failed to revoke grant %s after code replay: %v", grant.GrantID, err)
	}
}

// IntrospectionResponse is the RFC 7662 response document.
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sub       string `json:"sub,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	AuthTime  int64  `json:"auth_time,omitempty"`
	Acr       string `json:"acr,omitempty"`
	Amr       string `json:"amr,omitempty"`
}

// Introspect resolves a token value for a caller whose grant carries the
// introspection scope. Every failure to resolve the target token is the same
// inactive response; only the caller's own credential produces an error.
func (g *GrantService) Introspect(
	ctx context.Context,
	callerRaw, targetRaw string,
) (*IntrospectionResponse, error) {
	start := time.Now()

	callerTok, callerGrant, err := g.registry.FindByAccessToken(ctx, callerRaw)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			g.metrics.RecordIntrospection("denied", time.Since(start))
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if callerTok.IsExpired() || !callerGrant.HasScope(g.cfg.IntrospectionScope) {
		g.metrics.RecordIntrospection("denied", time.Since(start))
		return nil, ErrAccessDenied
	}

	tok, grant, err := g.registry.FindByValue(ctx, targetRaw)
	if err != nil || tok.IsExpired() {
		g.metrics.RecordIntrospection("inactive", time.Since(start))
		return &IntrospectionResponse{Active: false}, nil
	}

	resp := &IntrospectionResponse{
		Active:    true,
		Scope:     tok.Scopes,
		ClientID:  tok.ClientID,
		Sub:       tok.UserID,
		TokenType: tokenTypeLabel(tok.TokenType),
		Exp:       tok.ExpiresAt.Unix(),
		Iat:       tok.CreatedAt.Unix(),
		Acr:       grant.AcrValues,
		Amr:       grant.AmrValues,
	}
	if !grant.AuthenticationTime.IsZero() {
		resp.AuthTime = grant.AuthenticationTime.Unix()
	}

	g.metrics.RecordIntrospection("active", time.Since(start))
	g.audit.Log(AuditLogEntry{
		EventType:     models.EventTokenIntrospected,
		ActorClientID: callerTok.ClientID,
		ResourceType:  models.ResourceToken,
		ResourceID:    tok.ID,
		Action:        "introspect_token",
		Success:       true,
	})

	return resp, nil
}

// mintTokenSet builds the replacement token records for a grant: an access
// token, optionally a refresh token, and an ID token when the grant carries
// the openid scope. Nothing is persisted here.
func (g *GrantService) mintTokenSet(
	grant *models.AuthorizationGrant,
	scopes string,
	withRefresh bool,
) ([]*models.Token, *TokenSet, error) {
	access, err := token.Mint(
		models.TokenTypeAccessToken,
		grant.GrantID, grant.ClientID, grant.UserID, scopes,
		g.cfg.AccessTokenExpiration,
	)
	if err != nil {
		return nil, nil, err
	}
	newTokens := []*models.Token{access}

	set := &TokenSet{
		AccessToken: access,
		Scope:       scopes,
		ExpiresIn:   int(time.Until(access.ExpiresAt).Seconds()),
	}

	if withRefresh && grant.CanRefresh() {
		refresh, err := token.Mint(
			models.TokenTypeRefreshToken,
			grant.GrantID, grant.ClientID, grant.UserID, scopes,
			g.cfg.RefreshTokenExpiration,
		)
		if err != nil {
			return nil, nil, err
		}
		newTokens = append(newTokens, refresh)
		set.RefreshToken = refresh
	}

	if grant.UserID != "" && hasScope(scopes, "openid") {
		signed, err := token.SignIDToken(g.cfg.JWTSecret, token.IDTokenParams{
			Issuer:   g.cfg.BaseURL,
			Subject:  grant.UserID,
			Audience: grant.ClientID,
			AuthTime: grant.AuthenticationTime,
			Nonce:    grant.Nonce,
			AtHash:   token.ComputeAtHash(access.RawToken),
			Acr:      grant.AcrValues,
			Amr:      grant.AmrValues,
			Expiry:   g.cfg.IDTokenExpiration,
		})
		if err != nil {
			return nil, nil, err
		}

		now := time.Now()
		idRecord := &models.Token{
			ID:        uuid.New().String(),
			TokenHash: util.SHA256Hex(signed),
			RawToken:  signed,
			TokenType: models.TokenTypeIDToken,
			GrantID:   grant.GrantID,
			ClientID:  grant.ClientID,
			UserID:    grant.UserID,
			Scopes:    scopes,
			ExpiresAt: now.Add(g.cfg.IDTokenExpiration),
			CreatedAt: now,
		}
		newTokens = append(newTokens, idRecord)
		set.IDToken = signed
	}

	return newTokens, set, nil
}

// withTokenRetry re-runs fn on hash collisions. Each attempt re-mints fresh
// token values, so a retry cannot collide on the same hash twice.
func (g *GrantService) withTokenRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < token.MaxGenerateAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrDuplicateToken) {
			return err
		}
		log.Printf("[Grant] Token hash collision, retrying (%d/%d)",
			attempt+1, token.MaxGenerateAttempts)
	}
	return token.ErrGeneration
}

func (g *GrantService) recordIssued(set *TokenSet, gt models.GrantType, elapsed time.Duration) {
	g.metrics.RecordTokenIssued(string(models.TokenTypeAccessToken), string(gt), elapsed)
	if set.RefreshToken != nil {
		g.metrics.RecordTokenIssued(string(models.TokenTypeRefreshToken), string(gt), elapsed)
	}
	if set.IDToken != "" {
		g.metrics.RecordTokenIssued(string(models.TokenTypeIDToken), string(gt), elapsed)
	}
}

func hasScope(scopes, want string) bool {
	for _, s := range strings.Fields(scopes) {
		if s == want {
			return true
		}
	}
	return false
}

func tokenTypeLabel(t models.TokenType) string {
	if t == models.TokenTypeAccessToken {
		return "Bearer"
	}
	return string(t)
}
