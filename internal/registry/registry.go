// Package registry maps opaque token values back to their owning grants.
// It is the only lookup path the services use; mutations (consume, revoke)
// go straight to the store's conditional operations so that find-then-delete
// stays a single atomic step per token value.
package registry

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-grantgate/grantgate/internal/cache"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/util"
)

// ErrNotFound is returned when no live token matches the presented value.
var ErrNotFound = errors.New("token not found")

const cacheKeyPrefix = "tok:"

// Registry resolves token values to (token, grant) pairs. Access-token
// lookups are served through a short-TTL cache; authorization codes and
// refresh tokens always hit the store because both mutate on use.
type Registry struct {
	store    *store.Store
	tokens   cache.Cache[models.Token]
	cacheTTL time.Duration
}

func New(s *store.Store, tokens cache.Cache[models.Token], cacheTTL time.Duration) *Registry {
	return &Registry{
		store:    s,
		tokens:   tokens,
		cacheTTL: cacheTTL,
	}
}

// FindByAccessToken resolves an access-token value, cache first.
func (r *Registry) FindByAccessToken(
	ctx context.Context,
	raw string,
) (*models.Token, *models.AuthorizationGrant, error) {
	hash := util.SHA256Hex(raw)

	if r.tokens != nil {
		if cached, err := r.tokens.Get(ctx, cacheKeyPrefix+hash); err == nil {
			grant, err := r.store.GetGrant(ctx, cached.GrantID)
			if err == nil {
				return &cached, grant, nil
			}
			// Grant revoked underneath the cache entry
			_ = r.tokens.Delete(ctx, cacheKeyPrefix+hash)
			return nil, nil, ErrNotFound
		}
	}

	tok, err := r.store.GetTokenByHashAndType(ctx, hash, models.TokenTypeAccessToken)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	grant, err := r.store.GetGrant(ctx, tok.GrantID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	r.cacheToken(ctx, tok)
	return tok, grant, nil
}

// FindByRefreshToken resolves a refresh-token value scoped to a client.
// Always hits the store: refresh tokens mutate on every use.
func (r *Registry) FindByRefreshToken(
	ctx context.Context,
	clientID, raw string,
) (*models.Token, *models.AuthorizationGrant, error) {
	hash := util.SHA256Hex(raw)

	tok, err := r.store.GetTokenByHashAndType(ctx, hash, models.TokenTypeRefreshToken)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if tok.ClientID != clientID {
		// Do not reveal that the token exists for another client
		return nil, nil, ErrNotFound
	}

	grant, err := r.store.GetGrant(ctx, tok.GrantID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return tok, grant, nil
}

// FindByCode resolves an authorization-code value. Never cached: codes are
// single-use and the exchange deletes them.
func (r *Registry) FindByCode(
	ctx context.Context,
	raw string,
) (*models.Token, *models.AuthorizationGrant, error) {
	hash := util.SHA256Hex(raw)

	tok, err := r.store.GetTokenByHashAndType(ctx, hash, models.TokenTypeAuthorizationCode)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	grant, err := r.store.GetGrant(ctx, tok.GrantID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return tok, grant, nil
}

// FindByValue resolves any token value without a type restriction, used by
// best-effort revocation after the hinted lookups miss.
func (r *Registry) FindByValue(
	ctx context.Context,
	raw string,
) (*models.Token, *models.AuthorizationGrant, error) {
	hash := util.SHA256Hex(raw)

	tok, err := r.store.GetTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	grant, err := r.store.GetGrant(ctx, tok.GrantID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return tok, grant, nil
}

// RemoveGrant deletes a grant with everything issued under it and purges the
// cache entries for the removed tokens. Returns the removed token records so
// callers can account for them. A grant already gone returns ErrNotFound.
func (r *Registry) RemoveGrant(ctx context.Context, grantID string) ([]models.Token, error) {
	tokens, err := r.store.GetTokensByGrantID(ctx, grantID)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.DeleteGrantCascade(ctx, grantID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	hashes := make([]string, 0, len(tokens))
	for _, t := range tokens {
		hashes = append(hashes, t.TokenHash)
	}
	r.InvalidateHashes(ctx, hashes)

	return tokens, nil
}

// InvalidateHashes drops cache entries for the given token hashes. Called on
// revocation so a cached access token can never outlive its grant.
func (r *Registry) InvalidateHashes(ctx context.Context, hashes []string) {
	if r.tokens == nil {
		return
	}
	for _, h := range hashes {
		if err := r.tokens.Delete(ctx, cacheKeyPrefix+h); err != nil {
			log.Printf("[Registry] Failed to invalidate cache entry: %v", err)
		}
	}
}

// cacheToken mirrors a live access token into the cache. The entry TTL is
// capped by the token's remaining lifetime so a cache entry can never
// outlive the authoritative record's expiration.
func (r *Registry) cacheToken(ctx context.Context, tok *models.Token) {
	if r.tokens == nil || tok.TokenType != models.TokenTypeAccessToken {
		return
	}
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if ttl > r.cacheTTL {
		ttl = r.cacheTTL
	}
	cached := *tok
	cached.Cached = true
	if err := r.tokens.Set(ctx, cacheKeyPrefix+tok.TokenHash, cached, ttl); err != nil {
		log.Printf("[Registry] Failed to cache token: %v", err)
	}
}
