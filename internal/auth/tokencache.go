package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// TokenFetcher obtains a fresh service credential from the provider.
type TokenFetcher func(ctx context.Context) (token string, expiresAt time.Time, err error)

// ServiceTokenCache holds a provider-issued service credential with a simple
// time-based expiry guard. Refresh is idempotent, so a redundant fetch under
// a race is tolerated rather than locked out; the mutex only protects the
// cached fields themselves.
type ServiceTokenCache struct {
	fetch  TokenFetcher
	leeway time.Duration
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewServiceTokenCache constructs a cache around the given fetcher.
func NewServiceTokenCache(fetch TokenFetcher) *ServiceTokenCache {
	return &ServiceTokenCache{
		fetch:  fetch,
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// ClientCredentialsFetcher builds a TokenFetcher over the OAuth2 client
// credentials grant.
func ClientCredentialsFetcher(clientID, clientSecret, tokenURL string, scopes []string) TokenFetcher {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return func(ctx context.Context) (string, time.Time, error) {
		token, err := cfg.Token(ctx)
		if err != nil {
			return "", time.Time{}, err
		}
		return token.AccessToken, token.Expiry, nil
	}
}

// Token returns the cached credential, refreshing it when missing or past
// expiry (with leeway).
func (c *ServiceTokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Add(c.leeway).Before(c.expires) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, expires, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = token
	c.expires = expires
	c.mu.Unlock()
	return token, nil
}
