package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// IdentityProvider exchanges an authorization code for a verified identity
// assertion.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (Identity, error)
}

// OIDCProvider implements IdentityProvider over a standard authorization-code
// flow. The identity claims are read from the ID token returned by the token
// endpoint; the token arrives over the direct TLS channel to the provider, so
// no local signature check is performed.
type OIDCProvider struct {
	config *oauth2.Config
}

// OIDCConfig configures the provider endpoints and client credentials.
type OIDCConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// NewOIDCProvider constructs an OIDCProvider.
func NewOIDCProvider(cfg OIDCConfig) *OIDCProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	return &OIDCProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      scopes,
		},
	}
}

// AuthCodeURL builds the provider login URL for the given state nonce.
func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode redeems the authorization code and extracts the subject,
// email, and display name from the ID token.
func (p *OIDCProvider) ExchangeCode(ctx context.Context, code string) (Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: code exchange: %w", err)
	}

	rawID, _ := token.Extra("id_token").(string)
	if rawID == "" {
		return Identity{}, fmt.Errorf("auth: token response missing id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawID, claims); err != nil {
		return Identity{}, fmt.Errorf("auth: parse id_token: %w", err)
	}

	id := Identity{
		Subject: stringClaim(claims, "oid"),
		Email:   stringClaim(claims, "preferred_username"),
		Name:    stringClaim(claims, "name"),
	}
	if id.Subject == "" {
		id.Subject = stringClaim(claims, "sub")
	}
	if id.Email == "" {
		id.Email = stringClaim(claims, "email")
	}
	if id.Subject == "" || id.Email == "" {
		return Identity{}, fmt.Errorf("auth: id_token missing subject or email")
	}
	return id, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
