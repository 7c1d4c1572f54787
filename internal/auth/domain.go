package auth

import "errors"

// CookieName is the session cookie carrying the signed token.
const CookieName = "crewdesk_token"

// Authentication failures. Every failure maps to an unauthenticated response
// and never reaches business logic.
var (
	ErrNoCredential      = errors.New("auth: no credential")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrExpiredCredential = errors.New("auth: expired credential")
	ErrActorNotFound     = errors.New("auth: actor not found")
)

// Identity is the verified assertion returned by the identity provider after
// an authorization-code exchange.
type Identity struct {
	Subject string
	Email   string
	Name    string
}
