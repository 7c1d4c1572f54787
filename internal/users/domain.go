// Package users manages application accounts: listing, provisioning through
// the identity provider, role assignment, and direct permission grants.
package users

import (
	"context"
	"time"
)

// User is an application account linked to an identity provider subject.
type User struct {
	ID                int64     `json:"id"`
	SubjectID         string    `json:"-"`
	Email             string    `json:"email"`
	DisplayName       string    `json:"name"`
	RoleID            int64     `json:"roleId"`
	RoleName          string    `json:"role"`
	DirectPermissions []string  `json:"permissions"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Inviter registers accounts with the identity provider.
type Inviter interface {
	Invite(ctx context.Context, email, displayName, redirectURL string) (id string, err error)
	UpdateUser(ctx context.Context, providerID, displayName string) error
	DeleteUser(ctx context.Context, providerID string) error
}
