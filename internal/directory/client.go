// Package directory talks to the identity provider's user directory API for
// inviting, updating, and removing accounts. The provider protocol itself is
// treated as a black box behind a small JSON surface.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSource supplies a service credential for directory calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the provider directory API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient constructs a directory client.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Invite registers an external user with the provider and returns the
// provider-assigned subject id.
func (c *Client) Invite(ctx context.Context, email, displayName, redirectURL string) (string, error) {
	payload := map[string]any{
		"invitedUserEmailAddress": email,
		"invitedUserDisplayName":  displayName,
		"inviteRedirectUrl":       redirectURL,
		"sendInvitationMessage":   true,
		"invitedUserType":         "Guest",
	}
	var invitation struct {
		ID          string `json:"id"`
		InvitedUser struct {
			ID string `json:"id"`
		} `json:"invitedUser"`
	}
	if err := c.do(ctx, http.MethodPost, "/invitations", payload, &invitation); err != nil {
		return "", fmt.Errorf("directory: invite %s: %w", email, err)
	}
	id := invitation.InvitedUser.ID
	if id == "" {
		id = invitation.ID
	}
	return id, nil
}

// UpdateUser patches the display name of a provider account.
func (c *Client) UpdateUser(ctx context.Context, providerID, displayName string) error {
	payload := map[string]any{"displayName": displayName}
	if err := c.do(ctx, http.MethodPatch, "/users/"+providerID, payload, nil); err != nil {
		return fmt.Errorf("directory: update user %s: %w", providerID, err)
	}
	return nil
}

// DeleteUser removes a provider account.
func (c *Client) DeleteUser(ctx context.Context, providerID string) error {
	if err := c.do(ctx, http.MethodDelete, "/users/"+providerID, nil, nil); err != nil {
		return fmt.Errorf("directory: delete user %s: %w", providerID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
