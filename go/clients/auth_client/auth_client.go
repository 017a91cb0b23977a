package auth_client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MaxIvlevich/labyrinth-game/go/clients"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/auth"
)

// Client talks to the game server's REST auth endpoints.
type Client struct {
	*clients.BaseClient
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseClient: clients.NewBaseClient(baseURL),
	}
}

// TokenResponse is the server's JWT response body.
type TokenResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	UserID       string   `json:"userId"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
}

// Credentials maps the response onto a credential pair. A missing user id is
// taken from the access token's subject.
func (r TokenResponse) Credentials() auth.Credentials {
	c := auth.Credentials{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		SubjectID:    r.UserID,
		DisplayName:  r.Username,
	}
	if c.SubjectID == "" {
		if claims, err := auth.ParseClaims(r.AccessToken); err == nil {
			c.SubjectID = claims.Subject
		}
	}
	return c
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates and returns a fresh credential pair.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (auth.Credentials, error) {
	var resp TokenResponse
	if err := c.DoJSON(ctx, http.MethodPost, LoginEndpoint, loginRequest{UsernameOrEmail: usernameOrEmail, Password: password}, &resp); err != nil {
		return auth.Credentials{}, fmt.Errorf("login: %w", err)
	}
	return resp.Credentials(), nil
}

// Signup registers a new account. It does not log in.
func (c *Client) Signup(ctx context.Context, username, email, password string) error {
	if err := c.DoJSON(ctx, http.MethodPost, SignupEndpoint, signupRequest{Username: username, Email: email, Password: password}, nil); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.Credentials, error) {
	var resp TokenResponse
	if err := c.DoJSON(ctx, http.MethodPost, RefreshEndpoint, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return auth.Credentials{}, fmt.Errorf("refresh: %w", err)
	}
	creds := resp.Credentials()
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return auth.Credentials{}, fmt.Errorf("refresh: %w", auth.ErrIncompleteCredentials)
	}
	return creds, nil
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if err := c.DoJSON(ctx, http.MethodPost, LogoutEndpoint, refreshRequest{RefreshToken: refreshToken}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

var _ auth.TokenAPI = (*Client)(nil)
