package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Token        string          `json:"token"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         models.Identity `json:"user"`
}

// Access returns the access credential under whichever key the server used.
func (r AuthResult) Access() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// RefreshResult is the payload of a successful refresh. RefreshToken is set when the server rotates it.
type RefreshResult struct {
	Token        string `json:"token"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Access returns the new access credential.
func (r RefreshResult) Access() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

type loginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthService wraps the /auth endpoints. Its requests never carry a credential.
type AuthService struct {
	api *APIService
}

// NewAuthService creates an [AuthService] on top of api.
func NewAuthService(api *APIService) *AuthService {
	return &AuthService{api: api}
}

// Login exchanges an email or username and a password for credentials.
//
// The identifier is sent as "email" when it contains an @, as "username" otherwise.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	body := loginRequest{Password: password}
	if strings.Contains(identifier, "@") {
		body.Email = identifier
	} else {
		body.Username = identifier
	}

	var result AuthResult
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: body, anonymous: true}, &result); err != nil {
		return nil, err
	}
	if result.Access() == "" {
		return nil, fmt.Errorf("%w: login response has no access token", shared.ErrAPIRequest)
	}
	return &result, nil
}

// Register creates an account and returns its first credentials.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	body := registerRequest{Name: name, Email: email, Password: password}

	var result AuthResult
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: body, anonymous: true}, &result); err != nil {
		return nil, err
	}
	if result.Access() == "" {
		return nil, fmt.Errorf("%w: register response has no access token", shared.ErrAPIRequest)
	}
	return &result, nil
}

// Refresh mints a new access credential from a refresh credential.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var result RefreshResult
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/auth/refresh", body: refreshRequest{RefreshToken: refreshToken}, anonymous: true}, &result); err != nil {
		return nil, err
	}
	if result.Access() == "" {
		return nil, fmt.Errorf("%w: refresh response has no access token", shared.ErrRefreshFailed)
	}
	return &result, nil
}

// Logout revokes the refresh credential on the server.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	_, err := s.api.do(ctx, call{method: http.MethodPost, path: "/auth/logout", body: refreshRequest{RefreshToken: refreshToken}, anonymous: true}, nil)
	return err
}
