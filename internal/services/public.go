package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

// PublicService wraps the /public endpoints. Requests never carry a credential.
type PublicService struct {
	api *APIService
}

// NewPublicService creates a [PublicService] on top of api.
func NewPublicService(api *APIService) *PublicService {
	return &PublicService{api: api}
}

// Explore returns the public feed, each persona with its creator populated.
func (s *PublicService) Explore(ctx context.Context) ([]models.Persona, error) {
	return s.list(ctx, "/public/explore")
}

// Trending returns the most liked public personas, best first.
func (s *PublicService) Trending(ctx context.Context) ([]models.Persona, error) {
	return s.list(ctx, "/public/trending")
}

func (s *PublicService) list(ctx context.Context, path string) ([]models.Persona, error) {
	var items []models.Persona
	if _, err := s.api.do(ctx, call{method: http.MethodGet, path: path, anonymous: true}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Profile returns a user's public page and the personas on it.
func (s *PublicService) Profile(ctx context.Context, username string) (*models.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	var payload struct {
		Profile *models.PublicProfile `json:"profile"`
		Dreams  []models.Persona      `json:"dreams"`
	}
	path := "/public/profile/" + url.PathEscape(username)
	if _, err := s.api.do(ctx, call{method: http.MethodGet, path: path, anonymous: true}, &payload); err != nil {
		return nil, err
	}
	if payload.Profile == nil {
		return nil, fmt.Errorf("%w: response has no profile", shared.ErrAPIRequest)
	}
	payload.Profile.Personas = payload.Dreams
	return payload.Profile, nil
}
