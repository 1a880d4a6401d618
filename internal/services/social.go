package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

// SocialService wraps the /social endpoints.
type SocialService struct {
	api *APIService
}

// NewSocialService creates a [SocialService] on top of api.
func NewSocialService(api *APIService) *SocialService {
	return &SocialService{api: api}
}

// Like toggles the caller's like on a persona.
//
// Returns the authoritative state when the server includes one, nil otherwise.
func (s *SocialService) Like(ctx context.Context, id string) (*models.LikeState, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: persona id", shared.ErrMissingArgument)
	}

	var payload struct {
		Liked *bool `json:"liked"`
		Likes *int  `json:"likes"`
	}
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/social/like/" + url.PathEscape(id)}, &payload); err != nil {
		return nil, err
	}

	if payload.Liked == nil || payload.Likes == nil {
		return nil, nil
	}
	return &models.LikeState{Liked: *payload.Liked, Count: *payload.Likes}, nil
}
