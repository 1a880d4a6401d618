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

// PersonaService wraps the /jobs endpoints.
type PersonaService struct {
	api *APIService
}

// NewPersonaService creates a [PersonaService] on top of api.
func NewPersonaService(api *APIService) *PersonaService {
	return &PersonaService{api: api}
}

// Create submits a generation job and returns it with its initial status.
func (s *PersonaService) Create(ctx context.Context, req models.CreatePersonaRequest) (*models.Persona, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	var job models.Persona
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/jobs", body: req}, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, fmt.Errorf("%w: create response has no job id", shared.ErrAPIRequest)
	}
	if job.Status == "" {
		job.Status = models.JobPending
	}
	return &job, nil
}

// Status fetches the current state of a job.
func (s *PersonaService) Status(ctx context.Context, id string) (*models.Persona, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	var job models.Persona
	if _, err := s.api.do(ctx, call{method: http.MethodGet, path: "/jobs/" + url.PathEscape(id)}, &job); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
		}
		return nil, err
	}
	if job.ID == "" {
		job.ID = id
	}
	return &job, nil
}

// List returns the caller's jobs, newest first as ordered by the server.
func (s *PersonaService) List(ctx context.Context) ([]models.Persona, error) {
	var jobs []models.Persona
	if _, err := s.api.do(ctx, call{method: http.MethodGet, path: "/jobs"}, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Delete removes a job.
func (s *PersonaService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}
	_, err := s.api.do(ctx, call{method: http.MethodDelete, path: "/jobs/" + url.PathEscape(id)}, nil)
	return err
}
