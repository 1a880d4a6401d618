package services

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

// Question is one onboarding prompt and the answers the server understands.
type Question struct {
	Prompt  string
	Options []string
}

// OnboardingQuestions are asked in order; the answers are sent in the same order.
var OnboardingQuestions = []Question{
	{Prompt: "Where does your mind wander?", Options: []string{"neon tech", "nature calm", "luxury gold"}},
	{Prompt: "Pick your weapon of choice.", Options: []string{"vintage", "tech", "classic"}},
	{Prompt: "What fuels you?", Options: []string{"chaos", "order", "art"}},
}

// NormalizeAnswers checks one answer per onboarding question and returns them lowercased.
func NormalizeAnswers(answers []string) ([]string, error) {
	if len(answers) != len(OnboardingQuestions) {
		return nil, fmt.Errorf("%w: expected %d answers, got %d", shared.ErrInvalidInput, len(OnboardingQuestions), len(answers))
	}

	out := make([]string, len(answers))
	for i, a := range answers {
		a = strings.ToLower(strings.TrimSpace(a))
		q := OnboardingQuestions[i]
		if !slices.Contains(q.Options, a) {
			return nil, fmt.Errorf("%w: %q is not an answer to %q (choose %s)",
				shared.ErrInvalidInput, a, q.Prompt, strings.Join(q.Options, ", "))
		}
		out[i] = a
	}
	return out, nil
}

// DNAService wraps the /dna endpoints.
type DNAService struct {
	api *APIService
}

// NewDNAService creates a [DNAService] on top of api.
func NewDNAService(api *APIService) *DNAService {
	return &DNAService{api: api}
}

// Generate sends the onboarding answers and returns the user with its new DNA card.
func (s *DNAService) Generate(ctx context.Context, userID string, answers []string) (*models.Identity, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	answers, err := NormalizeAnswers(answers)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"userId": userID, "answers": answers}
	var user models.Identity
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/dna/generate", body: body}, &user); err != nil {
		return nil, err
	}
	if user.DNA == nil {
		return nil, fmt.Errorf("%w: response has no DNA card", shared.ErrAPIRequest)
	}
	return &user, nil
}
