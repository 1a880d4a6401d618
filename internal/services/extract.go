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

// ExtractService wraps the /extract endpoint that scrapes a product page.
type ExtractService struct {
	api *APIService
}

// NewExtractService creates an [ExtractService] on top of api.
func NewExtractService(api *APIService) *ExtractService {
	return &ExtractService{api: api}
}

// Analyze scrapes the product at pageURL.
func (s *ExtractService) Analyze(ctx context.Context, pageURL string) (*models.Product, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: product URL %q", shared.ErrInvalidArgument, pageURL)
	}

	var product models.Product
	if _, err := s.api.do(ctx, call{method: http.MethodPost, path: "/extract", body: map[string]string{"url": u.String()}}, &product); err != nil {
		return nil, err
	}
	if product.URL == "" {
		product.URL = u.String()
	}
	return &product, nil
}

const fallbackDetails = "luxury product details"

// BuildPrompt turns an extracted product into a generation prompt.
func BuildPrompt(p models.Product) string {
	details := fallbackDetails
	if d := strings.TrimSpace(p.Description); d != "" {
		details = shared.Truncate(d, 150)
	}

	return fmt.Sprintf("Cinematic, high-end commercial shot of %s.\nFocus on details: %s.\nLighting: Studio softbox, 8k resolution, photorealistic, slow motion product reveal.", p.Title, details)
}

// RequestFromProduct builds a job submission seeded from p.
//
// The first product image becomes the source image; title, price, currency and domain travel as metadata.
func RequestFromProduct(p models.Product) models.CreatePersonaRequest {
	req := models.CreatePersonaRequest{
		Prompt:   BuildPrompt(p),
		Title:    p.Title,
		Price:    p.Price,
		Currency: p.Currency,
		Domain:   p.Domain,
	}
	if len(p.Images) > 0 {
		req.SourceImageURL = p.Images[0]
	}
	return req
}
