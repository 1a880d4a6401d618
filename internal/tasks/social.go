package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

// Liker toggles a like on the server. [services.SocialService] implements it.
type Liker interface {
	Like(ctx context.Context, id string) (*models.LikeState, error)
}

// LikeTracker keeps the displayed like state of personas and toggles it optimistically.
type LikeTracker struct {
	api    Liker
	states *Optimistic[string, models.LikeState]
}

// NewLikeTracker creates an empty tracker.
func NewLikeTracker(api Liker) *LikeTracker {
	return &LikeTracker{api: api, states: NewOptimistic[string, models.LikeState]()}
}

// Seed records the server's view of a persona's likes.
func (t *LikeTracker) Seed(id string, state models.LikeState) {
	t.states.Set(id, state)
}

// State returns the displayed like state of id.
func (t *LikeTracker) State(id string) models.LikeState {
	s, _ := t.states.Get(id)
	return s
}

// Toggle flips the like immediately and reverts it if the server rejects the change.
func (t *LikeTracker) Toggle(ctx context.Context, id string) (models.LikeState, error) {
	if id == "" {
		return models.LikeState{}, fmt.Errorf("%w: persona id", shared.ErrMissingArgument)
	}
	return t.states.Mutate(ctx, id,
		func(s models.LikeState) models.LikeState { return s.Toggled() },
		func(ctx context.Context) (*models.LikeState, error) { return t.api.Like(ctx, id) },
	)
}

// GalleryAPI lists and deletes jobs. [services.PersonaService] implements it.
type GalleryAPI interface {
	List(ctx context.Context) ([]models.Persona, error)
	Delete(ctx context.Context, id string) error
}

const galleryKey = "gallery"

// Gallery is the user's list of personas with optimistic removal.
//
// The whole list is a single mutation target: while one delete is pending a second is rejected.
type Gallery struct {
	api   GalleryAPI
	items *Optimistic[string, []models.Persona]
}

// NewGallery creates an empty gallery.
func NewGallery(api GalleryAPI) *Gallery {
	return &Gallery{api: api, items: NewOptimistic[string, []models.Persona]()}
}

// Load replaces the list with the server's. It fails with [shared.ErrMutationInFlight]
// while a delete is pending.
func (g *Gallery) Load(ctx context.Context) ([]models.Persona, error) {
	items, err := g.api.List(ctx)
	if err != nil {
		return nil, err
	}
	if !g.items.Set(galleryKey, items) {
		return g.Items(), fmt.Errorf("%w: gallery", shared.ErrMutationInFlight)
	}
	return items, nil
}

// Items returns the displayed list.
func (g *Gallery) Items() []models.Persona {
	items, _ := g.items.Get(galleryKey)
	return items
}

// Delete removes id from the list at once and restores the list if the server refuses.
func (g *Gallery) Delete(ctx context.Context, id string) ([]models.Persona, error) {
	if id == "" {
		return g.Items(), fmt.Errorf("%w: persona id", shared.ErrMissingArgument)
	}
	return g.items.Mutate(ctx, galleryKey,
		func(items []models.Persona) []models.Persona {
			return slices.DeleteFunc(slices.Clone(items), func(p models.Persona) bool { return p.ID == id })
		},
		func(ctx context.Context) (*[]models.Persona, error) { return nil, g.api.Delete(ctx, id) },
	)
}
