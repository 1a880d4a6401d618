package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/desertthunder/persona/internal/tasks"
	"github.com/desertthunder/persona/internal/ui"
	"github.com/urfave/cli/v3"
)

// SocialLike toggles the user's like on a persona.
//
// --liked and --likes describe what is currently shown so the optimistic result can be
// printed; the server's answer replaces it when it carries both fields.
func (r *Runner) SocialLike(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: persona id", shared.ErrMissingArgument)
	}

	tracker := tasks.NewLikeTracker(r.social)
	tracker.Seed(id, models.LikeState{Liked: cmd.Bool("liked"), Count: int(cmd.Int("likes"))})

	state, err := tracker.Toggle(ctx, id)
	if err != nil {
		reverted := tracker.State(id)
		r.writePlain("%s %s\n", ui.Error("✗"), likeLine(id, reverted))
		return err
	}

	return r.writePlain("%s %s\n", ui.Success("✓"), likeLine(id, state))
}

func likeLine(id string, s models.LikeState) string {
	verb := "Not liked"
	if s.Liked {
		verb = "Liked"
	}
	return fmt.Sprintf("%s %s (%d likes)", verb, id, s.Count)
}

// SocialExplore lists the public feed, or the trending personas with --trending.
func (r *Runner) SocialExplore(ctx context.Context, cmd *cli.Command) error {
	title, fetch := "World Feed", r.public.Explore
	if cmd.Bool("trending") {
		title, fetch = "Trending Now", r.public.Trending
	}

	items, err := fetch(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}

	r.writePlainHeader(title)
	if len(items) == 0 {
		return r.writePlain("%s\n", ui.Help("Nothing here yet"))
	}
	for i, p := range items {
		r.writePlain("%2d. %s\n", i+1, publicLine(p))
	}
	return nil
}

// SocialProfile prints a user's public page.
func (r *Runner) SocialProfile(ctx context.Context, cmd *cli.Command) error {
	profile, err := r.public.Profile(ctx, cmd.StringArg("username"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(struct {
			*models.PublicProfile
			Personas []models.Persona `json:"personas"`
		}{profile, profile.Personas}, true)
	}

	r.writePlainHeader(profile.Name)
	r.writePlain("Vibe: %s\n", profile.Vibe())
	if profile.DNA != nil && profile.DNA.Tribe != "" {
		r.writePlain("Tribe: %s\n", profile.DNA.Tribe)
	}
	r.writePlain("Personas: %d\n", len(profile.Personas))
	for _, p := range profile.Personas {
		r.writePlain("  %s\n", publicLine(p))
	}
	return nil
}

func publicLine(p models.Persona) string {
	label := p.Title
	if label == "" {
		label = p.Prompt
	}
	creator := "Anonymous"
	if p.Creator != nil && p.Creator.Name != "" {
		creator = p.Creator.Name
	}
	return fmt.Sprintf("%s  %s  by %s  ♥ %d", p.ID, label, creator, p.Likes)
}
